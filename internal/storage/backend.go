package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/grivyzom/playtimer-server/internal/config"
	"github.com/grivyzom/playtimer-server/internal/database"
)

// Backend is the durable store for cumulative per-player playtime.
//
// GetPlayTime returns 0 for players with no record; absence is never an
// error. SavePlayTime is an atomic per-player upsert. Close flushes any
// buffered writes before releasing resources and is safe to call once.
// All failures surface as STORAGE_ERROR AppErrors carrying their cause.
type Backend interface {
	GetPlayTime(ctx context.Context, player uuid.UUID) (int64, error)
	SavePlayTime(ctx context.Context, player uuid.UUID, seconds int64) error
	LoadAll(ctx context.Context) (map[uuid.UUID]int64, error)
	Close() error
}

// Open selects the storage backend for the process lifetime. It attempts
// the relational backend first and, only if that construction fails,
// falls back to the JSON file store. The decision is made once at
// startup; later runtime errors never trigger re-selection.
//
// The returned *database.DB is nil when running on the file fallback.
func Open(ctx context.Context, cfg *config.Config) (Backend, *database.DB) {
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set, using JSON file storage")
		return openFileFallback(cfg)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Warn().Err(err).Msg("database connection failed, falling back to JSON file storage")
		return openFileFallback(cfg)
	}

	pingCtx, cancel := context.WithTimeout(ctx, config.DBPingTimeout)
	defer cancel()
	if err := db.Ping(pingCtx); err != nil {
		_ = db.Close()
		log.Warn().Err(err).Msg("database ping failed, falling back to JSON file storage")
		return openFileFallback(cfg)
	}

	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		log.Warn().Err(err).Msg("schema setup failed, falling back to JSON file storage")
		return openFileFallback(cfg)
	}

	log.Info().Msg("using relational storage")
	return NewPostgresPool(db), db
}

func openFileFallback(cfg *config.Config) (Backend, *database.DB) {
	fs, err := NewFile(cfg.DataFile)
	if err != nil {
		// A corrupt data file is not fatal either: start empty rather
		// than refusing to track time at all.
		log.Error().Err(err).Str("path", cfg.DataFile).
			Msg("failed to load data file, starting with empty dataset")
		fs = NewEmptyFile(cfg.DataFile)
	}
	log.Info().Str("path", cfg.DataFile).Msg("using JSON file storage")
	return fs, nil
}
