package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/grivyzom/playtimer-server/internal/database"
	apperrors "github.com/grivyzom/playtimer-server/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS playtimes (
    uuid UUID PRIMARY KEY,
    seconds BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS users (
    uuid UUID PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    rank TEXT NOT NULL DEFAULT 'default',
    played_today BIGINT NOT NULL DEFAULT 0,
    last_reset_date DATE NOT NULL DEFAULT CURRENT_DATE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS bonuses (
    id BIGSERIAL PRIMARY KEY,
    uuid UUID NOT NULL,
    kind TEXT NOT NULL CHECK(kind IN ('permanent', 'daily')),
    seconds BIGINT NOT NULL,
    granted_date DATE NOT NULL DEFAULT CURRENT_DATE,
    active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_bonuses_uuid ON bonuses(uuid);

CREATE TABLE IF NOT EXISTS history (
    id BIGSERIAL PRIMARY KEY,
    uuid UUID NOT NULL,
    action TEXT NOT NULL,
    at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_history_uuid ON history(uuid);
`

// EnsureSchema creates the engine's tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *database.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return apperrors.Storage(err)
	}
	return nil
}

// Postgres is the relational Backend implementation.
type Postgres struct {
	db   database.DBTX
	pool *database.DB
}

// NewPostgres builds a store over an existing connection or transaction.
// The caller keeps ownership of the connection.
func NewPostgres(db database.DBTX) *Postgres {
	return &Postgres{db: db}
}

// NewPostgresPool builds a store that owns the connection pool; Close
// releases it.
func NewPostgresPool(db *database.DB) *Postgres {
	return &Postgres{db: db, pool: db}
}

func (p *Postgres) GetPlayTime(ctx context.Context, player uuid.UUID) (int64, error) {
	var seconds int64
	err := p.db.GetContext(ctx, &seconds, `
		SELECT seconds FROM playtimes WHERE uuid = $1
	`, player)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, apperrors.Storage(err)
	}
	return seconds, nil
}

func (p *Postgres) SavePlayTime(ctx context.Context, player uuid.UUID, seconds int64) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO playtimes (uuid, seconds)
		VALUES ($1, $2)
		ON CONFLICT (uuid) DO UPDATE SET seconds = EXCLUDED.seconds
	`, player, seconds)
	if err != nil {
		return apperrors.Storage(err)
	}
	return nil
}

func (p *Postgres) LoadAll(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []struct {
		UUID    uuid.UUID `db:"uuid"`
		Seconds int64     `db:"seconds"`
	}
	if err := p.db.SelectContext(ctx, &rows, `SELECT uuid, seconds FROM playtimes`); err != nil {
		return nil, apperrors.Storage(err)
	}

	result := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		result[row.UUID] = row.Seconds
	}
	return result, nil
}

// Close releases the connection pool when the store owns one. All writes
// go straight to the database, so there is nothing further to flush.
func (p *Postgres) Close() error {
	if p.pool == nil {
		return nil
	}
	if err := p.pool.Close(); err != nil {
		return apperrors.Storage(err)
	}
	return nil
}
