package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/grivyzom/playtimer-server/internal/model"
)

// HistoryRepository is an append-only audit log. The engine never
// mutates or deletes entries.
type HistoryRepository interface {
	Append(ctx context.Context, owner uuid.UUID, action string) error
	// ListByOwner returns a player's entries, newest first.
	ListByOwner(ctx context.Context, owner uuid.UUID, limit int) ([]model.HistoryEntry, error)
}

type historyRepo struct {
	db sqlxDB
}

func NewHistoryRepository(db *sqlx.DB) HistoryRepository {
	return &historyRepo{db: db}
}

func (r *historyRepo) Append(ctx context.Context, owner uuid.UUID, action string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO history (uuid, action, at) VALUES ($1, $2, $3)
	`, owner, action, time.Now())
	return err
}

func (r *historyRepo) ListByOwner(ctx context.Context, owner uuid.UUID, limit int) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM history WHERE uuid = $1 ORDER BY at DESC, id DESC LIMIT $2
	`, owner, limit)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
