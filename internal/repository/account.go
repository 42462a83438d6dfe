package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/grivyzom/playtimer-server/internal/model"
)

// AccountRepository stores per-player daily accounting state: name, rank,
// seconds played since the last daily reset, and the reset stamp.
type AccountRepository interface {
	// Ensure inserts the account if it does not exist yet; an existing
	// account is left untouched.
	Ensure(ctx context.Context, params model.CreateAccountParams) error
	// FindByUUID returns nil without error when the account is absent.
	FindByUUID(ctx context.Context, id uuid.UUID) (*model.PlayerAccount, error)
	AddPlayedToday(ctx context.Context, id uuid.UUID, seconds int64) error
	// PlayedToday returns 0 for unknown players.
	PlayedToday(ctx context.Context, id uuid.UUID) (int64, error)
	// Rank returns "" for unknown players.
	Rank(ctx context.Context, id uuid.UUID) (string, error)
	SetRank(ctx context.Context, id uuid.UUID, rank string) error
	// ResetToday zeroes played_today and stamps last_reset_date in one
	// atomic update, but only when the stored date predates day. Running
	// it twice on the same day is a no-op the second time.
	ResetToday(ctx context.Context, id uuid.UUID, day time.Time) error
	// ListStale returns the players whose last_reset_date predates day.
	ListStale(ctx context.Context, day time.Time) ([]uuid.UUID, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) AccountRepository
}

type accountRepo struct {
	db sqlxDB
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) WithTx(tx *sqlx.Tx) AccountRepository {
	return &accountRepo{db: tx}
}

func (r *accountRepo) Ensure(ctx context.Context, params model.CreateAccountParams) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (uuid, name, rank, played_today, last_reset_date)
		VALUES ($1, $2, $3, 0, CURRENT_DATE)
		ON CONFLICT (uuid) DO NOTHING
	`, params.UUID, params.Name, params.Rank)
	return err
}

func (r *accountRepo) FindByUUID(ctx context.Context, id uuid.UUID) (*model.PlayerAccount, error) {
	var account model.PlayerAccount
	err := r.db.GetContext(ctx, &account, `
		SELECT * FROM users WHERE uuid = $1
	`, id)
	return HandleNotFound(&account, err)
}

func (r *accountRepo) AddPlayedToday(ctx context.Context, id uuid.UUID, seconds int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			played_today = played_today + $2,
			updated_at = $3
		WHERE uuid = $1
	`, id, seconds, time.Now())
	return err
}

func (r *accountRepo) PlayedToday(ctx context.Context, id uuid.UUID) (int64, error) {
	var seconds int64
	err := r.db.GetContext(ctx, &seconds, `
		SELECT played_today FROM users WHERE uuid = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return seconds, err
}

func (r *accountRepo) Rank(ctx context.Context, id uuid.UUID) (string, error) {
	var rank string
	err := r.db.GetContext(ctx, &rank, `
		SELECT rank FROM users WHERE uuid = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return rank, err
}

func (r *accountRepo) SetRank(ctx context.Context, id uuid.UUID, rank string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET rank = $2, updated_at = $3 WHERE uuid = $1
	`, id, rank, time.Now())
	return err
}

func (r *accountRepo) ResetToday(ctx context.Context, id uuid.UUID, day time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			played_today = 0,
			last_reset_date = $2,
			updated_at = $3
		WHERE uuid = $1 AND last_reset_date < $2
	`, id, model.DateOf(day), time.Now())
	return err
}

func (r *accountRepo) ListStale(ctx context.Context, day time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, `
		SELECT uuid FROM users WHERE last_reset_date < $1
	`, model.DateOf(day))
	if err != nil {
		return nil, err
	}
	return ids, nil
}
