package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/grivyzom/playtimer-server/internal/model"
)

// BonusRepository stores time grants. Grants are appended without
// merging; multiple bonuses of the same kind and date may coexist.
type BonusRepository interface {
	Insert(ctx context.Context, params model.GrantBonusParams) (*model.Bonus, error)
	// Delete removes a bonus by id, returning the removed bonus or nil
	// when the id did not exist.
	Delete(ctx context.Context, id int64) (*model.Bonus, error)
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]model.Bonus, error)
	// ActiveTotal sums the seconds of every bonus contributing to the
	// owner's allowance on the given day: permanent-and-active plus
	// daily-granted-that-day. Always computed fresh, never cached.
	ActiveTotal(ctx context.Context, owner uuid.UUID, day time.Time) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) BonusRepository
}

type bonusRepo struct {
	db sqlxDB
}

func NewBonusRepository(db *sqlx.DB) BonusRepository {
	return &bonusRepo{db: db}
}

func (r *bonusRepo) WithTx(tx *sqlx.Tx) BonusRepository {
	return &bonusRepo{db: tx}
}

func (r *bonusRepo) Insert(ctx context.Context, params model.GrantBonusParams) (*model.Bonus, error) {
	var bonus model.Bonus
	err := r.db.GetContext(ctx, &bonus, `
		INSERT INTO bonuses (uuid, kind, seconds, granted_date, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.OwnerUUID, params.Kind, params.Seconds, model.DateOf(params.GrantedDate), params.Active)
	if err != nil {
		return nil, err
	}
	return &bonus, nil
}

func (r *bonusRepo) Delete(ctx context.Context, id int64) (*model.Bonus, error) {
	var bonus model.Bonus
	err := r.db.GetContext(ctx, &bonus, `
		DELETE FROM bonuses WHERE id = $1 RETURNING *
	`, id)
	return HandleNotFound(&bonus, err)
}

func (r *bonusRepo) ListByOwner(ctx context.Context, owner uuid.UUID) ([]model.Bonus, error) {
	var bonuses []model.Bonus
	err := r.db.SelectContext(ctx, &bonuses, `
		SELECT * FROM bonuses WHERE uuid = $1 ORDER BY id
	`, owner)
	if err != nil {
		return nil, err
	}
	return bonuses, nil
}

func (r *bonusRepo) ActiveTotal(ctx context.Context, owner uuid.UUID, day time.Time) (int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(seconds), 0) FROM bonuses
		WHERE uuid = $1
		  AND ((kind = 'permanent' AND active)
		   OR  (kind = 'daily' AND granted_date = $2))
	`, owner, model.DateOf(day))
	return total, err
}
