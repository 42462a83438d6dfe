package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/grivyzom/playtimer-server/internal/errors"
	"github.com/grivyzom/playtimer-server/internal/model"
	"github.com/grivyzom/playtimer-server/internal/repository"
)

func newTestLedger(t *testing.T, yaml string) (*BonusLedger, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	ledger := NewBonusLedger(
		repository.NewMemoryBonusRepository(),
		repository.NewMemoryHistoryRepository(clock),
		newSettingsStore(t, yaml),
		clock,
	)
	return ledger, clock
}

func TestBonusLedger_Grant(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non-positive seconds", func(t *testing.T) {
		ledger, _ := newTestLedger(t, "")

		_, err := ledger.Grant(ctx, uuid.New(), model.BonusKindPermanent, 0, true)
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))

		_, err = ledger.Grant(ctx, uuid.New(), model.BonusKindPermanent, -60, true)
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		ledger, _ := newTestLedger(t, "")

		_, err := ledger.Grant(ctx, uuid.New(), model.BonusKind("weekly"), 60, true)
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
	})

	t.Run("rejects disabled kinds", func(t *testing.T) {
		ledger, _ := newTestLedger(t, `
bonuses:
  enable_daily_bonus: false
  enable_permanent_bonus: false
`)

		_, err := ledger.Grant(ctx, uuid.New(), model.BonusKindDaily, 60, true)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))

		_, err = ledger.Grant(ctx, uuid.New(), model.BonusKindPermanent, 60, true)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})

	t.Run("caps daily bonuses at the configured maximum", func(t *testing.T) {
		ledger, _ := newTestLedger(t, `
bonuses:
  max_daily_bonus: 600
`)
		owner := uuid.New()

		_, err := ledger.Grant(ctx, owner, model.BonusKindDaily, 601, true)
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))

		bonus, err := ledger.Grant(ctx, owner, model.BonusKindDaily, 600, true)
		require.NoError(t, err)
		assert.Equal(t, int64(600), bonus.Seconds)
	})

	t.Run("grants never merge", func(t *testing.T) {
		ledger, _ := newTestLedger(t, "")
		owner := uuid.New()

		first, err := ledger.Grant(ctx, owner, model.BonusKindPermanent, 100, true)
		require.NoError(t, err)
		second, err := ledger.Grant(ctx, owner, model.BonusKindPermanent, 200, true)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)

		bonuses, err := ledger.List(ctx, owner)
		require.NoError(t, err)
		assert.Len(t, bonuses, 2)

		total, err := ledger.ActiveTotal(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, int64(300), total)
	})
}

func TestBonusLedger_ActiveTotal(t *testing.T) {
	ctx := context.Background()

	t.Run("daily bonuses age out at the date change", func(t *testing.T) {
		ledger, clock := newTestLedger(t, "")
		owner := uuid.New()

		_, err := ledger.Grant(ctx, owner, model.BonusKindDaily, 300, true)
		require.NoError(t, err)
		_, err = ledger.Grant(ctx, owner, model.BonusKindPermanent, 100, true)
		require.NoError(t, err)

		total, err := ledger.ActiveTotal(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, int64(400), total)

		clock.Advance(24 * time.Hour)

		total, err = ledger.ActiveTotal(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, int64(100), total)
	})

	t.Run("inactive permanent bonuses do not count", func(t *testing.T) {
		ledger, _ := newTestLedger(t, "")
		owner := uuid.New()

		_, err := ledger.Grant(ctx, owner, model.BonusKindPermanent, 500, false)
		require.NoError(t, err)

		total, err := ledger.ActiveTotal(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})
}

func TestBonusLedger_Revoke(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the bonus from the active total", func(t *testing.T) {
		ledger, _ := newTestLedger(t, "")
		owner := uuid.New()

		bonus, err := ledger.Grant(ctx, owner, model.BonusKindPermanent, 250, true)
		require.NoError(t, err)

		require.NoError(t, ledger.Revoke(ctx, bonus.ID))

		total, err := ledger.ActiveTotal(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		ledger, _ := newTestLedger(t, "")

		err := ledger.Revoke(ctx, 9999)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})
}
