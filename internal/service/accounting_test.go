package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/grivyzom/playtimer-server/internal/errors"
	"github.com/grivyzom/playtimer-server/internal/model"
	"github.com/grivyzom/playtimer-server/internal/repository"
	"github.com/grivyzom/playtimer-server/internal/storage"
)

type accountingFixture struct {
	svc      *AccountingService
	backend  *storage.File
	accounts repository.AccountRepository
	tracker  *SessionTracker
	clock    *clockwork.FakeClock
	dataPath string
}

func newAccountingFixture(t *testing.T) *accountingFixture {
	t.Helper()

	clock := clockwork.NewFakeClock()
	dataPath := filepath.Join(t.TempDir(), "playtimes.json")
	backend := storage.NewEmptyFile(dataPath)
	settings := newSettingsStore(t, limitedGroups)
	accounts := repository.NewMemoryAccountRepository(clock)
	history := repository.NewMemoryHistoryRepository(clock)
	tracker := NewSessionTracker(clock)
	ledger := NewBonusLedger(repository.NewMemoryBonusRepository(), history, settings, clock)
	policy := NewLimitPolicy(settings, accounts, ledger, nil)

	return &accountingFixture{
		svc:      NewAccountingService(backend, accounts, history, tracker, ledger, policy),
		backend:  backend,
		accounts: accounts,
		tracker:  tracker,
		clock:    clock,
		dataPath: dataPath,
	}
}

func (f *accountingFixture) waitForTotal(t *testing.T, player uuid.UUID, want int64) {
	t.Helper()

	require.Eventually(t, func() bool {
		total, err := f.backend.GetPlayTime(context.Background(), player)
		return err == nil && total == want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestAccountingService_SessionLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("session end commits elapsed time", func(t *testing.T) {
		f := newAccountingFixture(t)
		player := uuid.New()

		f.svc.OnSessionStart(ctx, player, "steve", "default")
		assert.Equal(t, 1, f.tracker.Active())

		f.clock.Advance(300 * time.Second)
		f.svc.OnSessionEnd(player)

		f.waitForTotal(t, player, 300)
		played, err := f.accounts.PlayedToday(ctx, player)
		require.NoError(t, err)
		assert.Equal(t, int64(300), played)
	})

	t.Run("commits accumulate across sessions", func(t *testing.T) {
		f := newAccountingFixture(t)
		player := uuid.New()

		f.svc.OnSessionStart(ctx, player, "steve", "default")
		f.clock.Advance(100 * time.Second)
		f.svc.OnSessionEnd(player)
		f.waitForTotal(t, player, 100)

		f.svc.OnSessionStart(ctx, player, "steve", "default")
		f.clock.Advance(50 * time.Second)
		f.svc.OnSessionEnd(player)
		f.waitForTotal(t, player, 150)
	})

	t.Run("session end without a session commits nothing", func(t *testing.T) {
		f := newAccountingFixture(t)
		player := uuid.New()

		f.svc.OnSessionEnd(player)

		require.NoError(t, f.svc.Shutdown(ctx))
		total, err := storage.NewEmptyFile(f.dataPath).GetPlayTime(ctx, player)
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})
}

func TestAccountingService_Checkpoint(t *testing.T) {
	ctx := context.Background()
	f := newAccountingFixture(t)
	player := uuid.New()

	f.svc.OnSessionStart(ctx, player, "steve", "default")
	f.clock.Advance(100 * time.Second)

	f.svc.Checkpoint(ctx)

	total, err := f.backend.GetPlayTime(ctx, player)
	require.NoError(t, err)
	assert.Equal(t, int64(100), total)

	// The session survives the checkpoint and keeps accruing.
	assert.Equal(t, 1, f.tracker.Active())
	f.clock.Advance(40 * time.Second)
	f.svc.OnSessionEnd(player)
	f.waitForTotal(t, player, 140)
}

func TestAccountingService_Shutdown(t *testing.T) {
	ctx := context.Background()
	f := newAccountingFixture(t)
	player := uuid.New()

	f.svc.OnSessionStart(ctx, player, "steve", "default")
	f.clock.Advance(30 * time.Second)

	require.NoError(t, f.svc.Shutdown(ctx))
	assert.Equal(t, 0, f.tracker.Active())

	// The flushed total must be durable on disk.
	reopened, err := storage.NewFile(f.dataPath)
	require.NoError(t, err)
	total, err := reopened.GetPlayTime(ctx, player)
	require.NoError(t, err)
	assert.Equal(t, int64(30), total)
}

func TestAccountingService_Queries(t *testing.T) {
	ctx := context.Background()

	t.Run("accumulated playtime round-trips", func(t *testing.T) {
		f := newAccountingFixture(t)
		player := uuid.New()

		require.NoError(t, f.backend.SavePlayTime(ctx, player, 12345))

		total, err := f.svc.QueryAccumulated(ctx, player)
		require.NoError(t, err)
		assert.Equal(t, int64(12345), total)
	})

	t.Run("remaining reflects the policy", func(t *testing.T) {
		f := newAccountingFixture(t)
		player := uuid.New()

		f.svc.OnSessionStart(ctx, player, "steve", "default")
		f.clock.Advance(600 * time.Second)
		f.svc.OnSessionEnd(player)
		f.waitForTotal(t, player, 600)

		rem, err := f.svc.GetRemaining(ctx, player)
		require.NoError(t, err)
		assert.False(t, rem.Unlimited)
		assert.Equal(t, int64(3000), rem.Seconds)
	})
}

func TestAccountingService_ChangeRank(t *testing.T) {
	ctx := context.Background()

	t.Run("updates the stored rank", func(t *testing.T) {
		f := newAccountingFixture(t)
		player := uuid.New()

		f.svc.OnSessionStart(ctx, player, "steve", "default")
		require.NoError(t, f.svc.ChangeRank(ctx, player, "vip"))

		rank, err := f.accounts.Rank(ctx, player)
		require.NoError(t, err)
		assert.Equal(t, "vip", rank)
	})

	t.Run("rejects a blank rank", func(t *testing.T) {
		f := newAccountingFixture(t)

		err := f.svc.ChangeRank(ctx, uuid.New(), "   ")
		assert.Equal(t, apperrors.ErrCodeMissingRequired, apperrors.GetCode(err))
	})
}

func TestAccountingService_Bonuses(t *testing.T) {
	ctx := context.Background()
	f := newAccountingFixture(t)
	player := uuid.New()

	bonus, err := f.svc.GrantBonus(ctx, player, model.BonusKindPermanent, 600, true)
	require.NoError(t, err)

	rem, err := f.svc.GetRemaining(ctx, player)
	require.NoError(t, err)
	assert.True(t, rem.Unlimited) // unknown rank, bonus cannot limit it

	require.NoError(t, f.svc.RevokeBonus(ctx, bonus.ID))
	err = f.svc.RevokeBonus(ctx, bonus.ID)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
}
