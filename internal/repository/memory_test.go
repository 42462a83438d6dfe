package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grivyzom/playtimer-server/internal/model"
)

func TestMemoryAccountRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Ensure creates once and preserves existing state", func(t *testing.T) {
		repo := NewMemoryAccountRepository(clockwork.NewFakeClock())
		player := uuid.New()

		require.NoError(t, repo.Ensure(ctx, model.CreateAccountParams{UUID: player, Name: "steve", Rank: "vip"}))
		require.NoError(t, repo.AddPlayedToday(ctx, player, 60))
		require.NoError(t, repo.Ensure(ctx, model.CreateAccountParams{UUID: player, Name: "steve", Rank: "default"}))

		played, err := repo.PlayedToday(ctx, player)
		require.NoError(t, err)
		assert.Equal(t, int64(60), played)

		rank, err := repo.Rank(ctx, player)
		require.NoError(t, err)
		assert.Equal(t, "vip", rank)
	})

	t.Run("unknown player reads as zero and empty rank", func(t *testing.T) {
		repo := NewMemoryAccountRepository(clockwork.NewFakeClock())

		played, err := repo.PlayedToday(ctx, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, int64(0), played)

		rank, err := repo.Rank(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, rank)
	})

	t.Run("SetRank updates the account", func(t *testing.T) {
		repo := NewMemoryAccountRepository(clockwork.NewFakeClock())
		player := uuid.New()
		require.NoError(t, repo.Ensure(ctx, model.CreateAccountParams{UUID: player, Rank: "default"}))

		require.NoError(t, repo.SetRank(ctx, player, "vip"))
		rank, err := repo.Rank(ctx, player)
		require.NoError(t, err)
		assert.Equal(t, "vip", rank)
	})

	t.Run("ResetToday zeroes only stale accounts", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
		repo := NewMemoryAccountRepository(clock)
		player := uuid.New()
		require.NoError(t, repo.Ensure(ctx, model.CreateAccountParams{UUID: player, Rank: "vip"}))
		require.NoError(t, repo.AddPlayedToday(ctx, player, 500))

		// Same-day reset is a no-op.
		require.NoError(t, repo.ResetToday(ctx, player, clock.Now()))
		played, err := repo.PlayedToday(ctx, player)
		require.NoError(t, err)
		assert.Equal(t, int64(500), played)

		// Next day the account is stale and resets once.
		tomorrow := clock.Now().Add(24 * time.Hour)
		require.NoError(t, repo.ResetToday(ctx, player, tomorrow))
		played, err = repo.PlayedToday(ctx, player)
		require.NoError(t, err)
		assert.Equal(t, int64(0), played)

		account, err := repo.FindByUUID(ctx, player)
		require.NoError(t, err)
		firstStamp := account.LastResetDate

		// Second run on the same day must not move the stamp again.
		require.NoError(t, repo.AddPlayedToday(ctx, player, 30))
		require.NoError(t, repo.ResetToday(ctx, player, tomorrow))
		account, err = repo.FindByUUID(ctx, player)
		require.NoError(t, err)
		assert.Equal(t, firstStamp, account.LastResetDate)
		assert.Equal(t, int64(30), account.PlayedTodaySeconds)
	})

	t.Run("ListStale reports accounts behind the given day", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
		repo := NewMemoryAccountRepository(clock)
		stale := uuid.New()
		fresh := uuid.New()
		require.NoError(t, repo.Ensure(ctx, model.CreateAccountParams{UUID: stale}))

		tomorrow := clock.Now().Add(24 * time.Hour)
		clock.Advance(24 * time.Hour)
		require.NoError(t, repo.Ensure(ctx, model.CreateAccountParams{UUID: fresh}))

		ids, err := repo.ListStale(ctx, tomorrow)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{stale}, ids)
	})
}

func TestMemoryBonusRepository(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("grants append without merging", func(t *testing.T) {
		repo := NewMemoryBonusRepository()
		owner := uuid.New()

		first, err := repo.Insert(ctx, model.GrantBonusParams{
			OwnerUUID: owner, Kind: model.BonusKindDaily, Seconds: 600, GrantedDate: day, Active: true,
		})
		require.NoError(t, err)
		second, err := repo.Insert(ctx, model.GrantBonusParams{
			OwnerUUID: owner, Kind: model.BonusKindDaily, Seconds: 600, GrantedDate: day, Active: true,
		})
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)

		bonuses, err := repo.ListByOwner(ctx, owner)
		require.NoError(t, err)
		assert.Len(t, bonuses, 2)
	})

	t.Run("ActiveTotal follows kind and date rules", func(t *testing.T) {
		repo := NewMemoryBonusRepository()
		owner := uuid.New()
		yesterday := day.Add(-24 * time.Hour)

		mustInsert := func(kind model.BonusKind, seconds int64, granted time.Time, active bool) {
			t.Helper()
			_, err := repo.Insert(ctx, model.GrantBonusParams{
				OwnerUUID: owner, Kind: kind, Seconds: seconds, GrantedDate: granted, Active: active,
			})
			require.NoError(t, err)
		}

		mustInsert(model.BonusKindPermanent, 100, yesterday, true)
		mustInsert(model.BonusKindPermanent, 50, yesterday, false) // inactive, ignored
		mustInsert(model.BonusKindDaily, 200, day, true)
		mustInsert(model.BonusKindDaily, 400, yesterday, true) // granted yesterday, ignored

		total, err := repo.ActiveTotal(ctx, owner, day)
		require.NoError(t, err)
		assert.Equal(t, int64(300), total)
	})

	t.Run("Delete returns the removed bonus or nil", func(t *testing.T) {
		repo := NewMemoryBonusRepository()
		owner := uuid.New()

		bonus, err := repo.Insert(ctx, model.GrantBonusParams{
			OwnerUUID: owner, Kind: model.BonusKindPermanent, Seconds: 60, GrantedDate: day, Active: true,
		})
		require.NoError(t, err)

		deleted, err := repo.Delete(ctx, bonus.ID)
		require.NoError(t, err)
		require.NotNil(t, deleted)
		assert.Equal(t, owner, deleted.OwnerUUID)

		deleted, err = repo.Delete(ctx, bonus.ID)
		require.NoError(t, err)
		assert.Nil(t, deleted)
	})
}

func TestMemoryHistoryRepository(t *testing.T) {
	t.Run("append never fails", func(t *testing.T) {
		repo := NewMemoryHistoryRepository(clockwork.NewFakeClock())
		require.NoError(t, repo.Append(context.Background(), uuid.New(), "bonus_granted"))
	})

	t.Run("list returns newest first, scoped to the owner", func(t *testing.T) {
		ctx := context.Background()
		repo := NewMemoryHistoryRepository(clockwork.NewFakeClock())
		owner, other := uuid.New(), uuid.New()

		require.NoError(t, repo.Append(ctx, owner, "session_commit:100"))
		require.NoError(t, repo.Append(ctx, other, "daily_reset"))
		require.NoError(t, repo.Append(ctx, owner, "rank_changed:vip"))

		entries, err := repo.ListByOwner(ctx, owner, 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "rank_changed:vip", entries[0].Action)
		assert.Equal(t, "session_commit:100", entries[1].Action)
	})

	t.Run("list honors the limit", func(t *testing.T) {
		ctx := context.Background()
		repo := NewMemoryHistoryRepository(clockwork.NewFakeClock())
		owner := uuid.New()

		for i := 0; i < 5; i++ {
			require.NoError(t, repo.Append(ctx, owner, "session_commit:1"))
		}

		entries, err := repo.ListByOwner(ctx, owner, 3)
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})
}
