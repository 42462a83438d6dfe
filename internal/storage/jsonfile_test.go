package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/grivyzom/playtimer-server/internal/errors"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file starts empty", func(t *testing.T) {
		f, err := NewFile(filepath.Join(t.TempDir(), "playtimes.json"))
		require.NoError(t, err)

		all, err := f.LoadAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("unknown player reads as zero", func(t *testing.T) {
		f, err := NewFile(filepath.Join(t.TempDir(), "playtimes.json"))
		require.NoError(t, err)

		seconds, err := f.GetPlayTime(ctx, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, int64(0), seconds)
	})

	t.Run("save then get round-trips", func(t *testing.T) {
		f, err := NewFile(filepath.Join(t.TempDir(), "playtimes.json"))
		require.NoError(t, err)

		player := uuid.New()
		require.NoError(t, f.SavePlayTime(ctx, player, 120))

		seconds, err := f.GetPlayTime(ctx, player)
		require.NoError(t, err)
		assert.Equal(t, int64(120), seconds)
	})

	t.Run("save overwrites existing record", func(t *testing.T) {
		f, err := NewFile(filepath.Join(t.TempDir(), "playtimes.json"))
		require.NoError(t, err)

		player := uuid.New()
		require.NoError(t, f.SavePlayTime(ctx, player, 100))
		require.NoError(t, f.SavePlayTime(ctx, player, 250))

		seconds, err := f.GetPlayTime(ctx, player)
		require.NoError(t, err)
		assert.Equal(t, int64(250), seconds)
	})

	t.Run("dataset survives reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "playtimes.json")
		player := uuid.New()

		f, err := NewFile(path)
		require.NoError(t, err)
		require.NoError(t, f.SavePlayTime(ctx, player, 300))
		require.NoError(t, f.Close())

		reopened, err := NewFile(path)
		require.NoError(t, err)
		seconds, err := reopened.GetPlayTime(ctx, player)
		require.NoError(t, err)
		assert.Equal(t, int64(300), seconds)
	})

	t.Run("LoadAll returns a snapshot copy", func(t *testing.T) {
		f, err := NewFile(filepath.Join(t.TempDir(), "playtimes.json"))
		require.NoError(t, err)

		player := uuid.New()
		require.NoError(t, f.SavePlayTime(ctx, player, 10))

		all, err := f.LoadAll(ctx)
		require.NoError(t, err)
		all[player] = 999

		seconds, err := f.GetPlayTime(ctx, player)
		require.NoError(t, err)
		assert.Equal(t, int64(10), seconds)
	})

	t.Run("corrupt file is a storage error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "playtimes.json")
		require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

		_, err := NewFile(path)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeStorage, apperrors.GetCode(err))
	})

	t.Run("non-UUID keys are skipped on load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "playtimes.json")
		player := uuid.New()
		content := `{"` + player.String() + `": 42, "garbage": 7}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		f, err := NewFile(path)
		require.NoError(t, err)
		all, err := f.LoadAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
		assert.Equal(t, int64(42), all[player])
	})

	t.Run("writes after Close are rejected", func(t *testing.T) {
		f, err := NewFile(filepath.Join(t.TempDir(), "playtimes.json"))
		require.NoError(t, err)
		require.NoError(t, f.Close())
		require.NoError(t, f.Close()) // second close is a no-op

		err = f.SavePlayTime(ctx, uuid.New(), 1)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeStorage, apperrors.GetCode(err))
	})
}
