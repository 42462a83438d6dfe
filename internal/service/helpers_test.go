package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grivyzom/playtimer-server/internal/config"
)

// newSettingsStore writes a throwaway settings file and loads it.
func newSettingsStore(t *testing.T, yaml string) *config.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "playtimer.yml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	store, err := config.NewStore(path)
	require.NoError(t, err)
	return store
}
