package tui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefs_DefaultsWhenMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	assert.Equal(t, Prefs{}, LoadPrefs())
}

func TestPrefs_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	require.NoError(t, SavePrefs(Prefs{HideInfo: true}))
	info, err := os.Stat(filepath.Join(dir, "upsift", "tui_prefs.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	assert.True(t, LoadPrefs().HideInfo)
}

func TestPrefs_CorruptFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "upsift"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "upsift", "tui_prefs.json"), []byte("{"), 0o600))
	assert.Equal(t, Prefs{}, LoadPrefs())
}
