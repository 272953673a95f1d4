package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upsift/upsift/internal/types"
)

func TestBaseline_RoundTripAndFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upsift.baseline.json")
	known := sample()
	require.NoError(t, SaveBaseline(path, known))

	base, err := LoadBaseline(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, base.Version)
	assert.Len(t, base.Items, 2)

	fresh := types.Finding{ID: "open_ports", Title: "Found 1 suspicious listening port(s)", Severity: types.SevHigh, Evidence: types.Str("Port 4444")}
	changed := known[0]
	changed.Evidence = types.Str("/etc/sudoers.d/bob: bob ALL=(ALL) NOPASSWD: ALL")

	got := FilterNewFindings(append(append([]types.Finding{}, known...), fresh, changed), base)
	require.Len(t, got, 2)
	assert.Equal(t, "open_ports", got[0].ID)
	assert.Equal(t, "sudo_nopasswd", got[1].ID)
}

func TestLoadBaseline_MissingIsEmpty(t *testing.T) {
	base, err := LoadBaseline(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, base.Items)
}

func TestLoadBaseline_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := LoadBaseline(context.Background(), path)
	assert.Error(t, err)
}

func TestKey_StableAndSensitive(t *testing.T) {
	f := sample()[0]
	assert.Equal(t, Key(f), Key(f))
	g := f
	g.Title = "other"
	assert.NotEqual(t, Key(f), Key(g))
	g = f
	g.Severity = types.SevLow
	assert.Equal(t, Key(f), Key(g), "severity is not part of the fingerprint")
}
