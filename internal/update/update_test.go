package update

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_NoNetworkOrCI(t *testing.T) {
	t.Setenv("CI", "1")
	latest, newer, err := Check("1.0.0", false)
	require.NoError(t, err)
	assert.Empty(t, latest)
	assert.False(t, newer)
}

func TestCheck_NoNetworkFlag(t *testing.T) {
	t.Setenv("CI", "")
	latest, newer, err := Check("1.0.0", true)
	require.NoError(t, err)
	assert.Empty(t, latest)
	assert.False(t, newer)
}

func TestNormalizeAndNewer(t *testing.T) {
	assert.Equal(t, "1.2.3", normalize(" v1.2.3 "))

	tests := []struct {
		latest, current string
		want            bool
	}{
		{"1.2.3", "1.2.3", false},
		{"1.3.0", "1.2.9", true},
		{"1.2.0", "1.2.1", false},
		{"v2.0", "1.9.9", true},
		{"1.0.0", "1.0.0-rc.1", true},
		{"garbage", "1.0.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.latest+">"+tt.current, func(t *testing.T) {
			assert.Equal(t, tt.want, Newer(tt.latest, tt.current))
		})
	}
}

func TestCheck_UsesCacheWhenFresh(t *testing.T) {
	t.Setenv("CI", "")
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	path := filepath.Join(dir, "upsift", cacheFileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	b, _ := json.Marshal(cache{LastChecked: time.Now(), Latest: "1.2.3"})
	require.NoError(t, os.WriteFile(path, b, 0o644))

	latest, newer, err := Check("1.2.2", false)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", latest)
	assert.True(t, newer)
}

func TestCheck_RefreshesStaleCache(t *testing.T) {
	t.Setenv("CI", "")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "upsift-updater", r.Header.Get("User-Agent"))
		_ = json.NewEncoder(w).Encode(map[string]string{"tag_name": "v9.9.9"})
	}))
	defer srv.Close()
	old := LatestURL
	LatestURL = srv.URL
	t.Cleanup(func() { LatestURL = old })

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	latest, newer, err := Check("1.0.0", false)
	require.NoError(t, err)
	assert.Equal(t, "9.9.9", latest)
	assert.True(t, newer)

	c, err := loadCache()
	require.NoError(t, err)
	assert.Equal(t, "9.9.9", c.Latest)
}

func TestLatestVersionOnline_FallsBackToName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "v1.4.0"})
	}))
	defer srv.Close()
	v, err := latestVersionOnline(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "v1.4.0", v)
}

func TestLatestVersionOnline_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	_, err := latestVersionOnline(context.Background(), srv.URL)
	assert.Error(t, err)
}
