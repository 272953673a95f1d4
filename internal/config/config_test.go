package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return p
}

func TestLoadFile_Basic(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "upsift.yaml", `only: [sudo_nopasswd, kernel_version]
workers: 4
check_timeout: 45s
min_severity: medium
ignore_paths:
  - /var/lib/docker/
`)
	cfg, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"sudo_nopasswd", "kernel_version"}, cfg.Only)
	require.NotNil(t, cfg.Workers)
	assert.Equal(t, 4, *cfg.Workers)
	d, err := cfg.Timeout()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, d)
	assert.Equal(t, []string{"/var/lib/docker/"}, cfg.IgnorePaths)
	assert.Nil(t, cfg.Format)
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"format":   "format: xml\n",
		"severity": "min_severity: urgent\n",
		"timeout":  "check_timeout: soon\n",
		"workers":  "workers: -1\n",
		"yaml":     "only: [a\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(writeTemp(t, dir, name+".yml", body))
			assert.Error(t, err)
		})
	}
}

func TestLoadLocal_PrefersDotfile(t *testing.T) {
	dir := t.TempDir()
	// place both, expect the dotfile to be picked first by search order
	writeTemp(t, dir, "upsift.yaml", "workers: 1\n")
	writeTemp(t, dir, ".upsift.yaml", "workers: 7\n")
	cfg, err := LoadLocal(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg.Workers)
	assert.Equal(t, 7, *cfg.Workers)
}

func TestLoadLocal_NoConfig(t *testing.T) {
	_, err := LoadLocal(t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadGlobal_XDG_Config(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "upsift")
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "config.yml"), []byte("workers: 9\n"), 0o644))
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := LoadGlobal()
	require.NoError(t, err)
	require.NotNil(t, cfg.Workers)
	assert.Equal(t, 9, *cfg.Workers)
}

func TestLoadGlobal_NoConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	_, err := LoadGlobal()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMerge_LocalOverridesGlobal(t *testing.T) {
	four, json := 4, "json"
	global := FileConfig{Workers: &four, Skip: []string{"open_ports"}}
	local := FileConfig{Format: &json, Skip: []string{}}

	got := global.Merge(local)
	require.NotNil(t, got.Workers)
	assert.Equal(t, 4, *got.Workers)
	assert.Equal(t, "json", *got.Format)
	assert.Equal(t, []string{}, got.Skip, "an explicit empty list still overrides")
}
