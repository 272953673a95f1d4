package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/upsift/upsift/internal/types"
)

// ErrNotFound is returned by LoadLocal and LoadGlobal when no file exists.
var ErrNotFound = errors.New("config not found")

// Formats accepted by the format key and --format flag.
var Formats = []string{"table", "text", "json", "sarif"}

// FileConfig is the on-disk YAML configuration shape for upsift. Nil fields
// are unset and fall through to the next source.
type FileConfig struct {
	Only         []string `yaml:"only,omitempty"`
	Skip         []string `yaml:"skip,omitempty"`
	Format       *string  `yaml:"format,omitempty"`
	NoColor      *bool    `yaml:"no_color,omitempty"`
	MinSeverity  *string  `yaml:"min_severity,omitempty"`
	Workers      *int     `yaml:"workers,omitempty"`
	CheckTimeout *string  `yaml:"check_timeout,omitempty"`
	IgnorePaths  []string `yaml:"ignore_paths,omitempty"`
	Baseline     *string  `yaml:"baseline,omitempty"`
	UploadURL    *string  `yaml:"upload_url,omitempty"`
}

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadLocal searches for a config file in dir.
// It supports .upsift.yml/.yaml and upsift.yml/.yaml.
func LoadLocal(dir string) (FileConfig, error) {
	var cfg FileConfig
	for _, name := range []string{".upsift.yml", ".upsift.yaml", "upsift.yml", "upsift.yaml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return cfg, fmt.Errorf("local: %w", ErrNotFound)
}

// GlobalPath returns the global config location under XDG_CONFIG_HOME or
// ~/.config.
func GlobalPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return "", errors.New("no config dir")
	}
	return filepath.Join(base, "upsift", "config.yml"), nil
}

// LoadGlobal loads the global config file.
func LoadGlobal() (FileConfig, error) {
	var cfg FileConfig
	p, err := GlobalPath()
	if err != nil {
		return cfg, fmt.Errorf("global: %w", ErrNotFound)
	}
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return cfg, fmt.Errorf("global: %w", ErrNotFound)
}

// Merge overlays the set fields of over onto fc.
func (fc FileConfig) Merge(over FileConfig) FileConfig {
	out := fc
	if over.Only != nil {
		out.Only = over.Only
	}
	if over.Skip != nil {
		out.Skip = over.Skip
	}
	if over.Format != nil {
		out.Format = over.Format
	}
	if over.NoColor != nil {
		out.NoColor = over.NoColor
	}
	if over.MinSeverity != nil {
		out.MinSeverity = over.MinSeverity
	}
	if over.Workers != nil {
		out.Workers = over.Workers
	}
	if over.CheckTimeout != nil {
		out.CheckTimeout = over.CheckTimeout
	}
	if over.IgnorePaths != nil {
		out.IgnorePaths = over.IgnorePaths
	}
	if over.Baseline != nil {
		out.Baseline = over.Baseline
	}
	if over.UploadURL != nil {
		out.UploadURL = over.UploadURL
	}
	return out
}

// Validate rejects values the CLI could not act on.
func (fc FileConfig) Validate() error {
	if fc.Format != nil && !slices.Contains(Formats, *fc.Format) {
		return fmt.Errorf("unknown format %q (want one of %v)", *fc.Format, Formats)
	}
	if fc.MinSeverity != nil {
		if _, err := types.ParseSeverity(*fc.MinSeverity); err != nil {
			return fmt.Errorf("min_severity: %w", err)
		}
	}
	if fc.Workers != nil && *fc.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", *fc.Workers)
	}
	if _, err := fc.Timeout(); err != nil {
		return err
	}
	return nil
}

// Timeout parses check_timeout. Unset yields zero, meaning no deadline.
func (fc FileConfig) Timeout() (time.Duration, error) {
	if fc.CheckTimeout == nil || *fc.CheckTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(*fc.CheckTimeout)
	if err != nil {
		return 0, fmt.Errorf("check_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("check_timeout must not be negative, got %s", d)
	}
	return d, nil
}
