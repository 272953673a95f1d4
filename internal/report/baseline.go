package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/upsift/upsift/internal/types"
)

// DefaultBaselineFile is the baseline path used when none is configured.
const DefaultBaselineFile = "upsift.baseline.json"

// Baseline is a set of finding fingerprints accepted as known.
type Baseline struct {
	Version string          `json:"version"`
	Items   map[string]bool `json:"items"`
}

// LoadBaseline reads a baseline file. A missing file is an empty baseline.
func LoadBaseline(ctx context.Context, path string) (Baseline, error) {
	empty := Baseline{Version: SchemaVersion, Items: map[string]bool{}}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return empty, nil
	}
	r := retry.New[Baseline](loadRetry)
	return r.Do(ctx, func(ctx context.Context) (Baseline, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return empty, fmt.Errorf("read baseline: %w", err)
		}
		b := Baseline{}
		if err := json.Unmarshal(data, &b); err != nil {
			return empty, fmt.Errorf("parse baseline %s: %w", path, err)
		}
		if b.Items == nil {
			b.Items = map[string]bool{}
		}
		return b, nil
	})
}

func SaveBaseline(path string, findings []types.Finding) error {
	b := Baseline{Version: SchemaVersion, Items: map[string]bool{}}
	for _, f := range findings {
		b.Items[Key(f)] = true
	}
	buf, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}

func FilterNewFindings(findings []types.Finding, base Baseline) []types.Finding {
	var out []types.Finding
	for _, f := range findings {
		if !base.Items[Key(f)] {
			out = append(out, f)
		}
	}
	return out
}

// Key fingerprints a finding by check id, title and evidence.
func Key(f types.Finding) string {
	d := xxhash.New()
	_, _ = d.WriteString(f.ID)
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(f.Title)
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(f.EvidenceText())
	return strconv.FormatUint(d.Sum64(), 16)
}
