package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/upsift/upsift/internal/types"
)

var loadRetry = retry.Config{
	MaxAttempts:   3,
	InitialDelay:  10 * time.Millisecond,
	BackoffPolicy: retry.BackoffExponential,
}

// WriteJSON writes findings as an indented JSON array. A nil slice is written
// as [] so the output always matches the schema.
func WriteJSON(w io.Writer, findings []types.Finding) error {
	if findings == nil {
		findings = []types.Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}

// DecodeJSON validates data against the findings schema and decodes it.
func DecodeJSON(data []byte) ([]types.Finding, error) {
	if err := ValidateJSON(data); err != nil {
		return nil, err
	}
	var out []types.Finding
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return out, nil
}

// SaveReport writes findings to path as a JSON report.
func SaveReport(path string, findings []types.Finding) error {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, findings); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// LoadReport reads and validates a saved JSON report. Reads are retried to
// ride out a report that is still being written by another process.
func LoadReport(ctx context.Context, path string) ([]types.Finding, error) {
	r := retry.New[[]types.Finding](loadRetry)
	return r.Do(ctx, func(ctx context.Context) ([]types.Finding, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read report: %w", err)
		}
		return DecodeJSON(data)
	})
}
