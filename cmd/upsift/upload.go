package upsift

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/upsift/upsift/internal/audit"
	"github.com/upsift/upsift/internal/report"
	"github.com/upsift/upsift/pkg/core"
)

type uploadEnvelope struct {
	Tool     string         `json:"tool"`
	Version  string         `json:"version"`
	Schema   string         `json:"schema_version"`
	RunID    string         `json:"run_id"`
	Host     string         `json:"host,omitempty"`
	Summary  audit.Summary  `json:"summary"`
	Findings []core.Finding `json:"findings"`
}

func uploadFindings(ctx context.Context, url, token string, sum audit.Summary, findings []core.Finding) error {
	if findings == nil {
		findings = []core.Finding{}
	}
	env := uploadEnvelope{
		Tool:     "upsift",
		Version:  version,
		Schema:   report.SchemaVersion,
		RunID:    sum.RunID,
		Host:     sum.Host,
		Summary:  sum,
		Findings: findings,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload status %d", resp.StatusCode)
	}
	return nil
}
