package core

import (
	"fmt"
	"io"

	"github.com/upsift/upsift/internal/report"
)

// MarshalFindings writes findings as the versioned JSON report array.
func MarshalFindings(w io.Writer, findings []Finding) error {
	return report.WriteJSON(w, findings)
}

// UnmarshalFindings decodes a JSON report, validating it against the schema
// first.
func UnmarshalFindings(r io.Reader) ([]Finding, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read findings: %w", err)
	}
	return report.DecodeJSON(data)
}

// SchemaVersion is the version of the findings JSON schema.
const SchemaVersion = report.SchemaVersion
