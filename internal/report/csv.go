package report

import (
	"encoding/csv"
	"io"

	"github.com/upsift/upsift/internal/types"
)

// CSVColumns is the header written by WriteCSV.
var CSVColumns = []string{"id", "severity", "title", "evidence", "remediation"}

// WriteCSV flattens findings into the columns spreadsheet users expect.
// Absent evidence or remediation become empty cells.
func WriteCSV(w io.Writer, findings []types.Finding) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVColumns); err != nil {
		return err
	}
	for _, f := range findings {
		row := []string{f.ID, string(f.Severity), f.Title, f.EvidenceText(), f.RemediationText()}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
