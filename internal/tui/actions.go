package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/upsift/upsift/internal/report"
	"github.com/upsift/upsift/internal/types"
)

func clipboardWrite(s string) error { return clipboard.WriteAll(s) }

func status(format string, args ...any) tea.Cmd {
	msg := statusMsg(fmt.Sprintf(format, args...))
	return func() tea.Msg { return msg }
}

// copyRemediation copies the selected finding's remediation text.
func (m Model) copyRemediation() tea.Cmd {
	f := m.selected()
	if f == nil {
		return status("No finding selected")
	}
	if f.Remediation == nil || *f.Remediation == "" {
		return status("%s has no remediation", f.ID)
	}
	if err := m.copyToClipboard(*f.Remediation); err != nil {
		return status("Clipboard error: %v", err)
	}
	return status("Copied remediation for %s", f.ID)
}

// copyFinding copies a plain-text rendering of the selected finding.
func (m Model) copyFinding() tea.Cmd {
	f := m.selected()
	if f == nil {
		return status("No finding selected")
	}
	if err := m.copyToClipboard(findingText(*f)); err != nil {
		return status("Clipboard error: %v", err)
	}
	return status("Copied finding details to clipboard")
}

func findingText(f types.Finding) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Check: %s\n", f.ID)
	fmt.Fprintf(&sb, "Severity: %s\n", f.Severity)
	fmt.Fprintf(&sb, "Title: %s\n", f.Title)
	if f.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", f.Description)
	}
	if ev := f.EvidenceText(); ev != "" {
		fmt.Fprintf(&sb, "\nEvidence:\n%s\n", ev)
	}
	if f.Remediation != nil {
		fmt.Fprintf(&sb, "\nRemediation: %s\n", *f.Remediation)
	}
	for _, r := range f.References {
		fmt.Fprintf(&sb, "Ref: %s\n", r)
	}
	return sb.String()
}

// addToBaseline records the selected finding's fingerprint in the baseline
// file and marks it in the table.
func (m *Model) addToBaseline() tea.Cmd {
	f := m.selected()
	if f == nil {
		return status("No finding selected")
	}
	path := m.baselinePath
	if path == "" {
		path = report.DefaultBaselineFile
	}
	base, err := report.LoadBaseline(context.Background(), path)
	if err != nil {
		return status("Error loading baseline: %v", err)
	}
	key := report.Key(*f)
	base.Items[key] = true
	buf, err := json.MarshalIndent(base, "", "  ")
	if err != nil {
		return status("Error marshaling baseline: %v", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return status("Error writing baseline: %v", err)
	}
	m.baselined[key] = true
	m.applyFilters()
	return status("Added %s to %s", f.ID, path)
}

// export writes the visible findings to upsift-export.<format> in the
// working directory.
func (m Model) export(format string) tea.Cmd {
	if len(m.visible) == 0 {
		return status("Nothing to export")
	}
	var buf bytes.Buffer
	var err error
	switch format {
	case "csv":
		err = report.WriteCSV(&buf, m.visible)
	default:
		format = "json"
		err = report.WriteJSON(&buf, m.visible)
	}
	if err != nil {
		return status("Export failed: %v", err)
	}
	name := "upsift-export." + format
	if err := os.WriteFile(name, buf.Bytes(), 0o600); err != nil {
		return status("Export failed: %v", err)
	}
	return status("Exported %d finding(s) to %s", len(m.visible), name)
}
