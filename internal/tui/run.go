package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/upsift/upsift/internal/types"
)

// Run starts the full-screen findings browser and blocks until it exits.
func Run(findings []types.Finding, opts Options) error {
	m := NewModel(findings, opts)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
