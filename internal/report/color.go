package report

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/upsift/upsift/internal/types"
)

var severityStyles = map[types.Severity]lipgloss.Style{
	types.SevCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9")).Bold(true),
	types.SevHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	types.SevMed:      lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	types.SevLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	types.SevInfo:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
}

// SeverityStyle returns the colour style used for s.
func SeverityStyle(s types.Severity) lipgloss.Style {
	if st, ok := severityStyles[s]; ok {
		return st
	}
	return lipgloss.NewStyle()
}

func sevLabel(s types.Severity, noColor bool) string {
	label := strings.ToUpper(string(s))
	if noColor {
		return label
	}
	return SeverityStyle(s).Render(label)
}

// ColorEnabled reports whether output to f should be coloured: f must be a
// terminal and NO_COLOR must be unset.
func ColorEnabled(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return f != nil && term.IsTerminal(int(f.Fd()))
}
