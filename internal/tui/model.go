package tui

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/upsift/upsift/internal/report"
	"github.com/upsift/upsift/internal/types"
)

var (
	paneBorderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("7"))

	emptyTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Align(lipgloss.Center)

	popupStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(1, 4)
)

// severityText returns plain text for severity (ANSI codes break table truncation).
func severityText(s types.Severity) string {
	if s == types.SevMed {
		return "MED"
	}
	return strings.ToUpper(string(s))
}

// severityCycle is the order the "s" key steps through; "" means no filter.
var severityCycle = []types.Severity{"", types.SevCritical, types.SevHigh, types.SevMed, types.SevLow, types.SevInfo}

func nextSeverity(cur types.Severity) types.Severity {
	for i, s := range severityCycle {
		if s == cur {
			return severityCycle[(i+1)%len(severityCycle)]
		}
	}
	return ""
}

// Model is the bubbletea state of the findings browser.
type Model struct {
	table    table.Model
	viewport viewport.Model
	spinner  spinner.Model

	findings        []types.Finding
	visible         []types.Finding // findings after filters and sort
	baselined       map[string]bool // report.Key values present in the baseline
	baselinePath    string
	rescanFunc      func() ([]types.Finding, error)
	lastRun         time.Time
	prefs           Prefs
	savePrefs       func(Prefs) error
	copyToClipboard func(string) error

	ready, quitting, scanning, showHelp bool
	width, height                       int
	statusMessage                       string
	statusUntil                         time.Time

	searchMode     bool
	searchInput    textinput.Model
	searchQuery    string
	severityFilter types.Severity
	sortBySeverity bool
}

// Options configures a Model beyond its initial findings.
type Options struct {
	// Rescan re-runs the audit for the "r" key. Nil disables rescans.
	Rescan func() ([]types.Finding, error)
	// Baseline marks known findings; BaselinePath is where "b" records new ones.
	Baseline     report.Baseline
	BaselinePath string
	Prefs        Prefs
}

type (
	findingsMsg []types.Finding
	statusMsg   string
	scanErrMsg  struct{ err error }
)

// NewModel initializes a findings browser.
func NewModel(findings []types.Finding, opts Options) Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Sev", Width: 10},
			{Title: "Check", Width: 18},
			{Title: "Title", Width: 60},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("15")).
		Bold(true).
		Padding(0, 1)
	s.Selected = lipgloss.NewStyle().
		Foreground(lipgloss.Color("232")).
		Background(lipgloss.Color("208")).
		Bold(true)
	s.Cell = lipgloss.NewStyle().Padding(0, 1)
	t.SetStyles(s)

	// Line spinner avoids Braille characters that render poorly on some terminals
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	ti := textinput.New()
	ti.Placeholder = "Search id, title or evidence..."
	ti.CharLimit = 100
	ti.Width = 50
	ti.Prompt = "/ "

	items := opts.Baseline.Items
	if items == nil {
		items = map[string]bool{}
	}
	m := Model{
		table:           t,
		viewport:        viewport.New(80, 10),
		spinner:         sp,
		findings:        findings,
		baselined:       items,
		baselinePath:    opts.BaselinePath,
		rescanFunc:      opts.Rescan,
		lastRun:         time.Now(),
		prefs:           opts.Prefs,
		savePrefs:       SavePrefs,
		copyToClipboard: clipboardWrite,
		searchInput:     ti,
		statusMessage:   defaultStatus,
	}
	m.applyFilters()
	return m
}

func (m Model) Init() tea.Cmd { return nil }

func (m *Model) isBaselined(f types.Finding) bool {
	return m.baselined[report.Key(f)]
}

// applyFilters rebuilds the visible list from findings, the search query,
// the severity filter and the hide-info preference.
func (m *Model) applyFilters() {
	query := strings.ToLower(m.searchQuery)
	var out []types.Finding
	for _, f := range m.findings {
		if m.severityFilter != "" && f.Severity != m.severityFilter {
			continue
		}
		if m.prefs.HideInfo && m.severityFilter != types.SevInfo && f.Severity == types.SevInfo {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(f.ID), query) &&
			!strings.Contains(strings.ToLower(f.Title), query) &&
			!strings.Contains(strings.ToLower(f.EvidenceText()), query) {
			continue
		}
		out = append(out, f)
	}
	if m.sortBySeverity {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Severity.Rank() > out[j].Severity.Rank() })
	}
	m.visible = out

	rows := make([]table.Row, len(out))
	for i, f := range out {
		sev := severityText(f.Severity)
		if m.isBaselined(f) {
			sev = "(b) " + sev
		}
		rows[i] = table.Row{sev, f.ID, f.Title}
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(out) {
		m.table.SetCursor(0)
	}
	m.updateDetail()
}

func (m *Model) clearFilters() {
	m.searchQuery = ""
	m.searchInput.SetValue("")
	m.severityFilter = ""
	m.applyFilters()
}

func (m *Model) selected() *types.Finding {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.visible) {
		return nil
	}
	return &m.visible[i]
}

func (m *Model) updateDetail() {
	f := m.selected()
	if f == nil {
		m.viewport.SetContent("")
		return
	}
	m.viewport.SetContent(renderDetail(*f, m.isBaselined(*f)))
	m.viewport.GotoTop()
}

func renderDetail(f types.Finding, baselined bool) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(f.Title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s   %s %s", keyStyle.Render("Check:"), f.ID,
		keyStyle.Render("Severity:"), report.SeverityStyle(f.Severity).Render(severityText(f.Severity)))
	if baselined {
		b.WriteString("   (baselined)")
	}
	b.WriteString("\n\n")
	if f.Description != "" {
		b.WriteString(f.Description)
		b.WriteString("\n\n")
	}
	if ev := f.EvidenceText(); ev != "" {
		b.WriteString(keyStyle.Render("Evidence:"))
		b.WriteString("\n")
		for _, l := range strings.Split(ev, "\n") {
			b.WriteString("  " + l + "\n")
		}
		b.WriteString("\n")
	}
	if f.Remediation != nil {
		b.WriteString(keyStyle.Render("Remediation:"))
		b.WriteString("\n")
		b.WriteString(highlightShell(*f.Remediation))
		b.WriteString("\n")
	}
	for _, r := range f.References {
		b.WriteString(keyStyle.Render("Ref: ") + r + "\n")
	}
	return b.String()
}

// highlightShell colours text as a shell snippet. Remediations mix prose and
// quoted commands, so an error just returns the input.
func highlightShell(code string) string {
	lexer := lexers.Get("bash")
	if lexer == nil {
		return code
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func (m *Model) setStatus(msg string) {
	m.statusMessage = msg
	m.statusUntil = time.Now().Add(4 * time.Second)
}

func (m *Model) rescan() tea.Cmd {
	fn := m.rescanFunc
	return func() tea.Msg {
		if fn == nil {
			return statusMsg("Rerun not available")
		}
		findings, err := fn()
		if err != nil {
			return scanErrMsg{err}
		}
		return findingsMsg(findings)
	}
}

func (m *Model) resize() {
	tableHeight := m.height/2 - 4
	if tableHeight < 3 {
		tableHeight = 3
	}
	m.table.SetHeight(tableHeight)
	m.table.SetWidth(m.width - 2)

	titleWidth := m.width - 10 - 18 - 12
	if titleWidth < 20 {
		titleWidth = 20
	}
	m.table.SetColumns([]table.Column{
		{Title: "Sev", Width: 10},
		{Title: "Check", Width: 18},
		{Title: "Title", Width: titleWidth},
	})

	m.viewport.Width = m.width - 2
	m.viewport.Height = m.height - tableHeight - 8
	if m.viewport.Height < 3 {
		m.viewport.Height = 3
	}
	m.updateDetail()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case spinner.TickMsg:
		if !m.scanning {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case findingsMsg:
		m.scanning = false
		m.findings = msg
		m.lastRun = time.Now()
		m.applyFilters()
		m.setStatus(fmt.Sprintf("Audit complete: %d finding(s)", len(msg)))
		return m, nil

	case scanErrMsg:
		m.scanning = false
		m.setStatus(fmt.Sprintf("Audit error: %v", msg.err))
		return m, nil

	case statusMsg:
		m.setStatus(string(msg))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.scanning {
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}
	if m.searchMode {
		switch msg.String() {
		case "enter":
			m.searchMode = false
			m.searchInput.Blur()
		case "esc":
			m.searchMode = false
			m.searchInput.Blur()
			m.searchQuery = ""
			m.searchInput.SetValue("")
			m.applyFilters()
		default:
			m.searchInput, cmd = m.searchInput.Update(msg)
			m.searchQuery = m.searchInput.Value()
			m.applyFilters()
		}
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "?":
		m.showHelp = true
	case "/":
		m.searchMode = true
		return m, m.searchInput.Focus()
	case "esc":
		m.clearFilters()
	case "s":
		m.severityFilter = nextSeverity(m.severityFilter)
		m.applyFilters()
	case "S":
		m.sortBySeverity = !m.sortBySeverity
		m.applyFilters()
	case "H":
		m.prefs.HideInfo = !m.prefs.HideInfo
		m.applyFilters()
		if m.savePrefs != nil {
			if err := m.savePrefs(m.prefs); err != nil {
				m.setStatus(fmt.Sprintf("Could not save preferences: %v", err))
			}
		}
	case "r":
		if m.rescanFunc == nil {
			m.setStatus("Rerun not available")
			return m, nil
		}
		m.scanning = true
		return m, tea.Batch(m.spinner.Tick, m.rescan())
	case "c":
		return m, m.copyRemediation()
	case "y":
		return m, m.copyFinding()
	case "b":
		cmd = m.addToBaseline()
		return m, cmd
	case "e":
		return m, m.export("json")
	case "E":
		return m, m.export("csv")
	case "g", "home":
		m.table.GotoTop()
		m.updateDetail()
	case "G", "end":
		m.table.GotoBottom()
		m.updateDetail()
	case "pgdown", "ctrl+d":
		m.viewport.HalfPageDown()
	case "pgup", "ctrl+u":
		m.viewport.HalfPageUp()
	default:
		m.table, cmd = m.table.Update(msg)
		m.updateDetail()
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}
	if m.scanning {
		box := popupStyle.Width(50).Align(lipgloss.Center).
			Render(fmt.Sprintf("%s  Auditing host...\n\nPlease wait", m.spinner.View()))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	if m.showHelp {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, popupStyle.Render(helpText))
	}

	header := lipgloss.NewStyle().
		Width(m.width).
		Padding(0, 2).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("237")).
		Render(m.statsLine())

	var detail string
	if len(m.visible) == 0 {
		empty := "No findings ✅\n\nPress 'r' to rerun"
		if len(m.findings) > 0 {
			empty = "No findings match the filter.\n\nPress 'Esc' to clear"
		}
		detail = lipgloss.Place(m.width-2, m.viewport.Height, lipgloss.Center, lipgloss.Center, emptyTextStyle.Render(empty))
	} else {
		detail = m.viewport.View()
	}

	line := m.statusMessage
	if !m.statusUntil.IsZero() && time.Now().After(m.statusUntil) {
		line = defaultStatus
	}
	if m.searchMode {
		line = m.searchInput.View()
	}
	footer := statusStyle.Width(m.width).Render(fmt.Sprintf("%s  | last run %s", line, m.lastRun.Format("15:04:05")))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		paneBorderStyle.Width(m.width-2).Render(m.table.View()),
		paneBorderStyle.Width(m.width-2).Render(detail),
		footer,
	)
}

func (m Model) statsLine() string {
	counts := report.SeverityCounts(m.visible)
	var parts []string
	for i := len(types.Severities()) - 1; i >= 0; i-- {
		s := types.Severities()[i]
		parts = append(parts, fmt.Sprintf("%s %d", report.SeverityStyle(s).Render(severityText(s)+":"), counts[s]))
	}
	line := fmt.Sprintf("Showing %d/%d  |  %s", len(m.visible), len(m.findings), strings.Join(parts, "  "))
	var filters []string
	if m.severityFilter != "" {
		filters = append(filters, "sev:"+severityText(m.severityFilter))
	}
	if m.searchQuery != "" {
		filters = append(filters, fmt.Sprintf("search:'%s'", m.searchQuery))
	}
	if m.prefs.HideInfo {
		filters = append(filters, "info hidden")
	}
	if len(filters) > 0 {
		line += "  [" + strings.Join(filters, ", ") + "]"
	}
	if m.sortBySeverity {
		line += "  [sorted]"
	}
	return line
}

const defaultStatus = "q: quit | ?: help | j/k: navigate | s: severity | c: copy fix | r: rerun"

const helpText = `Keys
  j/k, up/down   move
  g/G            top / bottom
  /              search
  s              cycle severity filter
  S              sort by severity
  H              hide info findings
  esc            clear filters
  c              copy remediation
  y              copy finding
  b              add finding to baseline
  e / E          export JSON / CSV
  r              rerun audit
  q              quit`
