package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/upsift/upsift/internal/checks"
)

// WriteChecksMarkdown renders the check catalogue as a Markdown table.
func WriteChecksMarkdown(w io.Writer, entries []checks.Entry) error {
	var b strings.Builder
	b.WriteString("# upsift checks\n\n")
	b.WriteString("| ID | Name | Default severity | Description |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", e.ID, mdEscape(e.Name), e.Severity, mdEscape(e.Description))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func mdEscape(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
