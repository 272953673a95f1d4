package upsift

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/upsift/upsift/internal/engine"
)

var (
	flagChecksJSON bool
	flagListChecks bool
)

func init() {
	cmd := &cobra.Command{
		Use:     "checks",
		Aliases: []string{"list-checks"},
		Short:   "List available checks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listChecks(cmd)
		},
	}
	cmd.Flags().BoolVar(&flagChecksJSON, "json", false, "emit JSON")
	rootCmd.AddCommand(cmd)
}

// listChecks prints check metadata without running anything. It also backs
// the root --list-checks flag.
func listChecks(cmd *cobra.Command) error {
	entries, err := engine.ListChecks(engine.Config{Logger: slog.Default()})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if flagChecksJSON {
		type row struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Severity    string `json:"severity"`
			Description string `json:"description"`
		}
		rows := make([]row, len(entries))
		for i, e := range entries {
			rows[i] = row{e.ID, e.Name, string(e.Severity), e.Description}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	table := tablewriter.NewWriter(out)
	table.Header("ID", "NAME", "SEVERITY")
	for _, e := range entries {
		_ = table.Append([]string{e.ID, e.Name, string(e.Severity)})
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "%d checks\n", len(entries))
	return nil
}
