package upsift

import (
	"github.com/spf13/cobra"

	"github.com/upsift/upsift/internal/report"
)

func init() {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the findings report (v" + report.SchemaVersion + ")",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(report.Schema())
			return err
		},
	}
	rootCmd.AddCommand(cmd)
}
