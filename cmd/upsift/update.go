package upsift

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/upsift/upsift/internal/update"
)

var flagCheckOnly bool

func init() {
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update upsift to the latest release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if flagCheckOnly {
				latest, newer, err := update.Check(version, false)
				if err != nil {
					return err
				}
				switch {
				case latest == "":
					_, _ = fmt.Fprintln(out, "Could not determine the latest release")
				case newer:
					_, _ = fmt.Fprintf(out, "New version available: v%s (current v%s)\n", latest, version)
				default:
					_, _ = fmt.Fprintf(out, "upsift v%s is up to date\n", version)
				}
				return nil
			}
			installed, err := selfUpdate()
			if err != nil {
				return fmt.Errorf("self-update: %w", err)
			}
			if installed == currentVersion().String() {
				_, _ = fmt.Fprintf(out, "upsift v%s is up to date\n", installed)
				return nil
			}
			_, _ = fmt.Fprintf(out, "Updated to v%s; re-run your command\n", installed)
			return nil
		},
	}
	updateCmd.Flags().BoolVar(&flagCheckOnly, "check", false, "only report whether a newer release exists")
	rootCmd.AddCommand(updateCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the upsift version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "upsift v%s %s/%s\n", currentVersion(), runtime.GOOS, runtime.GOARCH)
		},
	}
	rootCmd.AddCommand(versionCmd)
}
