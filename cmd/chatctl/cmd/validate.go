package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the data source and print row statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, table, stats, err := loadTable(cmd.Context(), cmd, flags)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "source:     %s\n", cfg.DataSource)
			_, _ = fmt.Fprintf(out, "rows:       %d\n", stats.Rows)
			_, _ = fmt.Fprintf(out, "loaded:     %d\n", stats.Loaded)
			_, _ = fmt.Fprintf(out, "skipped:    %d\n", stats.Skipped)
			_, _ = fmt.Fprintf(out, "duplicates: %d\n", stats.Duplicates)
			_, _ = fmt.Fprintf(out, "entries:    %d\n", table.Len())
			if table.Len() == 0 {
				_, _ = fmt.Fprintln(out, "warning: table is empty, every message will get the fallback response")
			}
			return nil
		},
	}
}
