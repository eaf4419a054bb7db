package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garyellow/chatai/internal/app"
)

func newMatchCmd(flags *globalFlags) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "match MESSAGE...",
		Short: "Answer a message offline",
		Long:  "Answer a message with the configured table. Arguments are joined with spaces.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, table, _, err := loadTable(cmd.Context(), cmd, flags)
			if err != nil {
				return err
			}

			result := app.NewMatcher(cfg, table).Match(strings.Join(args, " "))

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, result.Response)
			if verbose {
				_, _ = fmt.Fprintf(out, "trigger: %q\nscore:   %d\nmatched: %t\n", result.Trigger, result.Score, result.Matched)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the best trigger and its score")
	return cmd
}
