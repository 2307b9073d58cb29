package friskcli

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"frisk/internal/store/sqlite"
)

func newHistoryCommand() *cobra.Command {
	var runs int
	cmd := &cobra.Command{
		Use:   "history [list]",
		Short: "Show recently used inputs, newest first",
		Long:  "Lists: " + strings.Join(sqlite.Lists, ", ") + ". With --runs, show the run log instead.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list := sqlite.ListMatches
			if len(args) == 1 {
				list = args[0]
			}
			if runs <= 0 && !slices.Contains(sqlite.Lists, list) {
				return fmt.Errorf("unknown history list %q (expected one of: %s)", list, strings.Join(sqlite.Lists, ", "))
			}
			return withStore(cmd, func(_ *Options, st *sqlite.Store) error {
				if runs > 0 {
					return printRuns(cmd, st, runs)
				}
				values, err := st.History(list)
				if err != nil {
					return err
				}
				for _, v := range values {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), v)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&runs, "runs", 0, "show the last N runs")
	return cmd
}

func printRuns(cmd *cobra.Command, st *sqlite.Store, limit int) error {
	all, err := st.RecentRuns(limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, r := range all {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%q\t%s\t%d files\t%d hits\t%d replacements\t%d errors\t%s\n",
			r.StartedAt.Format(time.DateTime), r.Outcome, r.Match, strings.Join(r.Paths, ";"),
			r.FilesSearched, r.Hits, r.Replacements, r.Errors, r.Elapsed.Round(time.Millisecond))
	}
	return tw.Flush()
}
