package friskcli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"frisk/internal/editor"
)

func newOpenCommand() *cobra.Command {
	var (
		detach bool
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "open <file> [line]",
		Short: "Open a file at a line with the configured editor",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := optionsFrom(cmd)
			if opts == nil {
				return fmt.Errorf("options missing")
			}
			line := 1
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil || n < 1 {
					return fmt.Errorf("invalid line %q", args[1])
				}
				line = n
			}

			argv, err := editor.Command(opts.Settings.Editor, args[0], line)
			if err != nil {
				return err
			}
			opts.Logger.Debug("opening", "argv", argv)
			if dryRun {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(argv, " "))
				return nil
			}
			if detach {
				return editor.Start(argv)
			}
			return editor.Run(contextOrBackground(cmd.Context()), argv, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().BoolVar(&detach, "detach", false, "start the editor and return immediately")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "print the command instead of running it")
	return cmd
}
