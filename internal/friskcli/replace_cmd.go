package friskcli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"frisk/internal/model"
)

// stdinIsTerminal is replaced in tests.
var stdinIsTerminal = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newReplaceCommand() *cobra.Command {
	var (
		sf        searchFlags
		backupExt string
		noBackup  bool
		yes       bool
	)
	cmd := &cobra.Command{
		Use:   "replace <match> <replacement> [path...]",
		Short: "Replace a pattern in every matching file",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := optionsFrom(cmd)
			if opts == nil {
				return fmt.Errorf("options missing")
			}
			p := sf.params(cmd, opts.Settings, args[0], args[2:])
			p.Replace = args[1]
			p.Flags |= model.FlagReplace
			if cmd.Flags().Changed("backup-ext") {
				p.BackupExtension = backupExt
			}
			if noBackup {
				p.Flags &^= model.FlagBackup
			}

			if !yes {
				if !stdinIsTerminal() {
					return fmt.Errorf("refusing to replace without --yes when stdin is not a terminal")
				}
				if !confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), p) {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
					return nil
				}
			}

			_, err := runSearch(cmd, opts, p)
			return err
		},
	}
	bindSearchFlags(cmd, &sf)
	cmd.Flags().StringVar(&backupExt, "backup-ext", "", "extension appended to backup copies")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "do not keep backup copies")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func confirm(in io.Reader, out io.Writer, p model.SearchParams) bool {
	backup := "no backups"
	if p.Flags.Has(model.FlagBackup) {
		backup = "backups as *." + p.BackupExtension
	}
	_, _ = fmt.Fprintf(out, "Are you SURE you want to replace %q with %q in %s (%s)? [y/N]: ",
		p.Match, p.Replace, strings.Join(p.Paths, ";"), backup)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}
	response := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return response == "y" || response == "yes"
}
