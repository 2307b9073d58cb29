package friskcli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"frisk/internal/config"
	"frisk/internal/model"
	"frisk/internal/store/sqlite"
)

func newSavedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "Manage saved searches",
	}
	cmd.AddCommand(newSavedListCommand())
	cmd.AddCommand(newSavedSaveCommand())
	cmd.AddCommand(newSavedLoadCommand())
	cmd.AddCommand(newSavedDeleteCommand())
	return cmd
}

// withStore opens the history store for the length of fn.
func withStore(cmd *cobra.Command, fn func(opts *Options, st *sqlite.Store) error) error {
	opts := optionsFrom(cmd)
	if opts == nil {
		return fmt.Errorf("options missing")
	}
	st, err := sqlite.Open(opts.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(opts, st)
}

func newSavedListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(opts *Options, st *sqlite.Store) error {
				all, err := st.SavedSearches()
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, ss := range all {
					_, _ = fmt.Fprintf(tw, "%s\t%q\t%s\t%s\t%s\n", ss.Name, ss.Match, ss.Path, ss.Filespec, ss.Flags)
				}
				return tw.Flush()
			})
		},
	}
}

func newSavedSaveCommand() *cobra.Command {
	var (
		sf        searchFlags
		replaceTo string
		backupExt string
	)
	cmd := &cobra.Command{
		Use:   "save <name> <match> [path...]",
		Short: "Save a search under a name, replacing any search of that name",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(opts *Options, st *sqlite.Store) error {
				p := sf.params(cmd, opts.Settings, args[1], args[2:])
				if cmd.Flags().Changed("replace") {
					p.Replace = replaceTo
					p.Flags |= model.FlagReplace
				}
				if cmd.Flags().Changed("backup-ext") {
					p.BackupExtension = backupExt
				}
				if err := st.SaveSearch(SavedFromParams(args[0], p)); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "saved %q\n", args[0])
				return nil
			})
		},
	}
	bindSearchFlags(cmd, &sf)
	cmd.Flags().StringVar(&replaceTo, "replace", "", "make this a replace search with this replacement")
	cmd.Flags().StringVar(&backupExt, "backup-ext", "", "extension appended to backup copies")
	return cmd
}

func newSavedLoadCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "load <name>",
		Short: "Run a saved search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := optionsFrom(cmd)
			if opts == nil {
				return fmt.Errorf("options missing")
			}
			var ss model.SavedSearch
			err := withStore(cmd, func(_ *Options, st *sqlite.Store) error {
				var err error
				ss, err = st.LoadSearch(args[0])
				return err
			})
			if err != nil {
				return err
			}
			p, err := ParamsFromSaved(ss, opts.Settings)
			if err != nil {
				return err
			}
			if p.Flags.Has(model.FlagReplace) && !yes {
				if !stdinIsTerminal() {
					return fmt.Errorf("saved search %q replaces text; pass --yes to run it without a terminal", ss.Name)
				}
				if !confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), p) {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
					return nil
				}
			}
			_, err = runSearch(cmd, opts, p)
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask before a saved replace")
	return cmd
}

func newSavedDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(_ *Options, st *sqlite.Store) error {
				return st.DeleteSearch(args[0])
			})
		},
	}
}

func SavedFromParams(name string, p model.SearchParams) model.SavedSearch {
	ss := model.SavedSearch{
		Name:            name,
		Match:           p.Match,
		Path:            strings.Join(p.Paths, ";"),
		Filespec:        strings.Join(p.Filespecs, ";"),
		BackupExtension: p.BackupExtension,
		Flags:           p.Flags,
	}
	if p.MaxFileSize > 0 {
		ss.FileSize = strconv.FormatInt(p.MaxFileSize/1024, 10)
	}
	if p.Flags.Has(model.FlagReplace) {
		ss.Replace = p.Replace
	}
	return ss
}

// ParamsFromSaved rebuilds search parameters; fields the saved search leaves
// empty come from the settings.
func ParamsFromSaved(ss model.SavedSearch, s *config.Settings) (model.SearchParams, error) {
	var paths []string
	if ss.Path != "" {
		paths = strings.Split(ss.Path, ";")
	}
	p := s.Params(ss.Match, paths)
	p.Flags = ss.Flags
	p.Replace = ss.Replace
	if ss.Filespec != "" {
		p.Filespecs = []string{ss.Filespec}
	}
	if ss.BackupExtension != "" {
		p.BackupExtension = ss.BackupExtension
	}
	p.MaxFileSize = 0
	if fs := strings.TrimSpace(ss.FileSize); fs != "" {
		kb, err := strconv.ParseInt(fs, 10, 64)
		if err != nil || kb < 0 {
			return p, fmt.Errorf("saved search %q has an invalid file size %q", ss.Name, ss.FileSize)
		}
		p.MaxFileSize = kb * 1024
	}
	return p, nil
}
