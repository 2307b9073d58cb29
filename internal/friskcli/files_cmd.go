package friskcli

import (
	"fmt"

	"github.com/spf13/cobra"

	"frisk/internal/core/match"
	"frisk/internal/core/walk"
	"frisk/internal/model"
)

func newFilesCommand() *cobra.Command {
	var sf searchFlags
	cmd := &cobra.Command{
		Use:   "files [path...]",
		Short: "List the files a search with these flags would read",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := optionsFrom(cmd)
			if opts == nil {
				return fmt.Errorf("options missing")
			}
			p := sf.params(cmd, opts.Settings, "", args)
			fs, err := match.CompileFilespec(p.Filespecs, p.Flags.Has(model.FlagFilespecRegex), p.Flags.Has(model.FlagFilespecCaseSensitive))
			if err != nil {
				if match.IsConfigError(err) {
					return fmt.Errorf("invalid filespec: %w", err)
				}
				return err
			}
			files, st := walk.ListFiles(p.Paths, walk.Options{
				Filespec:    fs,
				Recursive:   p.Flags.Has(model.FlagRecursive),
				MaxFileSize: p.MaxFileSize,
				Gitignore:   p.Gitignore,
			})
			out := cmd.OutOrStdout()
			for _, f := range files {
				_, _ = fmt.Fprintln(out, f)
			}
			for _, fe := range st.Errors {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s %s\n", fe.Path, fe.Reason, fe.Err)
			}
			opts.Logger.Debug("listed files", "files", len(files), "dirs", st.DirsSearched,
				"dirs_skipped", st.DirsSkipped, "too_large", st.FilesTooLarge)
			return nil
		},
	}
	bindSearchFlags(cmd, &sf)
	return cmd
}
