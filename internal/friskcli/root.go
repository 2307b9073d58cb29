package friskcli

import (
	"github.com/spf13/cobra"

	"frisk/internal/version"
)

func NewRootCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:           "frisk",
		Short:         "Recursive find and replace in files",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.Version = version.String()
	cmd.InitDefaultVersionFlag()
	if f := cmd.Flags().Lookup("version"); f != nil {
		f.Shorthand = "v"
	}

	withOptionsContext(cmd, opts)
	bindFlags(cmd, opts)

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		opts := optionsFrom(cmd)
		if opts == nil {
			return nil
		}
		if err := opts.Prepare(); err != nil {
			return err
		}
		opts.logger(cmd.ErrOrStderr())
		return nil
	}

	cmd.AddCommand(newSearchCommand())
	cmd.AddCommand(newReplaceCommand())
	cmd.AddCommand(newWatchCommand())
	cmd.AddCommand(newSavedCommand())
	cmd.AddCommand(newHistoryCommand())
	cmd.AddCommand(newOpenCommand())
	cmd.AddCommand(newFilesCommand())
	return cmd
}

// Execute runs the CLI with args, treating a leading non-command word as a search.
func Execute(args []string) error {
	root := NewRootCommand()
	root.SetArgs(RewriteArgsForImplicitSearch(root, args))
	return root.Execute()
}
