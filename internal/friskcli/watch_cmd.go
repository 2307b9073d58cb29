package friskcli

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"frisk/internal/core/frisk"
	"frisk/internal/core/match"
	"frisk/internal/core/watch"
	"frisk/internal/model"
)

func newWatchCommand() *cobra.Command {
	var (
		sf       searchFlags
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <match> [path...]",
		Short: "Search, then search again whenever a matching file changes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := optionsFrom(cmd)
			if opts == nil {
				return fmt.Errorf("options missing")
			}
			p := sf.params(cmd, opts.Settings, args[0], args[1:])
			return runWatch(cmd, opts, p, debounce)
		},
	}
	bindSearchFlags(cmd, &sf)
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before re-running")
	return cmd
}

func runWatch(cmd *cobra.Command, opts *Options, p model.SearchParams, debounce time.Duration) error {
	fs, err := match.CompileFilespec(p.Filespecs, p.Flags.Has(model.FlagFilespecRegex), p.Flags.Has(model.FlagFilespecCaseSensitive))
	if err != nil {
		return err
	}

	r := newRenderer(cmd, opts)
	var sc *frisk.SearchContext
	// A re-run supersedes the previous one; anything still queued for the
	// old run is dropped here.
	sc = newSearchContext(opts, frisk.CurrentOnly(func() model.SearchID { return sc.SearchID() }, r))
	defer sc.Close()

	changes := make(chan []string, 1)
	w, err := watch.NewWatcher(p.Paths, watch.Options{
		Filespec:  fs,
		Recursive: p.Flags.Has(model.FlagRecursive),
		Gitignore: p.Gitignore,
		Debounce:  debounce,
		OnChange: func(paths []string) {
			select {
			case changes <- paths:
			default:
			}
		},
	})
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, cancel := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return w.Run(gctx) })
	g.Go(func() error {
		defer w.Close()
		if _, err := sc.Start(p); err != nil {
			return err
		}
		for {
			select {
			case <-gctx.Done():
				sc.Stop()
				return nil
			case paths := <-changes:
				opts.Logger.Debug("files changed", "count", len(paths))
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%d changed file(s), frisking again\n", len(paths))
				if _, err := sc.Start(p); err != nil {
					return err
				}
			}
		}
	})

	err = g.Wait()
	sc.Close()
	recordRun(opts, p, sc.Summary())
	return err
}
