package friskcli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"frisk/internal/core/explain"
	"frisk/internal/core/frisk"
	"frisk/internal/model"
	"frisk/internal/store/sqlite"
)

func newSearchCommand() *cobra.Command {
	var sf searchFlags
	cmd := &cobra.Command{
		Use:   "search <match> [path...]",
		Short: "Search files for a line pattern",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := optionsFrom(cmd)
			if opts == nil {
				return fmt.Errorf("options missing")
			}
			p := sf.params(cmd, opts.Settings, args[0], args[1:])
			_, err := runSearch(cmd, opts, p)
			return err
		},
	}
	bindSearchFlags(cmd, &sf)
	return cmd
}

func outputFormat(opts *Options) string {
	switch {
	case opts.Jsonl:
		return FormatJSONL
	case opts.VimLines:
		return FormatVim
	default:
		return FormatDefault
	}
}

func newRenderer(cmd *cobra.Command, opts *Options) *Renderer {
	out := cmd.OutOrStdout()
	pal := NewPalette(opts.useColor(out), opts.Settings.Display.HighlightColor, opts.Settings.Display.FilenameColor)
	r := NewRenderer(out, cmd.ErrOrStderr(), outputFormat(opts), pal)
	r.ShowProgress(opts.Verbose)
	return r
}

func newSearchContext(opts *Options, sink frisk.Sink) *frisk.SearchContext {
	return frisk.New(frisk.Options{
		Sink:         sink,
		Logger:       opts.Logger,
		PokeInterval: opts.Settings.PokeInterval(),
		PokeFiles:    opts.Settings.Search.PokeFiles,
	})
}

// runSearch runs one search to completion, printing as it goes. Interrupt
// stops the run after the current file.
func runSearch(cmd *cobra.Command, opts *Options, p model.SearchParams) (model.Summary, error) {
	var ex *ExplainCollector
	if opts.Explain != "" {
		ex = NewExplainCollector(ExplainOptions{Format: opts.Explain})
	}
	stopTimer := ex.Timer("search")

	r := newRenderer(cmd, opts)
	sc := newSearchContext(opts, r)

	ctx, cancel := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt)
	defer cancel()

	id, err := sc.Start(p)
	if err != nil {
		sc.Close()
		return model.Summary{}, err
	}
	go func() {
		<-ctx.Done()
		sc.Stop()
	}()

	sc.Wait()
	sc.Close()
	stopTimer()

	sum := sc.Summary()
	recordRun(opts, p, sum)

	if ex != nil {
		ex.KV("search_id", uint64(id))
		ex.KV("match", p.Match)
		ex.KV("flags", p.Flags.String())
		explain.RecordSummary(ex, sum)
		_ = ex.Emit(cmd.ErrOrStderr())
	}

	if sum.Outcome == model.OutcomeFailed {
		return sum, fmt.Errorf("search failed")
	}
	return sum, nil
}

// recordRun adds the inputs to the MRU lists and logs the run. History
// problems never fail a search.
func recordRun(opts *Options, p model.SearchParams, sum model.Summary) {
	st := opts.openStore()
	if st == nil {
		return
	}
	defer st.Close()

	if err := st.RecordParams(p, opts.Settings.MaxHistory); err != nil {
		opts.Logger.Warn("record history", "err", err)
	}
	_, err := st.RecordRun(sqlite.Run{
		StartedAt:     time.Now().Add(-sum.Elapsed),
		Match:         p.Match,
		Paths:         p.Paths,
		Flags:         p.Flags,
		Outcome:       sum.Outcome,
		FilesSearched: sum.FilesSearched,
		Hits:          sum.Hits,
		Replacements:  sum.Replacements,
		Errors:        sum.ErrorCount(),
		Elapsed:       sum.Elapsed,
	})
	if err != nil {
		opts.Logger.Warn("record run", "err", err)
	}
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
