package friskcli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"frisk/internal/config"
	"frisk/internal/model"
	"frisk/internal/store/sqlite"
)

type Options struct {
	ConfigPath string
	DBPath     string
	NoHistory  bool
	Verbose    bool
	NoColor    bool
	VimLines   bool
	Jsonl      bool
	Explain    string

	Settings *config.Settings
	Logger   *slog.Logger
}

func (o *Options) Prepare() error {
	o.normalize()

	if o.Jsonl && o.VimLines {
		return fmt.Errorf("--jsonl and --vim are mutually exclusive")
	}
	switch o.Explain {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid --explain %q (expected: text|json)", o.Explain)
	}

	s, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	o.Settings = s
	if o.DBPath == "" {
		o.DBPath = s.Store.Path
	}
	if o.DBPath == "" {
		o.DBPath = sqlite.DefaultPath()
	}
	return nil
}

func (o *Options) normalize() {
	o.ConfigPath = strings.TrimSpace(o.ConfigPath)
	o.DBPath = strings.TrimSpace(o.DBPath)
	o.Explain = strings.TrimSpace(o.Explain)
	if o.ConfigPath == "" {
		o.ConfigPath = config.DefaultPath()
	}
}

// logger writes to w at debug level with --verbose, and nowhere otherwise.
func (o *Options) logger(w io.Writer) *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	if !o.Verbose {
		o.Logger = slog.New(slog.DiscardHandler)
		return o.Logger
	}
	o.Logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return o.Logger
}

// useColor decides whether w gets ANSI highlighting.
func (o *Options) useColor(w io.Writer) bool {
	if o.NoColor || o.Jsonl {
		return false
	}
	mode := "auto"
	if o.Settings != nil && o.Settings.Display.Color != "" {
		mode = o.Settings.Display.Color
	}
	switch mode {
	case "never":
		return false
	case "always":
		return true
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// openStore returns nil when history is disabled or cannot be opened.
func (o *Options) openStore() *sqlite.Store {
	if o.NoHistory {
		return nil
	}
	s, err := sqlite.Open(o.DBPath)
	if err != nil {
		o.Logger.Warn("history unavailable", "db", o.DBPath, "err", err)
		return nil
	}
	return s
}

type optionsKey struct{}

func optionsFrom(cmd *cobra.Command) *Options {
	if cmd == nil {
		return nil
	}
	root := cmd.Root()
	if root == nil {
		root = cmd
	}
	v := root.Context().Value(optionsKey{})
	opts, _ := v.(*Options)
	return opts
}

func bindFlags(cmd *cobra.Command, opts *Options) {
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", opts.ConfigPath, "settings file (default: frisk.toml in the user config dir)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", opts.DBPath, "history database")
	cmd.PersistentFlags().BoolVar(&opts.NoHistory, "no-history", opts.NoHistory, "do not record inputs or runs")
	cmd.PersistentFlags().BoolVar(&opts.Verbose, "verbose", opts.Verbose, "debug logging to stderr")
	cmd.PersistentFlags().BoolVarP(&opts.NoColor, "no-color", "z", opts.NoColor, "suppress colors")
	cmd.PersistentFlags().BoolVarP(&opts.VimLines, "vim", "L", opts.VimLines, "vim friendly lines (file:line:col: text)")
	cmd.PersistentFlags().BoolVar(&opts.Jsonl, "jsonl", opts.Jsonl, "output as JSONL")
	cmd.PersistentFlags().StringVar(&opts.Explain, "explain", opts.Explain, "print run details to stderr (text|json)")
	cmd.PersistentFlags().Lookup("explain").NoOptDefVal = "text"
}

func ExecuteForTest(cmd *cobra.Command) (string, Options, error) {
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := cmd.Execute()

	opts := optionsFrom(cmd)
	if opts == nil {
		return out.String(), Options{}, err
	}
	return out.String(), *opts, err
}

func withOptionsContext(cmd *cobra.Command, opts *Options) {
	cmd.SetContext(context.WithValue(context.Background(), optionsKey{}, opts))
}

// searchFlags are the per-run switches shared by search, replace, watch and
// saved save. Unset flags keep the value from the settings file.
type searchFlags struct {
	filespecs       []string
	noRecursive     bool
	regex           bool
	caseSensitive   bool
	filespecRegex   bool
	filespecCase    bool
	wholeWord       bool
	legacyWholeWord bool
	maxSizeKB       int64
	trim            bool
	gitignore       bool
}

func bindSearchFlags(cmd *cobra.Command, f *searchFlags) {
	fl := cmd.Flags()
	fl.StringArrayVarP(&f.filespecs, "filespec", "f", nil, "file name patterns, ';' separated (can repeat)")
	fl.BoolVarP(&f.noRecursive, "no-recursive", "R", false, "do not descend into subdirectories")
	fl.BoolVarP(&f.regex, "regex", "e", false, "match text is a regular expression")
	fl.BoolVarP(&f.caseSensitive, "case-sensitive", "s", false, "case sensitive match")
	fl.BoolVar(&f.filespecRegex, "filespec-regex", false, "filespecs are regular expressions")
	fl.BoolVar(&f.filespecCase, "filespec-case", false, "case sensitive filespecs")
	fl.BoolVarP(&f.wholeWord, "whole-word", "w", false, "match whole words only")
	fl.BoolVar(&f.legacyWholeWord, "legacy-whole-word", false, `whole words need a non-word character on both sides`)
	fl.Int64Var(&f.maxSizeKB, "max-size", 0, "skip files larger than this many KB (0 = no limit)")
	fl.BoolVarP(&f.trim, "trim", "t", false, "show file names relative to the search path")
	fl.BoolVar(&f.gitignore, "gitignore", false, "honor .gitignore and skip VCS directories")
}

// params builds search parameters: settings first, then any flag the user set.
func (f *searchFlags) params(cmd *cobra.Command, s *config.Settings, matchText string, paths []string) model.SearchParams {
	p := s.Params(matchText, paths)
	fl := cmd.Flags()

	if fl.Changed("filespec") {
		p.Filespecs = append([]string(nil), f.filespecs...)
	}
	set := func(name string, flag model.Flags, on bool) {
		if !fl.Changed(name) {
			return
		}
		if on {
			p.Flags |= flag
		} else {
			p.Flags &^= flag
		}
	}
	set("no-recursive", model.FlagRecursive, !f.noRecursive)
	set("regex", model.FlagMatchRegex, f.regex)
	set("case-sensitive", model.FlagMatchCaseSensitive, f.caseSensitive)
	set("filespec-regex", model.FlagFilespecRegex, f.filespecRegex)
	set("filespec-case", model.FlagFilespecCaseSensitive, f.filespecCase)
	set("whole-word", model.FlagWholeWord, f.wholeWord)
	set("trim", model.FlagTrimFilenames, f.trim)

	if fl.Changed("legacy-whole-word") {
		p.LegacyWholeWord = f.legacyWholeWord
	}
	if fl.Changed("max-size") {
		p.MaxFileSize = f.maxSizeKB * 1024
	}
	if fl.Changed("gitignore") {
		p.Gitignore = f.gitignore
	}
	return p
}
