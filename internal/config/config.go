package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"frisk/internal/core/replace"
	"frisk/internal/fileutil"
	"frisk/internal/model"
)

const (
	DefaultFileSizeKB = 5000
	DefaultFilespec   = "*.txt;*.ini"
	DefaultListen     = "127.0.0.1:7338"
	FileName          = "frisk.toml"
)

type Settings struct {
	Flags           model.Flags `toml:"flags"`
	Path            string      `toml:"path"`
	Filespec        string      `toml:"filespec"`
	BackupExtension string      `toml:"backup_extension"`
	FileSizeKB      int64       `toml:"file_size_kb"`
	MaxHistory      int         `toml:"max_history"`
	LegacyWholeWord bool        `toml:"legacy_whole_word"`
	Gitignore       bool        `toml:"gitignore"`

	Editor  Editor  `toml:"editor"`
	Find    Find    `toml:"find"`
	Display Display `toml:"display"`
	Search  Search  `toml:"search"`
	Daemon  Daemon  `toml:"daemon"`
	Store   Store   `toml:"store"`
}

type Editor struct {
	// FrisksChoice ignores CmdTemplate and picks an editor plus its
	// go-to-line syntax from the file's extension and the environment.
	FrisksChoice bool   `toml:"frisks_choice"`
	CmdTemplate  string `toml:"cmd_template"`
	// Associations maps an extension (".go") to an editor executable.
	Associations map[string]string `toml:"associations"`
	// Redirections maps an extension to another whose association is used instead.
	Redirections map[string]string `toml:"redirections"`
}

// Find holds the last options used for find-in-results.
type Find struct {
	MatchCase bool `toml:"match_case"`
	WholeWord bool `toml:"whole_word"`
	Regex     bool `toml:"regex"`
}

type Display struct {
	Color          string `toml:"color"`
	HighlightColor string `toml:"highlight_color"`
	FilenameColor  string `toml:"filename_color"`
}

type Search struct {
	PokeIntervalMS int `toml:"poke_interval_ms"`
	PokeFiles      int `toml:"poke_files"`
}

type Daemon struct {
	Listen string `toml:"listen"`
}

type Store struct {
	Path string `toml:"path"`
}

func DefaultCmdTemplate() string {
	if runtime.GOOS == "windows" {
		return `notepad.exe "!FILENAME!"`
	}
	return `vi +!LINE! "!FILENAME!"`
}

func Default() *Settings {
	return &Settings{
		Flags:           model.DefaultFlags,
		Path:            ".",
		Filespec:        DefaultFilespec,
		BackupExtension: replace.DefaultBackupExtension,
		FileSizeKB:      DefaultFileSizeKB,
		MaxHistory:      10,
		Editor: Editor{
			CmdTemplate:  DefaultCmdTemplate(),
			Associations: map[string]string{},
			Redirections: map[string]string{},
		},
		Display: Display{
			Color:          "auto",
			HighlightColor: "red",
			FilenameColor:  "cyan",
		},
		Search: Search{
			PokeIntervalMS: 100,
			PokeFiles:      64,
		},
		Daemon: Daemon{Listen: DefaultListen},
	}
}

// DefaultPath is frisk.toml under the user's config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "frisk", FileName)
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Settings, error) {
	s := Default()
	if strings.TrimSpace(path) == "" {
		return s, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func Save(path string, s *Settings) error {
	if s == nil {
		return fmt.Errorf("settings is nil")
	}
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is required")
	}
	if err := s.Validate(); err != nil {
		return err
	}
	b, err := toml.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return fileutil.LockAndWrite(path, b, 0o644)
}

func (s *Settings) Validate() error {
	switch s.Display.Color {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("invalid display.color %q (expected: auto|always|never)", s.Display.Color)
	}
	if s.FileSizeKB < 0 {
		return fmt.Errorf("file_size_kb must be >= 0")
	}
	if s.MaxHistory < 0 {
		return fmt.Errorf("max_history must be >= 0")
	}
	if s.Search.PokeIntervalMS < 0 || s.Search.PokeFiles < 0 {
		return fmt.Errorf("search poke settings must be >= 0")
	}
	return nil
}

func (s *Settings) PokeInterval() time.Duration {
	return time.Duration(s.Search.PokeIntervalMS) * time.Millisecond
}

// Params turns the stored defaults into search parameters for match.
// Empty paths fall back to the configured path.
func (s *Settings) Params(matchText string, paths []string) model.SearchParams {
	if len(paths) == 0 {
		paths = strings.Split(s.Path, ";")
	}
	return model.SearchParams{
		Paths:           paths,
		Filespecs:       []string{s.Filespec},
		Match:           matchText,
		BackupExtension: s.BackupExtension,
		MaxFileSize:     s.FileSizeKB * 1024,
		Flags:           s.Flags &^ model.FlagReplace,
		LegacyWholeWord: s.LegacyWholeWord,
		Gitignore:       s.Gitignore,
	}
}
