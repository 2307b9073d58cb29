package model

import (
	"strings"
	"time"
)

type Flags uint32

const (
	FlagRecursive Flags = 1 << iota
	FlagFilespecRegex
	FlagFilespecCaseSensitive
	FlagMatchRegex
	FlagMatchCaseSensitive
	FlagReplace
	FlagBackup
	FlagTrimFilenames
	FlagWholeWord
)

// DefaultFlags is what a fresh settings file starts with.
const DefaultFlags = FlagRecursive | FlagBackup

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagRecursive, "recursive"},
	{FlagFilespecRegex, "filespec-regex"},
	{FlagFilespecCaseSensitive, "filespec-case"},
	{FlagMatchRegex, "regex"},
	{FlagMatchCaseSensitive, "case-sensitive"},
	{FlagReplace, "replace"},
	{FlagBackup, "backup"},
	{FlagTrimFilenames, "trim"},
	{FlagWholeWord, "whole-word"},
}

func (f Flags) Has(flag Flags) bool { return f&flag == flag }

func (f Flags) String() string {
	var parts []string
	for _, n := range flagNames {
		if f.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

type SearchParams struct {
	Paths           []string `json:"paths"`
	Filespecs       []string `json:"filespecs"`
	Match           string   `json:"match"`
	Replace         string   `json:"replace,omitempty"`
	BackupExtension string   `json:"backup_extension,omitempty"`
	MaxFileSize     int64    `json:"max_file_size,omitempty"`
	Flags           Flags    `json:"flags"`

	// LegacyWholeWord selects the `\W(needle)\W` wrapping, which never
	// matches a word touching the start or end of a line.
	LegacyWholeWord bool `json:"legacy_whole_word,omitempty"`
	Gitignore       bool `json:"gitignore,omitempty"`
}

// Clone returns a deep copy so a running search never shares slices with its caller.
func (p SearchParams) Clone() SearchParams {
	out := p
	out.Paths = append([]string(nil), p.Paths...)
	out.Filespecs = append([]string(nil), p.Filespecs...)
	return out
}

type Highlight struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

type Entry struct {
	Filename   string      `json:"filename"`
	Display    string      `json:"display"`
	Text       string      `json:"text"`
	Line       int         `json:"line"`
	Highlights []Highlight `json:"highlights,omitempty"`
	Offset     int         `json:"offset"`
}

type SearchID uint64

type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeCompleted Outcome = "completed"
	OutcomeStopped   Outcome = "stopped"
	OutcomeFailed    Outcome = "failed"
)

type NotificationKind string

const (
	KindState    NotificationKind = "state"
	KindProgress NotificationKind = "progress"
)

type Notification struct {
	Kind       NotificationKind `json:"kind"`
	SearchID   SearchID         `json:"search_id"`
	Running    bool             `json:"running"`
	Status     string           `json:"status,omitempty"`
	Text       string           `json:"text,omitempty"`
	Highlights []Highlight      `json:"highlights,omitempty"`
	Entries    []Entry          `json:"entries,omitempty"`
	Final      bool             `json:"final,omitempty"`
	Outcome    Outcome          `json:"outcome,omitempty"`
	Summary    *Summary         `json:"summary,omitempty"`
}

type SkipReason string

const (
	SkipNone         SkipReason = ""
	SkipTooLarge     SkipReason = "too_large"
	SkipUnreadable   SkipReason = "unreadable"
	SkipBinary       SkipReason = "binary"
	SkipPermission   SkipReason = "permission"
	SkipBackupFailed SkipReason = "backup_failed"
	SkipWriteFailed  SkipReason = "write_failed"
)

type FileError struct {
	Path   string     `json:"path"`
	Reason SkipReason `json:"reason"`
	Err    string     `json:"error,omitempty"`
}

type Summary struct {
	DirsSearched    int           `json:"dirs_searched"`
	DirsSkipped     int           `json:"dirs_skipped"`
	FilesSearched   int           `json:"files_searched"`
	FilesSkipped    int           `json:"files_skipped"`
	FilesWithHits   int           `json:"files_with_hits"`
	LinesWithHits   int           `json:"lines_with_hits"`
	Hits            int           `json:"hits"`
	FilesReplaced   int           `json:"files_replaced"`
	Replacements    int           `json:"replacements"`
	ReplaceFailures int           `json:"replace_failures"`
	Errors          []FileError   `json:"errors,omitempty"`
	Elapsed         time.Duration `json:"elapsed"`
	Outcome         Outcome       `json:"outcome,omitempty"`
}

// ErrorCount counts per-file problems worth flagging in a terminal status:
// unreadable files and failed replacements. Binary and oversize skips are expected.
func (s Summary) ErrorCount() int {
	n := 0
	for _, e := range s.Errors {
		switch e.Reason {
		case SkipBinary, SkipTooLarge:
		default:
			n++
		}
	}
	return n
}

type SavedSearch struct {
	Name            string `json:"name" toml:"name"`
	Match           string `json:"match" toml:"match"`
	Path            string `json:"path" toml:"path"`
	Filespec        string `json:"filespec" toml:"filespec"`
	FileSize        string `json:"file_size" toml:"file_size"`
	Replace         string `json:"replace" toml:"replace"`
	BackupExtension string `json:"backup_extension" toml:"backup_extension"`
	Flags           Flags  `json:"flags" toml:"flags"`
}
