package search

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"frisk/internal/core/match"
	"frisk/internal/model"
)

// binaryProbeSize is how much of a file is checked for NUL bytes.
const binaryProbeSize = 8000

type Options struct {
	// MaxFileSize skips larger files without reading them. 0 means no limit.
	MaxFileSize int64
	Matcher     *match.Matcher
	// KeepContent retains the file bytes in the result for a follow-up replace.
	KeepContent bool
}

type Result struct {
	Path    string
	Size    int64
	Lines   []LineMatch
	Skip    model.SkipReason
	Err     error
	Content []byte
}

func (r Result) Skipped() bool { return r.Skip != model.SkipNone }

func (r Result) Hits() int {
	n := 0
	for _, l := range r.Lines {
		n += len(l.Highlights)
	}
	return n
}

// Entries converts matched lines into result entries. Offsets are left at
// zero; the caller assigns them when the entries join a transcript.
func (r Result) Entries(display string) []model.Entry {
	if len(r.Lines) == 0 {
		return nil
	}
	out := make([]model.Entry, 0, len(r.Lines))
	for _, l := range r.Lines {
		out = append(out, model.Entry{
			Filename:   r.Path,
			Display:    display,
			Text:       l.Text,
			Line:       l.Line,
			Highlights: append([]model.Highlight(nil), l.Highlights...),
		})
	}
	return out
}

// ScanFile matches one file line by line. Problems are reported through
// Result.Skip; the returned Result is always usable.
func ScanFile(path string, opts Options) Result {
	res := Result{Path: path}
	if opts.Matcher == nil {
		res.Skip = model.SkipUnreadable
		res.Err = fmt.Errorf("matcher is nil")
		return res
	}

	st, err := os.Stat(path)
	if err != nil {
		return failed(res, err)
	}
	res.Size = st.Size()
	if opts.MaxFileSize > 0 && st.Size() > opts.MaxFileSize {
		res.Skip = model.SkipTooLarge
		res.Err = fmt.Errorf("%d bytes exceeds limit of %d", st.Size(), opts.MaxFileSize)
		return res
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return failed(res, err)
	}
	if isBinary(data) {
		res.Skip = model.SkipBinary
		return res
	}

	res.Lines = FindInText(string(data), opts.Matcher)
	if opts.KeepContent {
		res.Content = data
	}
	return res
}

// DisplayName is the presentation form of path: relative to root when trim
// is set and path lies under root, otherwise unchanged.
func DisplayName(root string, path string, trim bool) string {
	if !trim || root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func failed(res Result, err error) Result {
	res.Skip = model.SkipUnreadable
	if os.IsPermission(err) {
		res.Skip = model.SkipPermission
	}
	res.Err = err
	return res
}

func isBinary(b []byte) bool {
	if len(b) > binaryProbeSize {
		b = b[:binaryProbeSize]
	}
	for _, c := range b {
		if c == 0 {
			return true
		}
	}
	return false
}
