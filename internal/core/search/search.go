package search

import (
	"strings"

	"frisk/internal/core/match"
	"frisk/internal/model"
)

type Line struct {
	Number int
	Text   string
	// EOL is the terminator that followed Text: "\n", "\r\n", or "" for an
	// unterminated last line. Text+EOL reproduces the input exactly.
	EOL string
}

type LineMatch struct {
	Line       int
	Text       string
	Highlights []model.Highlight
}

// SplitLines splits on "\n". A "\r" right before the newline belongs to the
// terminator, not the text. A trailing newline does not start another line.
func SplitLines(text string) []Line {
	if text == "" {
		return nil
	}
	var out []Line
	n := 1
	for len(text) > 0 {
		i := strings.IndexByte(text, '\n')
		var raw, eol string
		if i < 0 {
			raw, text = text, ""
		} else {
			raw, eol, text = text[:i], "\n", text[i+1:]
		}
		if strings.HasSuffix(raw, "\r") {
			raw = raw[:len(raw)-1]
			eol = "\r" + eol
		}
		out = append(out, Line{Number: n, Text: raw, EOL: eol})
		n++
	}
	return out
}

// FindInText reports every line with at least one match, with all of that
// line's non-overlapping highlights in ascending order.
func FindInText(text string, m *match.Matcher) []LineMatch {
	if m == nil {
		return nil
	}

	var out []LineMatch
	for _, line := range SplitLines(text) {
		spans := m.FindAll(line.Text)
		if len(spans) == 0 {
			continue
		}
		hl := make([]model.Highlight, 0, len(spans))
		for _, sp := range spans {
			hl = append(hl, model.Highlight{Offset: sp.Start, Length: sp.Length})
		}
		out = append(out, LineMatch{
			Line:       line.Number,
			Text:       line.Text,
			Highlights: hl,
		})
	}
	return out
}
