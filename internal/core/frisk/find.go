package frisk

import (
	"sync"

	"frisk/internal/core/match"
)

type FindQuery struct {
	Text          string `json:"text"`
	Regex         bool   `json:"regex,omitempty"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
	WholeWord     bool   `json:"whole_word,omitempty"`
}

func (q FindQuery) Compile() (*match.Matcher, error) {
	return match.Compile(q.Text, match.Options{
		Regex:         q.Regex,
		CaseSensitive: q.CaseSensitive,
		WholeWord:     q.WholeWord,
	})
}

// Finder implements "find next" over a transcript. It remembers where the
// last search failed so that asking again from the same spot wraps around.
type Finder struct {
	mu       sync.Mutex
	failed   bool
	failedAt int
}

// Next searches text from the end of the current selection. A start beyond
// the text, or a repeat of a search that just failed from the same start,
// begins again at 0.
func (f *Finder) Next(text string, m *match.Matcher, from int) (match.Span, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if m == nil || text == "" {
		return match.Span{}, false
	}
	start := from
	if start < 0 || start > len(text) {
		start = 0
	}
	if f.failed && f.failedAt == start {
		start = 0
	}

	sp, ok := m.FindFirst(text, start)
	if !ok || sp.Length == 0 {
		f.failed = true
		f.failedAt = start
		return match.Span{}, false
	}
	f.failed = false
	return sp, true
}

// FindNext searches this context's transcript.
func (sc *SearchContext) FindNext(f *Finder, m *match.Matcher, from int) (match.Span, bool) {
	if sc == nil || f == nil {
		return match.Span{}, false
	}
	return f.Next(sc.Transcript(), m, from)
}
