package match

import (
	"errors"
	"regexp"
	"regexp/syntax"
	"strings"
	"unicode/utf8"
)

type Options struct {
	Regex         bool
	CaseSensitive bool
	// WholeWord wraps a literal needle so it only matches as a separate word.
	// It is ignored when Regex is set.
	WholeWord bool
	// LegacyWholeWord wraps the needle as `\W(needle)\W`. That form needs a
	// non-word character on both sides, so a word at the very start or end of
	// a line is never found. The default uses `\b` assertions instead.
	LegacyWholeWord bool
}

// Span is a matched region, in bytes.
type Span struct {
	Start  int
	Length int
}

func (s Span) End() int { return s.Start + s.Length }

// Matcher is immutable after Compile and safe for concurrent use.
type Matcher struct {
	pattern string
	opts    Options

	re     *regexp.Regexp
	needle string
	// suffixSafe is set when the expression has no boundary assertions, so
	// a match found in a suffix of the line is a match in the line.
	suffixSafe bool
}

func Compile(pattern string, opts Options) (*Matcher, error) {
	if pattern == "" {
		return nil, newConfigError("match", pattern, "match text is empty")
	}
	if i := strings.IndexAny(pattern, "\r\n"); i >= 0 {
		ce := newConfigError("match", pattern, "match text must not contain a line break")
		ce.Offset = i
		return nil, ce
	}

	m := &Matcher{pattern: pattern, opts: opts}

	expr := ""
	switch {
	case opts.Regex:
		expr = pattern
	case opts.WholeWord && opts.LegacyWholeWord:
		expr = `\W(` + regexp.QuoteMeta(pattern) + `)\W`
	case opts.WholeWord:
		expr = anchoredWord(pattern)
	default:
		m.needle = pattern
		if !opts.CaseSensitive {
			m.needle = asciiLower(pattern)
		}
		return m, nil
	}

	if !opts.CaseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, regexError("match", pattern, err)
	}
	m.re = re
	m.suffixSafe = !hasAssertion(expr)
	return m, nil
}

// hasAssertion reports whether expr uses a line, text or word boundary.
func hasAssertion(expr string) bool {
	tree, err := syntax.Parse(expr, syntax.Perl)
	if err != nil {
		return true
	}
	var walk func(*syntax.Regexp) bool
	walk = func(r *syntax.Regexp) bool {
		switch r.Op {
		case syntax.OpBeginLine, syntax.OpEndLine, syntax.OpBeginText, syntax.OpEndText,
			syntax.OpWordBoundary, syntax.OpNoWordBoundary:
			return true
		}
		for _, sub := range r.Sub {
			if walk(sub) {
				return true
			}
		}
		return false
	}
	return walk(tree)
}

// ValidateReplacement rejects replacement text the line-wise replace cannot honor.
func ValidateReplacement(text string) error {
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		ce := newConfigError("replacement", text, "replacement text must not contain a line break")
		ce.Offset = i
		return ce
	}
	return nil
}

func (m *Matcher) Pattern() string {
	if m == nil {
		return ""
	}
	return m.pattern
}

func (m *Matcher) IsRegex() bool {
	return m != nil && m.re != nil
}

// FindFirst returns the first match whose reported span starts at or after start.
func (m *Matcher) FindFirst(text string, start int) (Span, bool) {
	if m == nil || start < 0 || start > len(text) {
		return Span{}, false
	}
	if m.re == nil {
		hay := text[start:]
		if !m.opts.CaseSensitive {
			hay = asciiLower(hay)
		}
		idx := strings.Index(hay, m.needle)
		if idx < 0 {
			return Span{}, false
		}
		return Span{Start: start + idx, Length: len(m.needle)}, true
	}

	// The whole line is matched so boundaries keep their meaning. That pass
	// resumes after each match, so a match overlapping an earlier one that
	// began before start is only found by the suffix pass, which is exact
	// for expressions without boundaries.
	best, found := Span{}, false
	for _, loc := range m.re.FindAllStringSubmatchIndex(text, -1) {
		if sp, ok := reported(loc); ok && sp.Start >= start {
			best, found = sp, true
			break
		}
	}
	if m.suffixSafe {
		if sp, ok := m.firstInSuffix(text, start); ok && (!found || sp.Start < best.Start) {
			best, found = sp, true
		}
	}
	return best, found
}

func (m *Matcher) firstInSuffix(text string, start int) (Span, bool) {
	for pos := start; pos <= len(text); {
		loc := m.re.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		for i := range loc {
			if loc[i] >= 0 {
				loc[i] += pos
			}
		}
		if sp, ok := reported(loc); ok {
			return sp, true
		}
		pos = max(loc[1], loc[0]+1)
	}
	return Span{}, false
}

// FindAll returns every non-overlapping match in ascending order. Each search
// resumes at the end of the previous match.
func (m *Matcher) FindAll(text string) []Span {
	if m == nil || text == "" {
		return nil
	}
	var out []Span
	if m.re == nil {
		hay := text
		if !m.opts.CaseSensitive {
			hay = asciiLower(text)
		}
		pos := 0
		for pos <= len(hay) {
			idx := strings.Index(hay[pos:], m.needle)
			if idx < 0 {
				break
			}
			out = append(out, Span{Start: pos + idx, Length: len(m.needle)})
			pos += idx + len(m.needle)
		}
		return out
	}

	for _, loc := range m.re.FindAllStringSubmatchIndex(text, -1) {
		if sp, ok := reported(loc); ok {
			out = append(out, sp)
		}
	}
	return out
}

// Replace substitutes every reported span with replacement, literally.
func (m *Matcher) Replace(text string, replacement string) (string, int) {
	spans := m.FindAll(text)
	if len(spans) == 0 {
		return text, 0
	}
	var b strings.Builder
	b.Grow(len(text) + len(spans)*(len(replacement)))
	prev := 0
	for _, sp := range spans {
		b.WriteString(text[prev:sp.Start])
		b.WriteString(replacement)
		prev = sp.End()
	}
	b.WriteString(text[prev:])
	return b.String(), len(spans)
}

// reported picks the first capture group when it took part in the match,
// otherwise the whole match. Empty spans are dropped.
func reported(loc []int) (Span, bool) {
	start, end := loc[0], loc[1]
	if len(loc) >= 4 && loc[2] >= 0 {
		start, end = loc[2], loc[3]
	}
	if end <= start {
		return Span{}, false
	}
	return Span{Start: start, Length: end - start}, true
}

func anchoredWord(needle string) string {
	var b strings.Builder
	first, _ := utf8.DecodeRuneInString(needle)
	last, _ := utf8.DecodeLastRuneInString(needle)
	if isWordRune(first) {
		b.WriteString(`\b`)
	}
	b.WriteString("(")
	b.WriteString(regexp.QuoteMeta(needle))
	b.WriteString(")")
	if isWordRune(last) {
		b.WriteString(`\b`)
	}
	return b.String()
}

// isWordRune mirrors RE2's ASCII-only \w class.
func isWordRune(r rune) bool {
	return r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// asciiLower folds A-Z only, so byte offsets stay valid in the original text.
func asciiLower(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func regexError(field, pattern string, err error) error {
	ce := newConfigError(field, pattern, err.Error())
	ce.Underlying = err
	var se *syntax.Error
	if errors.As(err, &se) {
		ce.Message = string(se.Code)
		if frag := strings.TrimPrefix(se.Expr, "(?i)"); frag != "" {
			if i := strings.Index(pattern, frag); i >= 0 {
				ce.Offset = i
			}
		}
	}
	return ce
}
