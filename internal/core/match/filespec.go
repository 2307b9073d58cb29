package match

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filespec selects files by base name. It is a list of globs, or of regexes
// when compiled in regex mode; a name is included when any element matches.
type Filespec struct {
	globs         []string
	res           []*regexp.Regexp
	caseSensitive bool
}

// SplitFilespec breaks semicolon-delimited lists apart and drops blanks.
func SplitFilespec(specs []string) []string {
	var out []string
	for _, spec := range specs {
		for _, piece := range strings.Split(spec, ";") {
			piece = strings.TrimSpace(piece)
			if piece != "" {
				out = append(out, piece)
			}
		}
	}
	return out
}

// CompileFilespec builds a Filespec. An empty list matches every file.
func CompileFilespec(specs []string, regex bool, caseSensitive bool) (*Filespec, error) {
	f := &Filespec{caseSensitive: caseSensitive}
	for _, pat := range SplitFilespec(specs) {
		if regex {
			expr := pat
			if !caseSensitive {
				expr = "(?i)" + expr
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, regexError("filespec", pat, err)
			}
			f.res = append(f.res, re)
			continue
		}

		if !caseSensitive {
			pat = strings.ToLower(pat)
		}
		if !doublestar.ValidatePattern(pat) {
			return nil, newConfigError("filespec", pat, "malformed glob")
		}
		f.globs = append(f.globs, pat)
	}
	return f, nil
}

func (f *Filespec) Empty() bool {
	return f == nil || (len(f.globs) == 0 && len(f.res) == 0)
}

func (f *Filespec) Match(name string) bool {
	if f.Empty() {
		return true
	}
	for _, re := range f.res {
		if re.MatchString(name) {
			return true
		}
	}
	if len(f.globs) == 0 {
		return false
	}
	if !f.caseSensitive {
		name = strings.ToLower(name)
	}
	for _, g := range f.globs {
		if ok, _ := doublestar.Match(g, name); ok {
			return true
		}
	}
	return false
}
