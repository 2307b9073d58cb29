package walk

import (
	"path"
	"path/filepath"
	"strings"
)

// Filter answers inclusion questions for paths relative to one root. Depth
// (the recursive flag) is left to the caller.
type Filter struct {
	opts Options
	git  *gitRules
}

func NewFilter(root string, opts Options) (*Filter, error) {
	f := &Filter{opts: opts}
	if opts.Gitignore {
		g, err := readGitRules(root)
		if err != nil {
			return nil, err
		}
		f.git = g
	}
	return f, nil
}

func (f *Filter) ShouldInclude(rel string, isDir bool) bool {
	if f == nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == "" {
		return isDir
	}
	name := path.Base(rel)

	if isDir {
		if f.opts.Gitignore && (isVCSDir(name) || f.git.excludes(rel, true)) {
			return false
		}
		return true
	}

	if f.opts.Gitignore && f.git.excludes(rel, false) {
		return false
	}
	return f.opts.Filespec.Match(name)
}

// Depth is the number of directories between the root and rel.
func Depth(rel string) int {
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	if rel == "" || rel == "." {
		return 0
	}
	return strings.Count(rel, "/")
}

func isVCSDir(name string) bool {
	switch name {
	case ".git", ".hg", ".svn":
		return true
	default:
		return false
	}
}
