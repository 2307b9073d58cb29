package walk

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// gitRules holds the exclusions git would apply below one search root: every
// .gitignore in the tree plus the repository's .git/info/exclude when the
// root is a work tree. A nil *gitRules excludes nothing.
type gitRules struct {
	m gitignore.Matcher
}

func readGitRules(root string) (*gitRules, error) {
	patterns, err := gitignore.ReadPatterns(osfs.New(root), nil)
	if err != nil {
		return nil, err
	}
	local, err := readInfoExclude(root)
	if err != nil {
		return nil, err
	}
	// Later patterns win, so .gitignore files override info/exclude.
	patterns = append(local, patterns...)
	if len(patterns) == 0 {
		return nil, nil
	}
	return &gitRules{m: gitignore.NewMatcher(patterns)}, nil
}

func readInfoExclude(root string) ([]gitignore.Pattern, error) {
	f, err := os.Open(filepath.Join(root, ".git", "info", "exclude"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ps []gitignore.Pattern
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(line, nil))
	}
	return ps, sc.Err()
}

// excludes takes a slash-separated path relative to the root.
func (g *gitRules) excludes(rel string, isDir bool) bool {
	if g == nil {
		return false
	}
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return false
	}
	return g.m.Match(strings.Split(rel, "/"), isDir)
}
