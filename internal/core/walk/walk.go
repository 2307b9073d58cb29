package walk

import (
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"frisk/internal/core/match"
	"frisk/internal/model"
)

type Options struct {
	Filespec  *match.Filespec
	Recursive bool
	// MaxFileSize excludes larger files from the sequence. 0 means no limit.
	MaxFileSize int64
	// Gitignore honors .gitignore files and skips VCS metadata directories.
	Gitignore bool
}

type File struct {
	Path string
	Root string
	Rel  string
	Size int64
}

type Stats struct {
	DirsSearched  int
	DirsSkipped   int
	FilesTooLarge int
	Errors        []model.FileError
}

// Walker enumerates candidate files under a list of roots. It is meant to be
// consumed by a single goroutine.
type Walker struct {
	roots []string
	opts  Options
	stats Stats
}

func New(roots []string, opts Options) *Walker {
	return &Walker{roots: append([]string(nil), roots...), opts: opts}
}

func (w *Walker) Stats() Stats {
	if w == nil {
		return Stats{}
	}
	s := w.stats
	s.Errors = append([]model.FileError(nil), w.stats.Errors...)
	return s
}

// Files returns a lazy sequence. Breaking out of the range loop ends the
// underlying directory walk immediately.
func (w *Walker) Files() iter.Seq[File] {
	return func(yield func(File) bool) {
		if w == nil {
			return
		}
		for _, root := range w.roots {
			if !w.walkRoot(root, yield) {
				return
			}
		}
	}
}

// ListFiles drains the walker into a slice of absolute paths.
func ListFiles(roots []string, opts Options) ([]string, Stats) {
	w := New(roots, opts)
	var out []string
	for f := range w.Files() {
		out = append(out, f.Path)
	}
	return out, w.Stats()
}

func (w *Walker) walkRoot(root string, yield func(File) bool) bool {
	abs, err := filepath.Abs(root)
	if err != nil {
		w.skipDir(root, err)
		return true
	}
	abs = filepath.Clean(abs)

	st, err := os.Stat(abs)
	if err != nil {
		w.skipDir(abs, err)
		return true
	}
	if !st.IsDir() {
		dir := filepath.Dir(abs)
		if !w.opts.Filespec.Match(st.Name()) || w.tooLarge(st.Size()) {
			return true
		}
		return yield(File{Path: abs, Root: dir, Rel: st.Name(), Size: st.Size()})
	}

	filter, err := NewFilter(abs, w.opts)
	if err != nil {
		// Broken ignore files should not hide the tree; fall back to no ignore rules.
		opts := w.opts
		opts.Gitignore = false
		filter, _ = NewFilter(abs, opts)
	}

	stopped := false
	_ = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == abs && d == nil {
				w.skipDir(p, err)
				return nil
			}
			if d != nil && d.IsDir() {
				// Counted as searched on its first visit; the listing failed.
				w.stats.DirsSearched--
				w.skipDir(p, err)
			}
			return nil
		}

		rel := "."
		if p != abs {
			r, err := filepath.Rel(abs, p)
			if err != nil {
				return nil
			}
			rel = filepath.ToSlash(r)
		}

		if d.IsDir() {
			if p != abs {
				if !w.opts.Recursive || !filter.ShouldInclude(rel, true) {
					return filepath.SkipDir
				}
			}
			w.stats.DirsSearched++
			return nil
		}

		if !isRegular(p, d) || !filter.ShouldInclude(rel, false) {
			return nil
		}

		var size int64
		if info, err := os.Stat(p); err == nil {
			size = info.Size()
		}
		if w.tooLarge(size) {
			return nil
		}

		if !yield(File{Path: p, Root: abs, Rel: rel, Size: size}) {
			stopped = true
			return fs.SkipAll
		}
		return nil
	})
	return !stopped
}

func (w *Walker) tooLarge(size int64) bool {
	if w.opts.MaxFileSize > 0 && size > w.opts.MaxFileSize {
		w.stats.FilesTooLarge++
		return true
	}
	return false
}

func (w *Walker) skipDir(p string, err error) {
	w.stats.DirsSkipped++
	reason := model.SkipUnreadable
	if os.IsPermission(err) {
		reason = model.SkipPermission
	}
	w.stats.Errors = append(w.stats.Errors, model.FileError{
		Path:   p,
		Reason: reason,
		Err:    fmt.Sprintf("%v", err),
	})
}

// isRegular accepts regular files and symlinks that resolve to one.
func isRegular(p string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && st.Mode().IsRegular()
}
