package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"frisk/internal/core/match"
	"frisk/internal/core/walk"
)

type Options struct {
	Filespec  *match.Filespec
	Recursive bool
	Gitignore bool
	Debounce  time.Duration
	// OnChange receives the absolute paths of changed candidate files.
	OnChange func(paths []string)
}

type watchRoot struct {
	abs    string
	file   bool
	filter *walk.Filter
}

// Watcher reports changes to files a search over the same roots would visit.
type Watcher struct {
	roots     []watchRoot
	opts      Options
	debouncer *Debouncer

	watcher   *fsnotify.Watcher
	closeOnce sync.Once
	closed    chan struct{}
}

func NewWatcher(roots []string, opts Options) (*Watcher, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("at least one root is required")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		opts:      opts,
		debouncer: NewDebouncer(opts.Debounce),
		watcher:   fsw,
		closed:    make(chan struct{}),
	}
	if opts.OnChange != nil {
		w.debouncer.OnFire(opts.OnChange)
	}

	for _, root := range roots {
		if err := w.addRoot(root); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) Debounce() time.Duration {
	if w == nil || w.debouncer == nil {
		return 0
	}
	return w.debouncer.delay
}

func (w *Watcher) Close() error {
	if w == nil {
		return nil
	}

	w.closeOnce.Do(func() { close(w.closed) })
	w.debouncer.Stop()

	if w.watcher == nil {
		return nil
	}
	return w.watcher.Close()
}

func (w *Watcher) Run(ctx context.Context) error {
	if w == nil || w.watcher == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.closed:
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func (w *Watcher) addRoot(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)

	st, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		w.roots = append(w.roots, watchRoot{abs: abs, file: true})
		return w.watcher.Add(filepath.Dir(abs))
	}

	filter, err := walk.NewFilter(abs, walk.Options{
		Filespec:  w.opts.Filespec,
		Recursive: w.opts.Recursive,
		Gitignore: w.opts.Gitignore,
	})
	if err != nil {
		return err
	}
	wr := watchRoot{abs: abs, filter: filter}
	w.roots = append(w.roots, wr)
	return w.addDirs(wr, abs)
}

// addDirs registers dir and, when recursive, every included directory below it.
func (w *Watcher) addDirs(wr watchRoot, dir string) error {
	if !w.opts.Recursive {
		if dir == wr.abs {
			return w.watcher.Add(dir)
		}
		return nil
	}
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable directories cannot be watched; the search skips them too.
			if d != nil && d.IsDir() && p != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel, ok := relTo(wr.abs, p); ok && !wr.filter.ShouldInclude(rel, true) {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	abs := filepath.Clean(ev.Name)
	for _, wr := range w.roots {
		if wr.file {
			if abs == wr.abs {
				w.debouncer.Push(abs)
				return
			}
			continue
		}

		rel, ok := relTo(wr.abs, abs)
		if !ok {
			continue
		}

		if ev.Op&(fsnotify.Create|fsnotify.Rename) != 0 {
			if st, err := os.Stat(abs); err == nil && st.IsDir() {
				if w.opts.Recursive && wr.filter.ShouldInclude(rel, true) {
					_ = w.addDirs(wr, abs)
				}
				return
			}
		}

		if !w.opts.Recursive && walk.Depth(rel) > 0 {
			continue
		}
		if !wr.filter.ShouldInclude(rel, false) {
			continue
		}
		if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
			w.debouncer.Push(abs)
			return
		}
	}
}

func relTo(root string, abs string) (string, bool) {
	if strings.TrimSpace(abs) == "" {
		return "", false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", false
	}
	if rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
