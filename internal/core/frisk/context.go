package frisk

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"frisk/internal/core/match"
	"frisk/internal/model"
)

const (
	DefaultPokeInterval = 100 * time.Millisecond
	DefaultPokeFiles    = 64

	StatusStarting = "Frisking, please wait..."
)

type Options struct {
	Sink   Sink
	Logger *slog.Logger
	// A progress notification goes out after PokeFiles files or PokeInterval,
	// whichever comes first.
	PokeInterval time.Duration
	PokeFiles    int
}

type run struct {
	id     model.SearchID
	params model.SearchParams
	stop   atomic.Bool
	// prev is the run this one superseded; its worker must be gone before
	// this one touches the filesystem.
	prev *run
	done chan struct{}
}

// SearchContext runs at most one search at a time and reports on it through
// an ordered notification stream. All exported methods are safe for
// concurrent use.
type SearchContext struct {
	opts    Options
	log     *slog.Logger
	queue   *queue
	workers sync.WaitGroup

	// onFile is called by the worker before each file; tests use it to
	// interleave control calls deterministically.
	onFile func(id model.SearchID, path string)

	mu         sync.Mutex
	searchID   model.SearchID
	cur        *run
	running    bool
	closed     bool
	entries    []model.Entry
	transcript strings.Builder
	summary    model.Summary
}

func New(opts Options) *SearchContext {
	if opts.PokeInterval <= 0 {
		opts.PokeInterval = DefaultPokeInterval
	}
	if opts.PokeFiles <= 0 {
		opts.PokeFiles = DefaultPokeFiles
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &SearchContext{
		opts:  opts,
		log:   log,
		queue: newQueue(opts.Sink),
	}
}

type compiled struct {
	matcher  *match.Matcher
	filespec *match.Filespec
}

func compileParams(p model.SearchParams) (compiled, error) {
	var c compiled
	if len(p.Paths) == 0 {
		return c, match.NewConfigError("path", "", "at least one path is required")
	}
	m, err := match.Compile(p.Match, match.Options{
		Regex:           p.Flags.Has(model.FlagMatchRegex),
		CaseSensitive:   p.Flags.Has(model.FlagMatchCaseSensitive),
		WholeWord:       p.Flags.Has(model.FlagWholeWord),
		LegacyWholeWord: p.LegacyWholeWord,
	})
	if err != nil {
		return c, err
	}
	if p.Flags.Has(model.FlagReplace) {
		if err := match.ValidateReplacement(p.Replace); err != nil {
			return c, err
		}
	}
	fs, err := match.CompileFilespec(p.Filespecs, p.Flags.Has(model.FlagFilespecRegex), p.Flags.Has(model.FlagFilespecCaseSensitive))
	if err != nil {
		return c, err
	}
	c.matcher = m
	c.filespec = fs
	return c, nil
}

// Start validates params and launches a new run. A configuration error is
// returned without touching the current run or its results. Otherwise any
// in-flight run is told to stop and is superseded immediately. Start does not
// block; the new worker waits for the old one to return before it opens any
// file, so only one worker is ever doing file I/O.
func (sc *SearchContext) Start(params model.SearchParams) (model.SearchID, error) {
	if sc == nil {
		return 0, fmt.Errorf("search context is nil")
	}
	params = params.Clone()
	c, err := compileParams(params)
	if err != nil {
		return 0, err
	}

	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		return 0, fmt.Errorf("search context is closed")
	}
	if sc.cur != nil {
		sc.cur.stop.Store(true)
	}
	sc.searchID++
	r := &run{id: sc.searchID, params: params, prev: sc.cur, done: make(chan struct{})}
	sc.cur = r
	sc.running = true
	sc.entries = nil
	sc.transcript.Reset()
	sc.summary = model.Summary{}
	sc.queue.push(model.Notification{
		Kind:     model.KindState,
		SearchID: r.id,
		Running:  true,
		Status:   StatusStarting,
	})
	sc.workers.Add(1)
	sc.mu.Unlock()

	sc.log.Debug("search started", "search_id", r.id, "match", params.Match, "paths", params.Paths, "flags", params.Flags.String())
	go sc.work(r, c)
	return r.id, nil
}

// Stop asks the current run to finish after the file it is working on.
func (sc *SearchContext) Stop() {
	if sc == nil {
		return
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.cur != nil && sc.running {
		sc.cur.stop.Store(true)
	}
}

// Wait blocks until every worker this context started has returned.
func (sc *SearchContext) Wait() {
	if sc == nil {
		return
	}
	sc.workers.Wait()
}

// Close stops the current run, waits for it, and flushes the notification
// stream. The context cannot be started again.
func (sc *SearchContext) Close() {
	if sc == nil {
		return
	}
	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		return
	}
	sc.closed = true
	if sc.cur != nil {
		sc.cur.stop.Store(true)
	}
	sc.mu.Unlock()

	sc.workers.Wait()
	sc.queue.close()
}

func (sc *SearchContext) SearchID() model.SearchID {
	if sc == nil {
		return 0
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.searchID
}

func (sc *SearchContext) Running() bool {
	if sc == nil {
		return false
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.running
}

// Params returns the parameters of the latest run.
func (sc *SearchContext) Params() (model.SearchParams, bool) {
	if sc == nil {
		return model.SearchParams{}, false
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.cur == nil {
		return model.SearchParams{}, false
	}
	return sc.cur.params.Clone(), true
}

// Summary is the tally of the current run so far, or of the last finished one.
func (sc *SearchContext) Summary() model.Summary {
	if sc == nil {
		return model.Summary{}
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	s := sc.summary
	s.Errors = append([]model.FileError(nil), sc.summary.Errors...)
	return s
}

// Lock and Unlock guard the result list for callers that need several
// lookups to agree with each other.
func (sc *SearchContext) Lock()   { sc.mu.Lock() }
func (sc *SearchContext) Unlock() { sc.mu.Unlock() }

// EntriesLocked exposes the result list. The caller must hold Lock and must
// not modify or retain the slice past Unlock.
func (sc *SearchContext) EntriesLocked() []model.Entry {
	return sc.entries
}

// EntryAtLocked resolves a transcript offset to the entry whose rendered
// line contains it: the first entry whose end offset is greater than offset.
// The caller must hold Lock.
func (sc *SearchContext) EntryAtLocked(offset int) (model.Entry, bool) {
	if offset < 0 {
		return model.Entry{}, false
	}
	i := sort.Search(len(sc.entries), func(i int) bool {
		return sc.entries[i].Offset > offset
	})
	if i >= len(sc.entries) {
		return model.Entry{}, false
	}
	return sc.entries[i], true
}

func (sc *SearchContext) EntryAt(offset int) (model.Entry, bool) {
	if sc == nil {
		return model.Entry{}, false
	}
	sc.Lock()
	defer sc.Unlock()
	return sc.EntryAtLocked(offset)
}

func (sc *SearchContext) Entries() []model.Entry {
	if sc == nil {
		return nil
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return append([]model.Entry(nil), sc.entries...)
}

// Transcript is the rendered text of every entry so far, one line each.
func (sc *SearchContext) Transcript() string {
	if sc == nil {
		return ""
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.transcript.String()
}

// EntryPrefix is what precedes an entry's text on its transcript line.
func EntryPrefix(e model.Entry) string {
	return fmt.Sprintf("%s(%d): ", e.Display, e.Line)
}

// appendLocked adds entries to the result list and transcript, assigning
// their offsets. It returns the batch text with highlights relative to it.
func (sc *SearchContext) appendLocked(entries []model.Entry) (string, []model.Highlight) {
	if len(entries) == 0 {
		return "", nil
	}
	var b strings.Builder
	var hl []model.Highlight
	base := sc.transcript.Len()
	for i := range entries {
		prefix := EntryPrefix(entries[i])
		start := b.Len()
		b.WriteString(prefix)
		b.WriteString(entries[i].Text)
		b.WriteByte('\n')
		for _, h := range entries[i].Highlights {
			hl = append(hl, model.Highlight{Offset: start + len(prefix) + h.Offset, Length: h.Length})
		}
		entries[i].Offset = base + b.Len()
	}
	text := b.String()
	sc.transcript.WriteString(text)
	sc.entries = append(sc.entries, entries...)
	return text, hl
}
