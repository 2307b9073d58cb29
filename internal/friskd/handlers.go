package friskd

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"frisk/internal/config"
	"frisk/internal/core/cache"
	"frisk/internal/core/frisk"
	"frisk/internal/core/match"
	"frisk/internal/model"
	"frisk/internal/store/sqlite"
)

const DefaultFindCacheSize = 64

// Notifier delivers a context's notifications to whoever opened it.
type Notifier func(contextID string, n model.Notification)

// FindHistory keeps the most recently used find texts.
type FindHistory interface {
	PushHistory(list string, value string, max int) error
}

type HandlerOptions struct {
	Logger        *slog.Logger
	PokeInterval  time.Duration
	PokeFiles     int
	FindCacheSize int

	// FindDefaults fills the options a search.find request leaves unset.
	FindDefaults config.Find

	// History, when set, records every search.find text in the find list.
	History    FindHistory
	MaxHistory int
}

type searchContext struct {
	id     string
	owner  uint64
	sc     *frisk.SearchContext
	finder frisk.Finder
}

type Handlers struct {
	opts HandlerOptions
	log  *slog.Logger

	mu       sync.RWMutex
	contexts map[string]*searchContext
	matchers *cache.LRU[frisk.FindQuery, *match.Matcher]
}

func NewHandlers(opts HandlerOptions) *Handlers {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if opts.FindCacheSize <= 0 {
		opts.FindCacheSize = DefaultFindCacheSize
	}
	return &Handlers{
		opts:     opts,
		log:      log,
		contexts: map[string]*searchContext{},
		matchers: cache.NewLRU[frisk.FindQuery, *match.Matcher](opts.FindCacheSize),
	}
}

// ContextOpen creates a search context owned by connection owner.
func (h *Handlers) ContextOpen(owner uint64, notify Notifier) (ContextOpenResult, error) {
	if h == nil {
		return ContextOpenResult{}, fmt.Errorf("handlers is nil")
	}
	id := uuid.NewString()
	var sink frisk.Sink
	if notify != nil {
		sink = frisk.SinkFunc(func(n model.Notification) { notify(id, n) })
	}
	c := &searchContext{
		id:    id,
		owner: owner,
		sc: frisk.New(frisk.Options{
			Sink:         sink,
			Logger:       h.log.With("context_id", id),
			PokeInterval: h.opts.PokeInterval,
			PokeFiles:    h.opts.PokeFiles,
		}),
	}

	h.mu.Lock()
	h.contexts[id] = c
	h.mu.Unlock()
	h.log.Debug("context opened", "context_id", id, "owner", owner)
	return ContextOpenResult{ContextID: id}, nil
}

func (h *Handlers) ContextClose(p ContextParams) error {
	if h == nil {
		return fmt.Errorf("handlers is nil")
	}
	id := strings.TrimSpace(p.ContextID)
	h.mu.Lock()
	c, ok := h.contexts[id]
	delete(h.contexts, id)
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("context not found")
	}
	c.sc.Close()
	return nil
}

// CloseOwner closes every context a connection opened.
func (h *Handlers) CloseOwner(owner uint64) {
	if h == nil {
		return
	}
	var closing []*searchContext
	h.mu.Lock()
	for id, c := range h.contexts {
		if c.owner == owner {
			closing = append(closing, c)
			delete(h.contexts, id)
		}
	}
	h.mu.Unlock()
	for _, c := range closing {
		c.sc.Close()
	}
}

func (h *Handlers) Close() {
	if h == nil {
		return
	}
	h.mu.Lock()
	all := h.contexts
	h.contexts = map[string]*searchContext{}
	h.mu.Unlock()
	for _, c := range all {
		c.sc.Close()
	}
}

func (h *Handlers) SearchStart(p SearchStartParams) (SearchStartResult, error) {
	c, err := h.get(p.ContextID)
	if err != nil {
		return SearchStartResult{}, err
	}
	id, err := c.sc.Start(p.Params)
	if err != nil {
		return SearchStartResult{}, err
	}
	return SearchStartResult{SearchID: id}, nil
}

func (h *Handlers) SearchStop(p ContextParams) (SearchStatusResult, error) {
	c, err := h.get(p.ContextID)
	if err != nil {
		return SearchStatusResult{}, err
	}
	c.sc.Stop()
	return status(c.sc), nil
}

func (h *Handlers) SearchStatus(p ContextParams) (SearchStatusResult, error) {
	c, err := h.get(p.ContextID)
	if err != nil {
		return SearchStatusResult{}, err
	}
	return status(c.sc), nil
}

// EntryAt returns nil when offset is past the last entry.
func (h *Handlers) EntryAt(p EntryAtParams) (*model.Entry, error) {
	c, err := h.get(p.ContextID)
	if err != nil {
		return nil, err
	}
	c.sc.Lock()
	defer c.sc.Unlock()
	e, ok := c.sc.EntryAtLocked(p.Offset)
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (h *Handlers) Find(p FindParams) (FindResult, error) {
	c, err := h.get(p.ContextID)
	if err != nil {
		return FindResult{}, err
	}
	def := h.opts.FindDefaults
	q := frisk.FindQuery{
		Text:          p.Text,
		Regex:         boolOr(p.Regex, def.Regex),
		CaseSensitive: boolOr(p.CaseSensitive, def.MatchCase),
		WholeWord:     boolOr(p.WholeWord, def.WholeWord),
	}
	m, err := h.matchers.GetOrLoad(q, q.Compile)
	if err != nil {
		if match.IsConfigError(err) {
			h.log.Debug("find rejected", "context_id", c.id, "text", p.Text, "err", err)
		}
		return FindResult{}, err
	}
	h.recordFind(p.Text)
	sp, ok := c.sc.FindNext(&c.finder, m, p.From)
	h.log.Debug("find", "context_id", c.id, "pattern", m.Pattern(), "regex", m.IsRegex(), "from", p.From, "found", ok)
	if !ok {
		return FindResult{}, nil
	}
	return FindResult{Found: true, Offset: sp.Start, Length: sp.Length}, nil
}

func (h *Handlers) recordFind(text string) {
	if h.opts.History == nil || strings.TrimSpace(text) == "" {
		return
	}
	if err := h.opts.History.PushHistory(sqlite.ListFind, text, h.opts.MaxHistory); err != nil {
		h.log.Warn("record find history", "err", err)
	}
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func (h *Handlers) get(contextID string) (*searchContext, error) {
	if h == nil {
		return nil, fmt.Errorf("handlers is nil")
	}
	h.mu.RLock()
	c, ok := h.contexts[strings.TrimSpace(contextID)]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("context not found")
	}
	return c, nil
}

func status(sc *frisk.SearchContext) SearchStatusResult {
	res := SearchStatusResult{
		Running:  sc.Running(),
		SearchID: sc.SearchID(),
		Summary:  sc.Summary(),
	}
	if p, ok := sc.Params(); ok {
		res.Params = &p
	}
	return res
}
