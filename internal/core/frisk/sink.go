package frisk

import (
	"sync"

	"frisk/internal/model"
)

// Sink receives notifications from a SearchContext's dispatcher goroutine.
type Sink interface {
	Notify(n model.Notification)
}

type SinkFunc func(n model.Notification)

func (f SinkFunc) Notify(n model.Notification) { f(n) }

// CurrentOnly drops notifications that belong to a run other than the one
// current reports. This is the consumer-side stale filter.
func CurrentOnly(current func() model.SearchID, sink Sink) Sink {
	return SinkFunc(func(n model.Notification) {
		if sink == nil {
			return
		}
		if current != nil && n.SearchID != current() {
			return
		}
		sink.Notify(n)
	})
}

// Collector keeps every notification it receives.
type Collector struct {
	mu    sync.Mutex
	items []model.Notification
}

func (c *Collector) Notify(n model.Notification) {
	c.mu.Lock()
	c.items = append(c.items, n)
	c.mu.Unlock()
}

func (c *Collector) Notifications() []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Notification(nil), c.items...)
}
