package frisk

import (
	"sync"

	"frisk/internal/model"
)

// queue delivers notifications to one sink, in push order, from a single
// goroutine. Pushing never blocks on the sink.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []model.Notification
	closed bool
	done   chan struct{}
}

func newQueue(sink Sink) *queue {
	q := &queue{done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.run(sink)
	return q
}

func (q *queue) push(n model.Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, n)
	q.cond.Signal()
}

func (q *queue) run(sink Sink) {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.items) == 0 && q.closed {
			q.mu.Unlock()
			return
		}
		batch := q.items
		q.items = nil
		q.mu.Unlock()

		for _, n := range batch {
			if sink != nil {
				sink.Notify(n)
			}
		}
	}
}

// close delivers what is already queued, then stops the dispatcher.
func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	<-q.done
}
