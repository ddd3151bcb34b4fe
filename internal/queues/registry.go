// Package queues implements the per-dialog delivery queue registry: the
// in-memory hand-off point between webhook processing and live agent
// sessions. Each dialog id maps to one unbounded FIFO queue of messages;
// the queue is created lazily by whichever side touches the key first, so
// a producer and a consumer racing on a brand-new dialog still rendezvous.
package queues

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/oneweb/helpdesk-chat/internal/domain"
)

// Registry maps dialog ids to message queues. Safe for concurrent use
// across keys; access to one key never blocks another. The registry does
// not enforce single-consumer per key — one active session per dialog is
// the chat handler's discipline.
type Registry struct {
	mu     sync.RWMutex
	queues map[uuid.UUID]*queue
}

type queue struct {
	mu      sync.Mutex
	backlog []*domain.Message
	// waiters are parked Get calls, oldest first. Each channel has
	// capacity 1 so Put never blocks on delivery.
	waiters []chan *domain.Message
	// evicted marks a queue already unlinked from the registry map.
	// A caller that locked such a queue raced Evict and must retry
	// getOrCreate; anything it wrote here would be unreachable.
	evicted bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{queues: make(map[uuid.UUID]*queue)}
}

func (r *Registry) getOrCreate(id uuid.UUID) *queue {
	r.mu.RLock()
	q, ok := r.queues[id]
	r.mu.RUnlock()
	if ok {
		return q
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.queues[id]; ok {
		return q
	}
	q = &queue{}
	r.queues[id] = q
	return q
}

// Put appends msg to the queue for the given dialog, creating the queue if
// needed. It hands the message directly to the oldest parked Get when one
// exists. Put never blocks and never fails.
func (r *Registry) Put(id uuid.UUID, msg *domain.Message) {
	for {
		q := r.getOrCreate(id)

		q.mu.Lock()
		if q.evicted {
			// Lost a race with Evict between the registry lookup and the
			// queue lock; the entry is gone from the map, so a retry gets
			// a fresh one.
			q.mu.Unlock()
			continue
		}

		if len(q.waiters) > 0 {
			w := q.waiters[0]
			q.waiters = q.waiters[1:]
			w <- msg // buffered, cannot block
		} else {
			q.backlog = append(q.backlog, msg)
		}
		q.mu.Unlock()
		return
	}
}

// Get removes and returns the oldest message for the given dialog. When the
// queue is empty it parks until a message arrives or ctx is cancelled; a
// cancelled wait returns ctx.Err() and never loses a message.
func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	var q *queue
	var w chan *domain.Message
	for {
		q = r.getOrCreate(id)

		q.mu.Lock()
		if q.evicted {
			// Raced Evict; a waiter parked here would never be served.
			q.mu.Unlock()
			continue
		}

		if len(q.backlog) > 0 {
			msg := q.backlog[0]
			q.backlog = q.backlog[1:]
			q.mu.Unlock()
			return msg, nil
		}

		w = make(chan *domain.Message, 1)
		q.waiters = append(q.waiters, w)
		q.mu.Unlock()
		break
	}

	select {
	case msg := <-w:
		return msg, nil
	case <-ctx.Done():
	}

	// Cancelled. Put delivers while holding q.mu, so either the waiter is
	// still registered (no message) or it has already been handed one.
	q.mu.Lock()
	for i, other := range q.waiters {
		if other == w {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			q.mu.Unlock()
			return nil, ctx.Err()
		}
	}
	q.mu.Unlock()

	// Lost the race: a message was already delivered. Prefer it over the
	// cancellation so it is not dropped.
	return <-w, nil
}

// Evict removes the registry entry for a dialog if its queue is empty and
// nobody is waiting on it. Called by the session handler when a session
// ends, so idle dialogs do not pin queues forever. Returns true when the
// entry was removed.
func (r *Registry) Evict(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.queues[id]
	if !ok {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.backlog) > 0 || len(q.waiters) > 0 {
		return false
	}
	q.evicted = true
	delete(r.queues, id)
	return true
}

// Len reports the number of undelivered messages queued for a dialog.
func (r *Registry) Len(id uuid.UUID) int {
	r.mu.RLock()
	q, ok := r.queues[id]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}
