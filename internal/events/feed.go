// Package events carries cross-dialog notifications to front-end clients.
// Today there is a single event type: a message arrived in a dialog with no
// assigned support user. The feed is broadcast — every subscriber owns its
// own FIFO cursor and sees every event — so multiple front-ends can watch
// for unassigned dialogs without stealing notifications from each other.
package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Type tags an event.
type Type string

// NewUnassignedDialogMessage signals an inbound message in a dialog whose
// assigned user is absent. The payload is the dialog id.
const NewUnassignedDialogMessage Type = "NEW_UNASSIGNED_DIALOG_MESSAGE"

// Event is one feed entry. The JSON shape is the wire frame sent to
// websocket clients.
type Event struct {
	Type     Type      `json:"event_type"`
	DialogID uuid.UUID `json:"payload"`
}

// Feed is a process-wide broadcast stream. Publish never blocks; each
// subscriber buffers independently and reads in publish order.
type Feed struct {
	mu   sync.Mutex
	subs map[uint64]*Subscription
	next uint64
}

// NewFeed returns an empty feed with no subscribers.
func NewFeed() *Feed {
	return &Feed{subs: make(map[uint64]*Subscription)}
}

// Publish appends ev to every active subscription.
func (f *Feed) Publish(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		s.push(ev)
	}
}

// Subscribe registers a new subscriber. Events published before Subscribe
// are not replayed. Callers must Close the subscription when done.
func (f *Feed) Subscribe() *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := &Subscription{feed: f, id: f.next}
	f.next++
	f.subs[s.id] = s
	return s
}

// Subscription is one subscriber's cursor into the feed.
type Subscription struct {
	feed *Feed
	id   uint64

	mu      sync.Mutex
	backlog []Event
	waiter  chan Event // at most one parked Next
	closed  bool
}

func (s *Subscription) push(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.waiter != nil {
		s.waiter <- ev // buffered, cannot block
		s.waiter = nil
		return
	}
	s.backlog = append(s.backlog, ev)
}

// Next returns the oldest unconsumed event, parking until one is published
// or ctx is cancelled. At most one Next may be in flight per subscription.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	s.mu.Lock()
	if len(s.backlog) > 0 {
		ev := s.backlog[0]
		s.backlog = s.backlog[1:]
		s.mu.Unlock()
		return ev, nil
	}

	w := make(chan Event, 1)
	s.waiter = w
	s.mu.Unlock()

	select {
	case ev := <-w:
		return ev, nil
	case <-ctx.Done():
	}

	s.mu.Lock()
	if s.waiter == w {
		s.waiter = nil
		s.mu.Unlock()
		return Event{}, ctx.Err()
	}
	s.mu.Unlock()

	// push already handed an event to w; don't drop it.
	return <-w, nil
}

// Close unregisters the subscription. Pending events are discarded and any
// parked Next returns once its context is cancelled.
func (s *Subscription) Close() {
	s.feed.mu.Lock()
	delete(s.feed.subs, s.id)
	s.feed.mu.Unlock()

	s.mu.Lock()
	s.closed = true
	s.backlog = nil
	s.mu.Unlock()
}
