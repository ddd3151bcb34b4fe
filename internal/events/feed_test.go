package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/oneweb/helpdesk-chat/internal/domain"
)

func TestPublishOrder(t *testing.T) {
	f := NewFeed()
	sub := f.Subscribe()
	defer sub.Close()

	ids := make([]uuid.UUID, 10)
	for i := range ids {
		ids[i] = domain.NewID()
		f.Publish(Event{Type: NewUnassignedDialogMessage, DialogID: ids[i]})
	}

	for i, want := range ids {
		ev, err := sub.Next(context.Background())
		if err != nil {
			t.Fatalf("Next %d: %v", i, err)
		}
		if ev.DialogID != want {
			t.Fatalf("event %d: got %s, want %s", i, ev.DialogID, want)
		}
		if ev.Type != NewUnassignedDialogMessage {
			t.Errorf("event %d: type %q", i, ev.Type)
		}
	}
}

func TestBroadcastToAllSubscribers(t *testing.T) {
	f := NewFeed()
	a := f.Subscribe()
	defer a.Close()
	b := f.Subscribe()
	defer b.Close()

	id := domain.NewID()
	f.Publish(Event{Type: NewUnassignedDialogMessage, DialogID: id})

	for name, sub := range map[string]*Subscription{"a": a, "b": b} {
		ev, err := sub.Next(context.Background())
		if err != nil {
			t.Fatalf("subscriber %s: %v", name, err)
		}
		if ev.DialogID != id {
			t.Errorf("subscriber %s: got %s, want %s", name, ev.DialogID, id)
		}
	}
}

func TestNextBlocksUntilPublish(t *testing.T) {
	f := NewFeed()
	sub := f.Subscribe()
	defer sub.Close()

	got := make(chan Event, 1)
	go func() {
		ev, err := sub.Next(context.Background())
		if err != nil {
			t.Errorf("Next: %v", err)
			return
		}
		got <- ev
	}()

	select {
	case <-got:
		t.Fatal("Next returned before any publish")
	case <-time.After(20 * time.Millisecond):
	}

	id := domain.NewID()
	f.Publish(Event{Type: NewUnassignedDialogMessage, DialogID: id})

	select {
	case ev := <-got:
		if ev.DialogID != id {
			t.Errorf("got %s, want %s", ev.DialogID, id)
		}
	case <-time.After(time.Second):
		t.Fatal("Next never woke up")
	}
}

func TestNextCancelled(t *testing.T) {
	f := NewFeed()
	sub := f.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := sub.Next(ctx)
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if err != context.Canceled {
			t.Errorf("got %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled Next did not return")
	}
}

func TestClosedSubscriptionStopsReceiving(t *testing.T) {
	f := NewFeed()
	a := f.Subscribe()
	b := f.Subscribe()
	defer b.Close()

	a.Close()
	f.Publish(Event{Type: NewUnassignedDialogMessage, DialogID: domain.NewID()})

	// b still receives; a's backlog stays empty.
	if _, err := b.Next(context.Background()); err != nil {
		t.Fatalf("live subscriber: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := a.Next(ctx); err == nil {
		t.Error("closed subscription still delivered an event")
	}
}
