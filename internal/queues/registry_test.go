package queues

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/oneweb/helpdesk-chat/internal/domain"
)

func msg(text string) *domain.Message {
	return &domain.Message{ID: domain.NewID(), Text: text}
}

func TestPutThenGet(t *testing.T) {
	r := NewRegistry()
	id := domain.NewID()

	want := msg("help")
	r.Put(id, want)

	got, err := r.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != want {
		t.Errorf("got %q, want %q", got.Text, want.Text)
	}
}

func TestFIFOOrder(t *testing.T) {
	r := NewRegistry()
	id := domain.NewID()

	const n = 100
	for i := 0; i < n; i++ {
		r.Put(id, msg(fmt.Sprintf("m%d", i)))
	}

	for i := 0; i < n; i++ {
		got, err := r.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get %d: %v", i, err)
		}
		if want := fmt.Sprintf("m%d", i); got.Text != want {
			t.Fatalf("message %d: got %q, want %q", i, got.Text, want)
		}
	}
}

func TestFIFOOrderInterleaved(t *testing.T) {
	r := NewRegistry()
	id := domain.NewID()

	const n = 200
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < n; i++ {
			r.Put(id, msg(fmt.Sprintf("m%d", i)))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < n; i++ {
		got, err := r.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get %d: %v", i, err)
		}
		if want := fmt.Sprintf("m%d", i); got.Text != want {
			t.Fatalf("message %d: got %q, want %q", i, got.Text, want)
		}
	}
	<-done
}

func TestGetBeforePutRendezvous(t *testing.T) {
	r := NewRegistry()
	id := domain.NewID()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan *domain.Message, 1)
	ready := make(chan struct{})
	go func() {
		close(ready)
		m, err := r.Get(ctx, id)
		if err != nil {
			t.Errorf("Get: %v", err)
			return
		}
		got <- m
	}()

	<-ready
	// Give the getter a chance to park before the first Put.
	time.Sleep(10 * time.Millisecond)

	want := msg("first")
	r.Put(id, want)

	select {
	case m := <-got:
		if m != want {
			t.Errorf("got %q, want %q", m.Text, want.Text)
		}
	case <-ctx.Done():
		t.Fatal("Get never received the message")
	}
}

func TestKeysDoNotCrossDeliver(t *testing.T) {
	r := NewRegistry()
	k1, k2 := domain.NewID(), domain.NewID()

	r.Put(k1, msg("for-k1"))
	r.Put(k2, msg("for-k2"))

	got1, _ := r.Get(context.Background(), k1)
	got2, _ := r.Get(context.Background(), k2)

	if got1.Text != "for-k1" {
		t.Errorf("k1: got %q", got1.Text)
	}
	if got2.Text != "for-k2" {
		t.Errorf("k2: got %q", got2.Text)
	}
}

func TestConcurrentProducersSingleConsumer(t *testing.T) {
	r := NewRegistry()
	id := domain.NewID()

	const producers = 8
	const perProducer = 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				r.Put(id, msg("x"))
			}
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < producers*perProducer; i++ {
		if _, err := r.Get(ctx, id); err != nil {
			t.Fatalf("Get %d: %v", i, err)
		}
	}
	wg.Wait()

	if n := r.Len(id); n != 0 {
		t.Errorf("queue not drained: %d left", n)
	}
}

func TestGetCancelled(t *testing.T) {
	r := NewRegistry()
	id := domain.NewID()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := r.Get(ctx, id)
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
		t.Fatal("cancelled Get did not return")
	}

	// A cancelled waiter must not steal a later message.
	r.Put(id, msg("after-cancel"))
	got, err := r.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Text != "after-cancel" {
		t.Errorf("got %q", got.Text)
	}
}

func TestEvict(t *testing.T) {
	r := NewRegistry()
	id := domain.NewID()

	r.Put(id, msg("pending"))
	if r.Evict(id) {
		t.Error("evicted a non-empty queue")
	}

	if _, err := r.Get(context.Background(), id); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !r.Evict(id) {
		t.Error("empty queue not evicted")
	}
	if r.Evict(id) {
		t.Error("evicting a missing key reported true")
	}

	// A fresh Put after eviction recreates the queue.
	r.Put(id, msg("again"))
	got, err := r.Get(context.Background(), id)
	if err != nil || got.Text != "again" {
		t.Fatalf("after eviction: got %v, %v", got, err)
	}
}

func TestPutSurvivesConcurrentEvict(t *testing.T) {
	r := NewRegistry()
	id := domain.NewID()

	// Session ends hammer Evict while webhooks keep delivering. A Put that
	// lands on a queue Evict just unlinked must still be retrievable.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				r.Evict(id)
			}
		}
	}()

	const n = 20000
	for i := 0; i < n; i++ {
		want := msg(fmt.Sprintf("m%d", i))
		r.Put(id, want)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		got, err := r.Get(ctx, id)
		cancel()
		if err != nil {
			t.Fatalf("iteration %d: message lost to a concurrent eviction: %v", i, err)
		}
		if got != want {
			t.Fatalf("iteration %d: got %q, want %q", i, got.Text, want.Text)
		}
	}

	close(stop)
	wg.Wait()
}

func TestParkedGetSurvivesConcurrentEvict(t *testing.T) {
	r := NewRegistry()
	id := domain.NewID()

	// Symmetric case: a Get parking its waiter on a queue Evict just
	// unlinked would stall forever while Put fills a fresh queue.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				r.Evict(id)
			}
		}
	}()

	const n = 20000
	for i := 0; i < n; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		got := make(chan *domain.Message, 1)
		errc := make(chan error, 1)
		go func() {
			m, err := r.Get(ctx, id)
			if err != nil {
				errc <- err
				return
			}
			got <- m
		}()

		want := msg(fmt.Sprintf("m%d", i))
		r.Put(id, want)

		select {
		case m := <-got:
			if m != want {
				t.Fatalf("iteration %d: got %q, want %q", i, m.Text, want.Text)
			}
		case err := <-errc:
			t.Fatalf("iteration %d: waiter stranded by a concurrent eviction: %v", i, err)
		}
		cancel()
	}

	close(stop)
	wg.Wait()
}
