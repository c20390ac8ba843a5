package events

import (
	"context"
	"testing"
	"time"
)

func TestQueueOrder(t *testing.T) {
	q := NewQueue()
	q.Put(New(StatusPayload{Phase: PhaseStarted}))
	q.Put(New(TokenPayload{Index: 1, Token: "hello"}))
	q.Put(New(EndPayload{}))

	ctx := context.Background()
	kinds := []Kind{KindStatus, KindToken, KindEnd}
	for i, want := range kinds {
		ev, err := q.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		if ev.Kind != want {
			t.Fatalf("event %d: expected kind %q, got %q", i, want, ev.Kind)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("expected drained queue, got %d items", q.Len())
	}
}

func TestQueuePutNeverBlocks(t *testing.T) {
	q := NewQueue()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			q.Put(New(TokenPayload{Index: i + 1, Token: "t"}))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("producer blocked without a consumer")
	}
	if q.Len() != 10000 {
		t.Fatalf("expected 10000 queued events, got %d", q.Len())
	}
}

func TestQueueNextWakesOnPut(t *testing.T) {
	q := NewQueue()

	got := make(chan Event, 1)
	go func() {
		ev, err := q.Next(context.Background())
		if err != nil {
			return
		}
		got <- ev
	}()

	time.Sleep(10 * time.Millisecond)
	q.Put(New(EndPayload{TaskID: "t1"}))

	select {
	case ev := <-got:
		if ev.Kind != KindEnd {
			t.Fatalf("expected end event, got %q", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("consumer did not wake on put")
	}
}

func TestQueueNextHonorsContext(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := q.Next(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
