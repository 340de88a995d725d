package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"areastate.ai/internal/areastate"
)

func TestHub_FanOutAndDrop(t *testing.T) {
	h := NewHub()
	fast, cancelFast := h.Subscribe(4)
	defer cancelFast()
	slow, cancelSlow := h.Subscribe(1)
	defer cancelSlow()

	for i := 0; i < 3; i++ {
		h.Notify(areastate.Event{Kind: areastate.EventLocationAdded, Instance: areastate.InstanceKey(i)})
	}
	if len(fast) != 3 || len(slow) != 1 {
		t.Fatalf("buffered: fast=%d slow=%d", len(fast), len(slow))
	}
	if h.Dropped() != 2 {
		t.Fatalf("dropped: %d", h.Dropped())
	}
}

func TestHub_CancelClosesAndUnsubscribes(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(1)
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed")
	}
	if h.Subscribers() != 0 {
		t.Fatalf("subscriber not removed")
	}
	h.Notify(areastate.Event{})
}

func TestHub_PumpDeliversToSink(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []areastate.EventKind
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Pump(ctx, "test", 8, SinkFunc(func(_ context.Context, ev areastate.Event) error {
			mu.Lock()
			got = append(got, ev.Kind)
			mu.Unlock()
			return nil
		}), nil)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for h.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("pump never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	h.Notify(areastate.Event{Kind: areastate.EventContainerAdded})

	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("sink never received the event")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}
