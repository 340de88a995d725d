package notify

import (
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"areastate.ai/internal/areastate"
)

// Hub fans discovery events out to subscribers without ever blocking the
// publisher. A subscriber that falls behind loses events.
type Hub struct {
	mu   sync.RWMutex
	next int
	subs map[int]chan areastate.Event

	dropped atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{subs: map[int]chan areastate.Event{}}
}

func (h *Hub) Notify(ev areastate.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribe returns a buffered event channel and a cancel func that closes it.
func (h *Hub) Subscribe(buf int) (<-chan areastate.Event, func()) {
	if buf <= 0 {
		buf = 64
	}
	ch := make(chan areastate.Event, buf)
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Sink consumes events off the tick goroutine.
type Sink interface {
	Handle(ctx context.Context, ev areastate.Event) error
}

type SinkFunc func(ctx context.Context, ev areastate.Event) error

func (f SinkFunc) Handle(ctx context.Context, ev areastate.Event) error { return f(ctx, ev) }

// Pump subscribes sink to the hub and feeds it until ctx is done. Sink errors
// are logged and do not stop the pump.
func (h *Hub) Pump(ctx context.Context, name string, buf int, sink Sink, logger *log.Logger) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	ch, cancel := h.Subscribe(buf)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := sink.Handle(ctx, ev); err != nil {
				logger.Printf("[%s] %s %s: %v", name, ev.Kind, ev.Instance, err)
			}
		}
	}
}
