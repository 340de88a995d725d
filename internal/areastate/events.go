package areastate

import (
	"sync"
	"time"
)

type EventKind string

const (
	EventLocationAdded  EventKind = "LOCATION_ADDED"
	EventContainerAdded EventKind = "CONTAINER_ADDED"
)

// Event is published synchronously from the tick that discovered the record.
// Exactly one of Location or Container is set.
type Event struct {
	Kind      EventKind        `json:"kind"`
	Instance  InstanceKey      `json:"instance"`
	AreaID    string           `json:"area_id"`
	At        time.Time        `json:"at"`
	Location  *Location        `json:"location,omitempty"`
	Container *ContainerRecord `json:"container,omitempty"`
}

// Listener receives discovery events. Implementations must return quickly; the
// tick is blocked for as long as Notify runs.
type Listener interface {
	Notify(ev Event)
}

type ListenerFunc func(ev Event)

func (f ListenerFunc) Notify(ev Event) { f(ev) }

type nopListener struct{}

func (nopListener) Notify(Event) {}

// MultiListener fans one event out to several listeners in order.
type MultiListener []Listener

func (m MultiListener) Notify(ev Event) {
	for _, l := range m {
		if l != nil {
			l.Notify(ev)
		}
	}
}

// Queue is an outbound event queue drained by a consumer at its own pace.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

func (q *Queue) Notify(ev Event) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Drain hands over everything queued so far.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	out := q.events
	q.events = nil
	q.mu.Unlock()
	return out
}
