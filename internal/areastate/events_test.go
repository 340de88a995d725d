package areastate

import "testing"

func TestMultiListener_FansOutInOrder(t *testing.T) {
	var order []string
	q := &Queue{}
	m := MultiListener{
		ListenerFunc(func(Event) { order = append(order, "a") }),
		nil,
		q,
		ListenerFunc(func(Event) { order = append(order, "b") }),
	}
	m.Notify(Event{Kind: EventLocationAdded})
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order: %v", order)
	}
	if q.Len() != 1 {
		t.Fatalf("queue: %d", q.Len())
	}
	if got := q.Drain(); len(got) != 1 || q.Len() != 0 {
		t.Fatalf("drain: %d left=%d", len(got), q.Len())
	}
}

func TestAddLocation_StampsEvent(t *testing.T) {
	h := newHarness(t, 3, coastArea)
	c := h.current(t)
	c.AddLocation(c.Anchor(), 1, "Waypoint")
	c.AddLocation(c.Anchor(), 1, "Waypoint")
	if n := len(c.Locations("Waypoint")); n != 2 {
		t.Fatalf("AddLocation should not dedupe, got %d", n)
	}
	evs := h.events.Drain()
	if len(evs) != 2 || !evs[0].At.Equal(h.clk.Now()) || evs[0].AreaID != coastArea.ID || evs[0].Instance != 3 {
		t.Fatalf("events: %+v", evs)
	}
}
