package areastate

import "areastate.ai/internal/geom"

// Location is a remembered point of interest. It is never mutated after creation.
type Location struct {
	ID       int        `json:"id"`
	Name     string     `json:"name"`
	Position geom.Point `json:"position"`
}

// Ledger is the append-only list of locations of one instance.
type Ledger struct {
	locs []Location
}

func (l *Ledger) add(loc Location) { l.locs = append(l.locs, loc) }

func (l *Ledger) Len() int { return len(l.locs) }

func (l *Ledger) Has(name string) bool {
	for _, loc := range l.locs {
		if loc.Name == name {
			return true
		}
	}
	return false
}

// HasID distinguishes exits that share a name but are different objects.
func (l *Ledger) HasID(name string, id int) bool {
	for _, loc := range l.locs {
		if loc.Name == name && loc.ID == id {
			return true
		}
	}
	return false
}

func (l *Ledger) Named(name string) []Location {
	var out []Location
	for _, loc := range l.locs {
		if loc.Name == name {
			out = append(out, loc)
		}
	}
	return out
}

func (l *Ledger) All() []Location {
	out := make([]Location, len(l.locs))
	copy(out, l.locs)
	return out
}

func (l *Ledger) clear() { l.locs = nil }
