package areastate

import (
	"sort"

	"areastate.ai/internal/geom"
)

// ItemSighting is a ground item judged worth coming back for.
type ItemSighting struct {
	ID       int        `json:"id"`
	Name     string     `json:"name"`
	Position geom.Point `json:"position"`
	Rarity   Rarity     `json:"rarity"`
	Metadata string     `json:"metadata"`
}

// Sightings holds accepted items plus the ignore set of every item already
// judged, keyed by id with the position it was judged at.
type Sightings struct {
	byID   map[int]ItemSighting
	ignore map[int]geom.Point
}

func newSightings() Sightings {
	return Sightings{byID: map[int]ItemSighting{}, ignore: map[int]geom.Point{}}
}

func (s *Sightings) Len() int        { return len(s.byID) }
func (s *Sightings) IgnoredLen() int { return len(s.ignore) }

func (s *Sightings) Has(id int) bool {
	_, ok := s.byID[id]
	return ok
}

func (s *Sightings) put(it ItemSighting) { s.byID[it.ID] = it }

func (s *Sightings) remove(id int) { delete(s.byID, id) }

func (s *Sightings) Snapshot() []ItemSighting {
	out := make([]ItemSighting, 0, len(s.byID))
	for _, it := range s.byID {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Sightings) clearIgnore() { s.ignore = map[int]geom.Point{} }

func (s *Sightings) clear() {
	s.byID = map[int]ItemSighting{}
	s.clearIgnore()
}
