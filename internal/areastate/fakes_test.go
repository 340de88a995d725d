package areastate

import (
	"testing"
	"time"

	"areastate.ai/internal/areas"
	"areastate.ai/internal/geom"
	"areastate.ai/internal/tuning"
)

type fakeClock struct{ now time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeWorld struct {
	inGame   bool
	dead     bool
	key      InstanceKey
	hasKey   bool
	area     areas.Area
	pos      geom.Point
	objs     map[ObjectKind][]Object
	unlocked map[string]bool
	mods     map[string]int

	highlightEnabled bool
	highlighted      map[int]bool

	// walkOffset is added to every raw position snapped to walkable ground.
	walkOffset geom.Point
}

func newFakeWorld(key InstanceKey, area areas.Area) *fakeWorld {
	return &fakeWorld{
		inGame:      true,
		key:         key,
		hasKey:      true,
		area:        area,
		objs:        map[ObjectKind][]Object{},
		unlocked:    map[string]bool{},
		mods:        map[string]int{},
		highlighted: map[int]bool{},
	}
}

func (w *fakeWorld) enter(key InstanceKey, area areas.Area) {
	w.key = key
	w.hasKey = true
	w.area = area
	w.objs = map[ObjectKind][]Object{}
}

func (w *fakeWorld) set(kind ObjectKind, objs ...Object) {
	for i := range objs {
		objs[i].Kind = kind
	}
	w.objs[kind] = objs
}

func (w *fakeWorld) InGame() bool { return w.inGame }
func (w *fakeWorld) IsDead() bool { return w.dead }

func (w *fakeWorld) InstanceKey() (InstanceKey, bool) { return w.key, w.hasKey }

func (w *fakeWorld) Area() (areas.Area, bool) { return w.area, w.hasKey }

func (w *fakeWorld) Position() geom.Point { return w.pos }

func (w *fakeWorld) Objects(kind ObjectKind) []Object {
	out := make([]Object, len(w.objs[kind]))
	copy(out, w.objs[kind])
	return out
}

func (w *fakeWorld) ObjectByID(id int) (Object, bool) {
	for _, objs := range w.objs {
		for _, o := range objs {
			if o.ID == id {
				return o, true
			}
		}
	}
	return Object{}, false
}

func (w *fakeWorld) ObjectByName(name string) (Object, bool) {
	for _, objs := range w.objs {
		for _, o := range objs {
			if o.Name == name {
				return o, true
			}
		}
	}
	return Object{}, false
}

func (w *fakeWorld) WalkableNear(p geom.Point) geom.Point {
	return geom.Pt(p.X+w.walkOffset.X, p.Y+w.walkOffset.Y)
}

func (w *fakeWorld) WaypointUnlocked(areaID string) bool { return w.unlocked[areaID] }

func (w *fakeWorld) HighlightVisible(id int) (bool, bool) {
	return w.highlighted[id], w.highlightEnabled
}

func (w *fakeWorld) MapMods() map[string]int { return w.mods }

type fakeBlacklist map[int]bool

func (b fakeBlacklist) Contains(id int) bool { return b[id] }

// countingFilter accepts names listed in accept and counts every evaluation per id.
type countingFilter struct {
	accept map[string]bool
	calls  map[int]int
}

func newCountingFilter(names ...string) *countingFilter {
	f := &countingFilter{accept: map[string]bool{}, calls: map[int]int{}}
	for _, n := range names {
		f.accept[n] = true
	}
	return f
}

func (f *countingFilter) Match(obj Object) (string, bool) {
	f.calls[obj.ID]++
	if f.accept[obj.Name] || f.accept["*"] {
		return "test", true
	}
	return "", false
}

var (
	townArea      = areas.Area{ID: "1_1_town", Name: "Lioneye's Watch", Kinds: areas.KindTown, HasWaypoint: true}
	otherTownArea = areas.Area{ID: "1_2_town", Name: "The Forest Encampment", Kinds: areas.KindTown, HasWaypoint: true}
	coastArea     = areas.Area{ID: "1_1_2", Name: "The Coast", Kinds: areas.KindOverworld, HasWaypoint: true}
	tidalArea     = areas.Area{ID: "1_1_3", Name: "The Tidal Island", Kinds: areas.KindOverworld}
	hideoutArea   = areas.Area{ID: "HideoutCoastal", Name: "Coastal Hideout", Kinds: areas.KindHideout}
	strandMap     = areas.Area{ID: "MapAtlasStrand", Name: "Strand Map", Kinds: areas.KindMap}
	beachMap      = areas.Area{ID: "MapAtlasBeach", Name: "Beach Map", Kinds: areas.KindMap}
	missionArea   = areas.Area{ID: "MissionTora1", Name: "Tora's Hunt", Kinds: areas.KindMission}
)

type harness struct {
	w      *fakeWorld
	clk    *fakeClock
	bl     fakeBlacklist
	filter *countingFilter
	events *Queue
	reg    *Registry
}

func newHarness(t *testing.T, key InstanceKey, area areas.Area) *harness {
	t.Helper()
	h := &harness{
		w:      newFakeWorld(key, area),
		clk:    newFakeClock(),
		bl:     fakeBlacklist{},
		filter: newCountingFilter(),
		events: &Queue{},
	}
	reg, err := NewRegistry(Options{
		World:     h.w,
		Filter:    h.filter,
		Blacklist: h.bl,
		Areas:     areas.Default(),
		Listener:  h.events,
		Clock:     h.clk,
		Tuning:    tuning.Defaults().Cache,
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	h.reg = reg
	return h
}

func (h *harness) current(t *testing.T) *Cache {
	t.Helper()
	c, ok := h.reg.Current()
	if !ok {
		t.Fatalf("no current cache")
	}
	return c
}

// step advances the clock and ticks once.
func (h *harness) step(d time.Duration) {
	h.clk.Advance(d)
	h.reg.Tick()
}
