package areastate

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"areastate.ai/internal/areas"
	"areastate.ai/internal/geom"
)

const generalPeriod = 500 * time.Millisecond

func TestGeneral_StashAndWaypointInTown(t *testing.T) {
	h := newHarness(t, 1, townArea)
	h.w.set(ObjStash, Object{ID: 11, Name: "Stash", Position: geom.Pt(248, 502)})
	h.w.set(ObjWaypoint, Object{ID: 12, Name: "Waypoint", Position: geom.Pt(196, 474)})
	h.reg.Start()
	h.step(0)
	c := h.current(t)
	if !c.ShouldCheckForStash || c.HasStashLocation {
		t.Fatalf("stash flags before the first general pass: %+v", c)
	}

	h.step(generalPeriod)
	if !c.HasStashLocation || !c.HasLocationID("Stash", 11) {
		t.Fatalf("stash not discovered")
	}
	if !c.HasWaypointLocation || c.HasWaypointEntry || !c.ShouldCheckForWaypoint {
		t.Fatalf("waypoint flags: loc=%v entry=%v check=%v", c.HasWaypointLocation, c.HasWaypointEntry, c.ShouldCheckForWaypoint)
	}

	h.w.unlocked[townArea.ID] = true
	h.step(generalPeriod)
	if !c.HasWaypointEntry || c.ShouldCheckForWaypoint {
		t.Fatalf("waypoint should resolve once the entry is known")
	}
	if c.ShouldCheckForStash {
		t.Fatalf("stash search should stop after discovery")
	}
	if n := len(c.Locations("Stash")); n != 1 {
		t.Fatalf("stash recorded %d times", n)
	}
}

func TestGeneral_NoWaypointAreaStopsChecking(t *testing.T) {
	h := newHarness(t, 1, tidalArea)
	h.reg.Start()
	h.step(0)
	h.step(generalPeriod)
	c := h.current(t)
	if c.ShouldCheckForWaypoint || c.HasWaypointLocation || c.HasWaypointEntry {
		t.Fatalf("area without waypoint kept checking")
	}
	if c.ShouldCheckForStash {
		t.Fatalf("stash check outside town")
	}
}

func TestGeneral_AreaTransitionsDedupByNameAndID(t *testing.T) {
	h := newHarness(t, 1, coastArea)
	h.w.pos = geom.Pt(100, 100)
	h.w.set(ObjAreaTransition,
		Object{ID: 1, Name: "The Tidal Island", Position: geom.Pt(10, 10)},
		Object{ID: 2, Name: "Lioneye's Watch", Position: geom.Pt(90, 90)},
		Object{ID: 3, Name: "Lioneye's Watch", Position: geom.Pt(300, 300)},
	)
	h.reg.Start()
	h.step(0)
	h.step(generalPeriod)
	h.step(generalPeriod)

	c := h.current(t)
	if n := len(c.Locations("Lioneye's Watch")); n != 2 {
		t.Fatalf("same-name exits with different ids should both be kept, got %d", n)
	}
	if n := len(c.AllLocations()); n != 3 {
		t.Fatalf("locations: %d", n)
	}
	want := []string{"The Tidal Island", "Lioneye's Watch"}
	if got := c.SeenAreaTransitions(); !reflect.DeepEqual(got, want) {
		t.Fatalf("seen: got %v want %v", got, want)
	}
	if name, pos := c.StartingAreaTransition(); name != "Lioneye's Watch" || pos != geom.Pt(90, 90) {
		t.Fatalf("starting transition: %q %v", name, pos)
	}

	evs := h.events.Drain()
	if len(evs) != 3 || evs[0].Kind != EventLocationAdded || evs[0].Location.Name != "The Tidal Island" {
		t.Fatalf("events: %+v", evs)
	}
}

func TestQuest_MissionObjectRecordedOnce(t *testing.T) {
	h := newHarness(t, 1, missionArea)
	h.w.set(ObjQuest, Object{ID: 77, Name: "Karui Spirit", Position: geom.Pt(40, 40)})
	h.reg.Start()
	h.step(0)
	h.step(generalPeriod)
	h.step(generalPeriod)

	c := h.current(t)
	if !c.HasQuestObjectLocation {
		t.Fatalf("quest object not found")
	}
	if n := len(c.Locations("Karui Spirit")); n != 1 {
		t.Fatalf("quest object recorded %d times", n)
	}
}

func TestQuest_IgnoredOutsideMissions(t *testing.T) {
	h := newHarness(t, 1, coastArea)
	h.w.set(ObjQuest, Object{ID: 77, Name: "Karui Spirit", Position: geom.Pt(40, 40)})
	h.reg.Start()
	h.step(0)
	h.step(generalPeriod)
	if c := h.current(t); c.HasQuestObjectLocation {
		t.Fatalf("quest lookup ran outside a mission area")
	}
}

func TestAnchor_FixedAndResettable(t *testing.T) {
	h := newHarness(t, 1, coastArea)
	h.w.pos = geom.Pt(5, 6)
	c := h.current(t)
	if c.Anchor() != geom.Pt(5, 6) || c.CurrentAnchor() != geom.Pt(5, 6) {
		t.Fatalf("anchors at construction: %v %v", c.Anchor(), c.CurrentAnchor())
	}

	h.w.pos = geom.Pt(50, 60)
	c.ResetCurrentAnchor()
	h.reg.Start()
	h.step(0)
	h.step(generalPeriod)
	if c.Anchor() != geom.Pt(5, 6) {
		t.Fatalf("anchor moved: %v", c.Anchor())
	}
	if c.CurrentAnchor() != geom.Pt(50, 60) {
		t.Fatalf("current anchor: %v", c.CurrentAnchor())
	}
}

func TestStartingPortal(t *testing.T) {
	h := newHarness(t, 1, townArea)
	h.w.walkOffset = geom.Pt(0, 2)
	h.w.set(ObjPortal, Object{ID: 1, Name: "Portal", Position: geom.Pt(3, 3)})
	c := h.current(t)
	if c.StartingPortal() != geom.Pt(3, 5) {
		t.Fatalf("starting portal: %v", c.StartingPortal())
	}
}

func TestResetTimeInArea(t *testing.T) {
	h := newHarness(t, 1, coastArea)
	h.reg.Start()
	h.step(0)
	h.step(generalPeriod)
	c := h.current(t)
	h.clk.Advance(time.Second)
	c.ResetTimeInArea()
	h.clk.Advance(100 * time.Millisecond)
	if c.TimeInArea() != 100*time.Millisecond {
		t.Fatalf("area time after reset: %v", c.TimeInArea())
	}
	if c.TimeInInstance() != 1100*time.Millisecond {
		t.Fatalf("instance time should be untouched: %v", c.TimeInInstance())
	}

	h.reg.Stop()
	c.ResetTimeInArea()
	if c.TimeInArea() != 0 {
		t.Fatalf("paused reset: %v", c.TimeInArea())
	}
}

func TestGroundEffectsCachedPerInstance(t *testing.T) {
	h := newHarness(t, 1, strandMap)
	h.w.mods["map_ground_ice"] = 1
	c := h.current(t)
	if !c.HasIceGround() || c.HasBurningGround() || c.HasLightningGround() {
		t.Fatalf("ground flags wrong")
	}
	delete(h.w.mods, "map_ground_ice")
	if !c.HasIceGround() {
		t.Fatalf("ground flag should be cached after the first query")
	}
}

func TestDefaultInteractTarget(t *testing.T) {
	h := newHarness(t, 1, townArea)
	name, err := h.current(t).DefaultInteractTarget()
	if err != nil || name != "Nessa" {
		t.Fatalf("town: %q %v", name, err)
	}

	h.w.enter(2, hideoutArea)
	_, err = h.current(t).DefaultInteractTarget()
	if !errors.Is(err, ErrNoInteractTarget) {
		t.Fatalf("empty hideout: got %v", err)
	}

	h.w.pos = geom.Pt(0, 0)
	h.w.set(ObjNPC, Object{ID: 1, Name: "Helena", Position: geom.Pt(50, 0)}, Object{ID: 2, Name: "Zana", Position: geom.Pt(5, 0)})
	name, err = h.current(t).DefaultInteractTarget()
	if err != nil || name != "Zana" {
		t.Fatalf("hideout: %q %v", name, err)
	}

	h.w.enter(3, areas.Area{ID: "1_9_town", Kinds: areas.KindTown})
	if _, err := h.current(t).DefaultInteractTarget(); !errors.Is(err, areas.ErrNoStaticLocation) {
		t.Fatalf("unknown town: got %v", err)
	}

	h.w.enter(4, coastArea)
	if name, err := h.current(t).DefaultInteractTarget(); name != "" || err != nil {
		t.Fatalf("overworld: %q %v", name, err)
	}
}
