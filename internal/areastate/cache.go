package areastate

import (
	"log"
	"time"

	"areastate.ai/internal/areas"
	"areastate.ai/internal/geom"
)

// Cache is the memory of one area instance. It is owned by the Registry and is
// only touched from the tick goroutine.
type Cache struct {
	key  InstanceKey
	area areas.Area
	reg  *Registry
	log  *log.Logger

	ledger     Ledger
	containers Containers
	items      Sightings

	updateCheckForWaypoint bool

	ShouldCheckForWaypoint       bool
	ShouldCheckForStash          bool
	ShouldCheckForAreaTransition bool
	HasStashLocation             bool
	HasWaypointLocation          bool
	HasWaypointEntry             bool
	HasQuestObjectLocation       bool

	seenTransitions []string

	startTransitionName string
	startTransitionPos  geom.Point
	startPortalPos      geom.Point

	hasAnchor     bool
	anchor        geom.Point
	currentAnchor geom.Point
	anchorSeed    InstanceKey

	burningGround   *bool
	lightningGround *bool
	iceGround       *bool

	running bool

	general   throttle
	container throttle
	quest     throttle
	item      throttle

	timeInInstance Stopwatch
	timeInArea     Stopwatch
}

func newCache(r *Registry, key InstanceKey, area areas.Area) *Cache {
	w := r.world
	clk := r.clock
	cfg := r.cfg
	c := &Cache{
		key:        key,
		area:       area,
		reg:        r,
		log:        r.log,
		containers: newContainers(),
		items:      newSightings(),

		updateCheckForWaypoint:       true,
		ShouldCheckForWaypoint:       area.HasWaypoint,
		ShouldCheckForStash:          area.IsTown(),
		ShouldCheckForAreaTransition: true,
		HasWaypointEntry:             area.HasWaypoint && w.WaypointUnlocked(area.ID),

		general:   newThrottle(clk, cfg.GeneralPeriod(), false),
		container: newThrottle(clk, cfg.ContainerPeriod(), false),
		quest:     newThrottle(clk, cfg.QuestPeriod(), false),
		item:      newThrottle(clk, cfg.ItemPeriod(), true),

		timeInInstance: newStopwatch(clk),
		timeInArea:     newStopwatch(clk),
	}
	c.resetAnchor()
	c.currentAnchor = c.anchor
	c.ResetStartingAreaTransition()
	if p, ok := nearest(w.Objects(ObjPortal), w.Position()); ok {
		c.startPortalPos = w.WalkableNear(p.Position)
	}
	return c
}

func (c *Cache) Key() InstanceKey { return c.key }
func (c *Cache) Area() areas.Area { return c.area }

// Armed reports whether the sub-loop clocks have been started at least once.
func (c *Cache) Armed() bool { return c.item.armed }

// Running reports whether the sub-loops poll on tick.
func (c *Cache) Running() bool { return c.running }

// onStart arms the sub-loops the first time. A restart after Stop resumes the
// throttles with the progress they had.
func (c *Cache) onStart() {
	c.running = true
	c.updateCheckForWaypoint = true
	for _, t := range []*throttle{&c.general, &c.container, &c.quest, &c.item} {
		if !t.armed {
			t.arm()
		}
	}
}

func (c *Cache) onStop() {
	c.running = false
	c.general.pause()
	c.container.pause()
	c.quest.pause()
	c.item.pause()
	c.timeInInstance.Stop()
	c.timeInArea.Stop()
}

// onInactiveTick pauses the duration counters and reports whether this cache
// should be unloaded because the agent is now in an interchangeable area.
func (c *Cache) onInactiveTick(current *Cache) bool {
	c.timeInInstance.Stop()
	c.timeInArea.Stop()
	c.general.pause()
	c.container.pause()
	c.quest.pause()
	c.item.pause()

	if areas.SameDefinition(c.area, current.area) {
		return true
	}
	// Different maps share a class and are evicted even though their seeds differ.
	return areas.SameClass(c.area, current.area)
}

func (c *Cache) onTick() {
	if !c.running {
		return
	}
	if c.item.ready() {
		c.tickItems()
		c.item.fired()
	}
	if c.container.ready() {
		c.tickContainers()
		c.container.fired()
	}
	if c.quest.ready() {
		c.tickQuest()
		c.quest.fired()
	}
	if c.general.ready() {
		c.tickGeneral()
		c.general.fired()
	}
}

func (c *Cache) TimeInInstance() time.Duration { return c.timeInInstance.Elapsed() }
func (c *Cache) TimeInArea() time.Duration     { return c.timeInArea.Elapsed() }

// ResetTimeInArea restarts the area timer without touching time in instance.
func (c *Cache) ResetTimeInArea() {
	if c.timeInArea.Running() {
		c.timeInArea.Restart()
		return
	}
	c.timeInArea.Reset()
}

// AddLocation appends unconditionally; check HasLocation first when duplicates matter.
func (c *Cache) AddLocation(pos geom.Point, id int, name string) {
	loc := Location{ID: id, Name: name, Position: pos}
	c.ledger.add(loc)
	c.log.Printf("[AddLocation] %q id=%d at %v for area %s", name, id, pos, c.key)
	c.reg.metrics.add(c.reg.metrics.locations, c.area.ID)
	c.reg.publish(Event{Kind: EventLocationAdded, Instance: c.key, AreaID: c.area.ID, Location: &loc})
}

func (c *Cache) HasLocation(name string) bool           { return c.ledger.Has(name) }
func (c *Cache) HasLocationID(name string, id int) bool { return c.ledger.HasID(name, id) }
func (c *Cache) Locations(name string) []Location       { return c.ledger.Named(name) }
func (c *Cache) AllLocations() []Location               { return c.ledger.All() }
func (c *Cache) ClearLocations()                        { c.ledger.clear() }

func (c *Cache) Containers() []ContainerRecord { return c.containers.Snapshot() }

func (c *Cache) Container(id int) (ContainerRecord, bool) {
	r, ok := c.containers.get(id)
	if !ok {
		return ContainerRecord{}, false
	}
	return r.clone(), true
}

func (c *Cache) ClearContainers() { c.containers.clear() }

// NoteOpenAttempt bumps the caller-owned attempt counter of a container.
func (c *Cache) NoteOpenAttempt(id int) int {
	r, ok := c.containers.get(id)
	if !ok {
		return 0
	}
	r.OpenAttempts++
	return r.OpenAttempts
}

func (c *Cache) IsBlacklisted(id int) bool { return c.reg.blacklist.Contains(id) }

func (c *Cache) Items() []ItemSighting { return c.items.Snapshot() }

func (c *Cache) HasItem(id int) bool { return c.items.Has(id) }

func (c *Cache) RemoveItem(id int) {
	if it, ok := c.items.byID[id]; ok {
		c.log.Printf("[RemoveItem] %d [%s] is being removed", it.ID, it.Name)
		c.items.remove(id)
	}
}

// ClearItems drops every sighting and the ignore set with it.
func (c *Cache) ClearItems() {
	for _, it := range c.items.Snapshot() {
		c.log.Printf("[ClearItems] %d [%s] is being removed", it.ID, it.Name)
	}
	c.items.clear()
}

func (c *Cache) clearIgnoredItems() { c.items.clearIgnore() }

func (c *Cache) IgnoredItems() int { return c.items.IgnoredLen() }

// SeenAreaTransitions lists distinct exit names in discovery order.
func (c *Cache) SeenAreaTransitions() []string {
	out := make([]string, len(c.seenTransitions))
	copy(out, c.seenTransitions)
	return out
}

func (c *Cache) HasBurningGround() bool   { return c.mapMod(&c.burningGround, "map_base_ground_fire_damage_to_deal_per_minute") }
func (c *Cache) HasLightningGround() bool { return c.mapMod(&c.lightningGround, "map_ground_lightning") }
func (c *Cache) HasIceGround() bool       { return c.mapMod(&c.iceGround, "map_ground_ice") }

func (c *Cache) mapMod(slot **bool, stat string) bool {
	if *slot == nil {
		v := c.reg.world.MapMods()[stat] != 0
		*slot = &v
	}
	return **slot
}

func nearest(objs []Object, from geom.Point) (Object, bool) {
	if len(objs) == 0 {
		return Object{}, false
	}
	best := objs[0]
	for _, o := range objs[1:] {
		if geom.DistanceSq(o.Position, from) < geom.DistanceSq(best.Position, from) {
			best = o
		}
	}
	return best, true
}
