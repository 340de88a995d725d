package feed

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"

	"areastate.ai/internal/areas"
	"areastate.ai/internal/areastate"
	"areastate.ai/internal/geom"
	"areastate.ai/internal/protocol"
	"areastate.ai/internal/tuning"
)

var ErrStaleFrame = errors.New("feed: stale observation frame")

type snapshot struct {
	seq    uint64
	inGame bool
	dead   bool

	key     areastate.InstanceKey
	hasKey  bool
	area    areas.Area
	hasArea bool
	pos     geom.Point

	byKind    map[areastate.ObjectKind][]areastate.Object
	byID      map[int]areastate.Object
	byName    map[string]areastate.Object
	walkable  map[geom.Point]geom.Point
	waypoints map[string]bool

	highlight bool
	visible   map[int]bool
	mods      map[string]int
}

// ObsWorld answers world queries from the latest OBS frame the host pushed.
// Apply runs on the transport goroutine, queries on the tick goroutine; each
// frame replaces an immutable snapshot.
type ObsWorld struct {
	catalog *areas.Catalog
	walk    *ristretto.Cache
	log     *log.Logger

	cur     atomic.Pointer[snapshot]
	skipped atomic.Uint64
}

func NewObsWorld(catalog *areas.Catalog, cfg tuning.WalkableCache, logger *log.Logger) (*ObsWorld, error) {
	if catalog == nil {
		catalog = areas.Default()
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 {
		cfg = tuning.Defaults().WalkableCache
	}
	walk, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("walkable cache: %w", err)
	}
	w := &ObsWorld{catalog: catalog, walk: walk, log: logger}
	w.cur.Store(&snapshot{})
	return w, nil
}

func (w *ObsWorld) Close() { w.walk.Close() }

// Apply installs obs as the current view. Frames with a sequence number at or
// below the last applied one are rejected.
func (w *ObsWorld) Apply(obs protocol.ObsMsg) error {
	prev := w.cur.Load()
	if obs.Seq != 0 && prev.seq != 0 && obs.Seq <= prev.seq {
		return fmt.Errorf("%w: seq %d <= %d", ErrStaleFrame, obs.Seq, prev.seq)
	}

	s := &snapshot{
		seq:       obs.Seq,
		inGame:    obs.InGame,
		dead:      obs.Dead,
		key:       areastate.InstanceKey(obs.Instance),
		hasKey:    obs.Instance != 0,
		pos:       geom.FromArray(obs.Self.Pos),
		byKind:    map[areastate.ObjectKind][]areastate.Object{},
		byID:      make(map[int]areastate.Object, len(obs.Objects)),
		byName:    map[string]areastate.Object{},
		walkable:  map[geom.Point]geom.Point{},
		waypoints: make(map[string]bool, len(obs.Waypoints)),
		highlight: obs.Highlight.Enabled,
		visible:   make(map[int]bool, len(obs.Highlight.Visible)),
		mods:      make(map[string]int, len(obs.MapMods)),
	}
	if obs.AreaID != "" {
		s.hasArea = true
		if a, ok := w.catalog.Lookup(obs.AreaID); ok {
			s.area = a
		} else {
			s.area = areas.Area{ID: obs.AreaID}
		}
	}

	memo := false
	for _, o := range obs.Objects {
		kind, ok := areastate.ParseObjectKind(o.Kind)
		if !ok {
			w.skipped.Add(1)
			continue
		}
		obj := toObject(kind, o)
		s.byKind[kind] = append(s.byKind[kind], obj)
		s.byID[obj.ID] = obj
		if _, dup := s.byName[obj.Name]; !dup {
			s.byName[obj.Name] = obj
		}
		if o.Walkable != nil {
			wp := geom.FromArray(*o.Walkable)
			s.walkable[obj.Position] = wp
			if s.hasKey {
				w.walk.Set(walkKey(s.key, obj.Position), wp, 1)
				memo = true
			}
		}
	}
	for _, id := range obs.Waypoints {
		s.waypoints[id] = true
	}
	for _, id := range obs.Highlight.Visible {
		s.visible[id] = true
	}
	for k, v := range obs.MapMods {
		s.mods[k] = v
	}
	if memo {
		w.walk.Wait()
	}

	if prev.key != s.key || prev.area.ID != s.area.ID {
		w.log.Printf("[Apply] seq=%d instance=%s area=%q in_game=%v", s.seq, s.key, s.area.ID, s.inGame)
	}
	w.cur.Store(s)
	return nil
}

// Skipped counts objects dropped because their kind was unknown.
func (w *ObsWorld) Skipped() uint64 { return w.skipped.Load() }

func (w *ObsWorld) Seq() uint64 { return w.cur.Load().seq }

func toObject(kind areastate.ObjectKind, o protocol.ObjectObs) areastate.Object {
	obj := areastate.Object{
		ID:               o.ID,
		Kind:             kind,
		Name:             o.Name,
		Metadata:         o.Metadata,
		Position:         geom.FromArray(o.Pos),
		Rarity:           areastate.Rarity(o.Rarity),
		Stack:            o.Stack,
		AllocatedToOther: o.AllocatedToOther,
		IsTargetable:     o.Targetable,
		IsOpened:         o.Opened,
		IsLocked:         o.Locked,
		IsCorrupted:      o.Corrupted,
		IsIdentified:     o.Identified,
		IsStrongbox:      o.Strongbox,
		IsVaalVessel:     o.VaalVessel,
		OpensOnDamage:    o.OpensOnDamage,
		TransitionFlags:  o.TransitionFlags,
	}
	if o.PublicAtUnixMs > 0 {
		obj.PublicAt = time.UnixMilli(o.PublicAtUnixMs)
	}
	if len(o.Stats) > 0 {
		obj.Stats = make([]areastate.Stat, len(o.Stats))
		for i, st := range o.Stats {
			obj.Stats[i] = areastate.Stat{Type: st.Type, Value: st.Value}
		}
	}
	return obj
}

func walkKey(key areastate.InstanceKey, p geom.Point) string {
	return fmt.Sprintf("%d:%d:%d", uint32(key), p.X, p.Y)
}

func (w *ObsWorld) InGame() bool { return w.cur.Load().inGame }

func (w *ObsWorld) IsDead() bool { return w.cur.Load().dead }

func (w *ObsWorld) InstanceKey() (areastate.InstanceKey, bool) {
	s := w.cur.Load()
	return s.key, s.hasKey
}

func (w *ObsWorld) Area() (areas.Area, bool) {
	s := w.cur.Load()
	return s.area, s.hasArea
}

func (w *ObsWorld) Position() geom.Point { return w.cur.Load().pos }

func (w *ObsWorld) Objects(kind areastate.ObjectKind) []areastate.Object {
	objs := w.cur.Load().byKind[kind]
	if len(objs) == 0 {
		return nil
	}
	return append([]areastate.Object(nil), objs...)
}

func (w *ObsWorld) ObjectByID(id int) (areastate.Object, bool) {
	o, ok := w.cur.Load().byID[id]
	return o, ok
}

func (w *ObsWorld) ObjectByName(name string) (areastate.Object, bool) {
	o, ok := w.cur.Load().byName[name]
	return o, ok
}

// WalkableNear prefers the host's answer from the current frame, then any
// answer remembered for this instance, then p itself.
func (w *ObsWorld) WalkableNear(p geom.Point) geom.Point {
	s := w.cur.Load()
	if wp, ok := s.walkable[p]; ok {
		return wp
	}
	if s.hasKey {
		if v, ok := w.walk.Get(walkKey(s.key, p)); ok {
			if wp, ok := v.(geom.Point); ok {
				return wp
			}
		}
	}
	return p
}

func (w *ObsWorld) WaypointUnlocked(areaID string) bool { return w.cur.Load().waypoints[areaID] }

func (w *ObsWorld) HighlightVisible(id int) (bool, bool) {
	s := w.cur.Load()
	return s.visible[id], s.highlight
}

func (w *ObsWorld) MapMods() map[string]int {
	s := w.cur.Load()
	out := make(map[string]int, len(s.mods))
	for k, v := range s.mods {
		out[k] = v
	}
	return out
}

var _ areastate.World = (*ObsWorld)(nil)
