package areastate

import (
	"context"
	"errors"
	"io"
	"log"
	"sort"
	"sync/atomic"

	"go.opentelemetry.io/otel/metric"

	"areastate.ai/internal/areas"
	"areastate.ai/internal/tuning"
)

type Options struct {
	World     World
	Filter    ItemFilter
	Blacklist Blacklist
	Areas     *areas.Catalog
	Listener  Listener
	Clock     Clock
	Logger    *log.Logger
	Meter     metric.Meter
	Tuning    tuning.Cache
}

// Registry tracks one Cache per instance key. Every method except the atomic
// toggles must be called from the tick goroutine.
type Registry struct {
	world     World
	filter    ItemFilter
	blacklist Blacklist
	catalog   *areas.Catalog
	listener  Listener
	clock     Clock
	log       *log.Logger
	metrics   *metrics
	cfg       tuning.Cache

	caches  map[InstanceKey]*Cache
	running bool

	lootVisible   atomic.Bool
	filterRefresh atomic.Bool
}

func NewRegistry(opts Options) (*Registry, error) {
	if opts.World == nil {
		return nil, errors.New("areastate: world is required")
	}
	if opts.Filter == nil {
		return nil, errors.New("areastate: item filter is required")
	}
	m, err := newMetrics(opts.Meter)
	if err != nil {
		return nil, err
	}
	r := &Registry{
		world:     opts.World,
		filter:    opts.Filter,
		blacklist: opts.Blacklist,
		catalog:   opts.Areas,
		listener:  opts.Listener,
		clock:     opts.Clock,
		log:       opts.Logger,
		metrics:   m,
		cfg:       opts.Tuning,
		caches:    map[InstanceKey]*Cache{},
	}
	if r.blacklist == nil {
		r.blacklist = nopBlacklist{}
	}
	if r.listener == nil {
		r.listener = nopListener{}
	}
	if r.clock == nil {
		r.clock = SystemClock
	}
	if r.log == nil {
		r.log = log.New(io.Discard, "", 0)
	}
	if r.cfg == (tuning.Cache{}) {
		r.cfg = tuning.Defaults().Cache
	}
	return r, nil
}

// Current returns the cache of the instance the agent is in, creating it on
// first sight. It reports false when the world cannot name an instance.
func (r *Registry) Current() (*Cache, bool) {
	key, ok := r.world.InstanceKey()
	if !ok {
		return nil, false
	}
	if c, ok := r.caches[key]; ok {
		return c, true
	}
	area, ok := r.world.Area()
	if !ok {
		return nil, false
	}
	c := newCache(r, key, area)
	r.caches[key] = c
	r.metrics.tracked.Add(context.Background(), 1, areaAttr(area.ID))
	r.log.Printf("[Current] new cache %s for %s (%s)", key, area.ID, area.Kinds)
	if r.running {
		c.onStart()
	}
	return c, true
}

func (r *Registry) Tick() {
	if !r.world.InGame() {
		return
	}
	cur, ok := r.Current()
	if !ok {
		return
	}
	r.metrics.add(r.metrics.ticks, cur.area.ID)
	if r.filterRefresh.Swap(false) {
		cur.clearIgnoredItems()
	}
	cur.onTick()

	var unload []InstanceKey
	for key, c := range r.caches {
		if c == cur {
			continue
		}
		if c.onInactiveTick(cur) {
			unload = append(unload, key)
		}
	}
	for _, key := range unload {
		c := r.caches[key]
		delete(r.caches, key)
		r.metrics.add(r.metrics.evictions, c.area.ID)
		r.metrics.tracked.Add(context.Background(), -1, areaAttr(c.area.ID))
		r.log.Printf("[Tick] evicted %s (%s) while in %s", key, c.area.ID, cur.area.ID)
	}
}

func (r *Registry) Start() {
	r.running = true
	for _, c := range r.caches {
		c.onStart()
	}
}

func (r *Registry) Stop() {
	r.running = false
	for _, c := range r.caches {
		c.onStop()
	}
}

func (r *Registry) Running() bool { return r.running }

func (r *Registry) Len() int { return len(r.caches) }

func (r *Registry) Keys() []InstanceKey {
	out := make([]InstanceKey, 0, len(r.caches))
	for k := range r.caches {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) Get(key InstanceKey) (*Cache, bool) {
	c, ok := r.caches[key]
	return c, ok
}

// SetLootVisibleOverride switches item evaluation to on-screen highlight mode.
// It is safe to call from any goroutine and applies on the next item pass.
func (r *Registry) SetLootVisibleOverride(on bool) { r.lootVisible.Store(on) }

func (r *Registry) LootVisibleOverride() bool { return r.lootVisible.Load() }

// FilterRefreshed tells the registry the pickup rules changed. The current
// cache forgets which items it already judged on the next tick.
func (r *Registry) FilterRefreshed() { r.filterRefresh.Store(true) }

func (r *Registry) publish(ev Event) {
	ev.At = r.clock.Now()
	r.listener.Notify(ev)
}
