package agent

import (
	"context"
	"errors"
	"io"
	"log"
	"sync/atomic"
	"time"

	"areastate.ai/internal/areastate"
	"areastate.ai/internal/persistence/snapshot"
	"areastate.ai/internal/transition"
)

// Check runs on the tick goroutine after every tick while the controller is
// running. Returning an error wrapping areastate.ErrNoInteractTarget halts the
// controller.
type Check func(ctx context.Context, c *areastate.Cache) error

// Status is a copy of the runner's view, published after every tick.
type Status struct {
	Running  bool
	InGame   bool
	Instance areastate.InstanceKey
	AreaID   string
	Tracked  int
	Ticks    uint64
	Halts    uint64
	Travel   Travel
}

// Travel is the last area change the host announced.
type Travel struct {
	Target      string
	NewInstance bool
	From        areastate.InstanceKey
	Waiting     bool
	Arrived     areastate.InstanceKey
	Err         string
}

type Options struct {
	Registry *areastate.Registry
	World    areastate.World
	Planner  *transition.Planner
	Interval time.Duration
	Checks   []Check
	Logger   *log.Logger
}

// Runner owns the registry and is the only goroutine that touches it.
type Runner struct {
	reg      *areastate.Registry
	world    areastate.World
	planner  *transition.Planner
	interval time.Duration
	checks   []Check
	log      *log.Logger

	ctrl  chan bool
	snaps chan chan snapshot.SnapshotV1
	stop  chan struct{}

	life    context.Context
	endLife context.CancelFunc

	lastKey areastate.InstanceKey
	ticks   uint64
	halts   uint64
	status  atomic.Pointer[Status]
	travel  atomic.Pointer[Travel]
	final   atomic.Pointer[snapshot.SnapshotV1]
}

func NewRunner(opts Options) (*Runner, error) {
	if opts.Registry == nil || opts.World == nil {
		return nil, errors.New("agent: registry and world are required")
	}
	if opts.Interval <= 0 {
		opts.Interval = 50 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	r := &Runner{
		reg:      opts.Registry,
		world:    opts.World,
		planner:  opts.Planner,
		interval: opts.Interval,
		checks:   opts.Checks,
		log:      opts.Logger,
		ctrl:     make(chan bool, 16),
		snaps:    make(chan chan snapshot.SnapshotV1),
		stop:     make(chan struct{}),
	}
	r.life, r.endLife = context.WithCancel(context.Background())
	r.status.Store(&Status{})
	return r, nil
}

// Start and Stop are queued for the tick goroutine.
func (r *Runner) Start() { r.enqueue(true) }
func (r *Runner) Stop()  { r.enqueue(false) }

func (r *Runner) enqueue(on bool) {
	select {
	case r.ctrl <- on:
	default:
		r.log.Printf("[Runner] control queue full, dropped start=%v", on)
	}
}

func (r *Runner) RefreshFilter() { r.reg.FilterRefreshed() }

func (r *Runner) SetLootVisible(on bool) { r.reg.SetLootVisibleOverride(on) }

func (r *Runner) Status() Status {
	s := *r.status.Load()
	if t := r.travel.Load(); t != nil {
		s.Travel = *t
	}
	return s
}

// Travel records that the host is leaving for areaID and reports whether it
// should ask for a fresh instance there. A configured override beats def. The
// wait for the area change runs off the tick goroutine and lands in Status.
func (r *Runner) Travel(areaID string, def bool) bool {
	if r.planner == nil {
		return def
	}
	fresh := r.planner.NewInstance(areaID, def)
	cur := r.travel.Load()
	if cur != nil && cur.Waiting {
		r.log.Printf("[Travel] still waiting to reach %s, ignoring %s", cur.Target, areaID)
		return fresh
	}
	from, _ := r.world.InstanceKey()
	next := &Travel{Target: areaID, NewInstance: fresh, From: from, Waiting: true}
	if !r.travel.CompareAndSwap(cur, next) {
		return fresh
	}
	r.log.Printf("[Travel] %s -> %s new_instance=%v", from, areaID, fresh)
	go r.awaitArrival(*next)
	return fresh
}

func (r *Runner) awaitArrival(t Travel) {
	key, err := r.planner.WaitForAreaChange(r.life, t.From)
	t.Waiting = false
	if err != nil {
		t.Err = err.Error()
		r.log.Printf("[Travel] %s: %v", t.Target, err)
	} else {
		t.Arrived = key
		r.log.Printf("[Travel] arrived in %s for %s", key, t.Target)
	}
	r.travel.Store(&t)
}

// Shutdown makes Run return nil.
func (r *Runner) Shutdown() {
	r.endLife()
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
}

// RequestSnapshot asks the tick goroutine for a copy of every tracked cache.
// It is safe to call from other goroutines (e.g. HTTP handlers).
func (r *Runner) RequestSnapshot(ctx context.Context) (snapshot.SnapshotV1, error) {
	resp := make(chan snapshot.SnapshotV1, 1)
	select {
	case r.snaps <- resp:
	case <-ctx.Done():
		return snapshot.SnapshotV1{}, ctx.Err()
	}
	select {
	case snap := <-resp:
		return snap, nil
	case <-ctx.Done():
		return snapshot.SnapshotV1{}, ctx.Err()
	}
}

// Final returns the snapshot taken when Run returned.
func (r *Runner) Final() (snapshot.SnapshotV1, bool) {
	s := r.final.Load()
	if s == nil {
		return snapshot.SnapshotV1{}, false
	}
	return *s, true
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer r.endLife()
	defer func() {
		snap := r.snapshot()
		r.final.Store(&snap)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stop:
			return nil
		case on := <-r.ctrl:
			r.setRunning(on)
		case resp := <-r.snaps:
			resp <- r.snapshot()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) snapshot() snapshot.SnapshotV1 {
	h := snapshot.Header{Version: snapshot.Version, TakenAt: time.Now().UTC(), Tick: r.ticks}
	if key, ok := r.world.InstanceKey(); ok {
		h.Current = uint32(key)
	}
	return snapshot.SnapshotV1{Header: h, Instances: r.reg.Export()}
}

func (r *Runner) setRunning(on bool) {
	if on == r.reg.Running() {
		return
	}
	if on {
		r.reg.Start()
	} else {
		r.reg.Stop()
	}
	r.log.Printf("[Runner] running=%v", on)
	r.publish()
}

func (r *Runner) tick(ctx context.Context) {
	r.ticks++
	r.reg.Tick()
	defer r.publish()

	if !r.world.InGame() {
		return
	}
	cur, ok := r.reg.Current()
	if !ok {
		return
	}
	if cur.Key() != r.lastKey {
		r.enteredInstance(cur)
	}
	if !r.reg.Running() {
		return
	}
	for _, check := range r.checks {
		err := check(ctx, cur)
		if err == nil {
			continue
		}
		if errors.Is(err, areastate.ErrNoInteractTarget) {
			r.halts++
			r.reg.Stop()
			r.log.Printf("[Runner] halting in %s (%s): %v", cur.Key(), cur.Area().ID, err)
			return
		}
		r.log.Printf("[Runner] check in %s: %v", cur.Area().ID, err)
	}
}

func (r *Runner) enteredInstance(cur *areastate.Cache) {
	prev := r.lastKey
	r.lastKey = cur.Key()
	if r.planner == nil {
		r.log.Printf("[Runner] %s -> %s (%s)", prev, cur.Key(), cur.Area().ID)
		return
	}
	forced, ok := r.planner.Overrides().Lookup(cur.Area().ID)
	r.log.Printf("[Runner] %s -> %s (%s) new-instance override=%v set=%v", prev, cur.Key(), cur.Area().ID, forced, ok)
}

func (r *Runner) publish() {
	s := &Status{
		Running: r.reg.Running(),
		InGame:  r.world.InGame(),
		Tracked: r.reg.Len(),
		Ticks:   r.ticks,
		Halts:   r.halts,
	}
	if key, ok := r.world.InstanceKey(); ok {
		s.Instance = key
		if c, ok := r.reg.Get(key); ok {
			s.AreaID = c.Area().ID
		}
	}
	r.status.Store(s)
}
