package transition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"areastate.ai/internal/areastate"
)

var ErrAreaChangeTimeout = errors.New("transition: timed out waiting for area change")

// KeySource is the part of the world the planner watches.
type KeySource interface {
	InstanceKey() (areastate.InstanceKey, bool)
}

type Planner struct {
	overrides *Overrides
	world     KeySource
	poll      time.Duration
	timeout   time.Duration
	log       *log.Logger
}

type PlannerOptions struct {
	Overrides *Overrides
	World     KeySource
	// Poll is the interval between world checks while waiting. Default 1s.
	Poll time.Duration
	// Timeout bounds WaitForAreaChange. Default 30s.
	Timeout time.Duration
	Logger  *log.Logger
}

func NewPlanner(opts PlannerOptions) (*Planner, error) {
	if opts.World == nil {
		return nil, errors.New("transition: world is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Overrides == nil {
		opts.Overrides = NewOverrides(nil, opts.Logger)
	}
	if opts.Poll <= 0 {
		opts.Poll = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Planner{
		overrides: opts.Overrides,
		world:     opts.World,
		poll:      opts.Poll,
		timeout:   opts.Timeout,
		log:       opts.Logger,
	}, nil
}

func (p *Planner) Overrides() *Overrides { return p.overrides }

// NewInstance decides whether entering areaID should open a fresh instance.
// A configured override beats the caller's default.
func (p *Planner) NewInstance(areaID string, def bool) bool {
	if v, ok := p.overrides.Lookup(areaID); ok {
		return v
	}
	return def
}

// WaitForAreaChange blocks until the world reports an instance other than
// original. A missing key (loading screen) keeps waiting.
func (p *Planner) WaitForAreaChange(ctx context.Context, original areastate.InstanceKey) (areastate.InstanceKey, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()
	for {
		if key, ok := p.world.InstanceKey(); ok && key != original {
			return key, nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				p.log.Printf("[WaitForAreaChange] timeout after %s", time.Since(start).Round(time.Millisecond))
				return original, fmt.Errorf("%w (left %s)", ErrAreaChangeTimeout, original)
			}
			return original, ctx.Err()
		case <-ticker.C:
			p.log.Printf("[WaitForAreaChange] waiting %s for an area change", time.Since(start).Round(time.Millisecond))
		}
	}
}
