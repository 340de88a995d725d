package transition

import (
	"io"
	"log"
	"sort"
	"sync"
)

// Overrides maps an area id to a forced "join a new instance" decision. It is
// safe for concurrent use.
type Overrides struct {
	mu  sync.RWMutex
	m   map[string]bool
	log *log.Logger
}

func NewOverrides(initial map[string]bool, logger *log.Logger) *Overrides {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	o := &Overrides{m: make(map[string]bool, len(initial)), log: logger}
	for id, v := range initial {
		o.m[id] = v
	}
	return o
}

func (o *Overrides) Set(id string, newInstance bool) {
	o.mu.Lock()
	o.m[id] = newInstance
	o.mu.Unlock()
	o.log.Printf("[SetNewInstanceOverride] %s = %v", id, newInstance)
}

func (o *Overrides) Remove(id string) {
	o.mu.Lock()
	delete(o.m, id)
	o.mu.Unlock()
	o.log.Printf("[RemoveNewInstanceOverride] %s", id)
}

// Lookup reports the override for id and whether one is set.
func (o *Overrides) Lookup(id string) (newInstance bool, ok bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	newInstance, ok = o.m[id]
	return newInstance, ok
}

func (o *Overrides) IDs() []string {
	o.mu.RLock()
	out := make([]string, 0, len(o.m))
	for id := range o.m {
		out = append(out, id)
	}
	o.mu.RUnlock()
	sort.Strings(out)
	return out
}
