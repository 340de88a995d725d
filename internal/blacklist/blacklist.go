package blacklist

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry struct {
	until  time.Time
	reason string
}

// Blacklist holds object ids the agent should leave alone for a while. It is
// bounded: when full, the least recently touched id is forgotten first.
type Blacklist struct {
	ttl   time.Duration
	now   func() time.Time
	cache *lru.Cache[int, entry]
}

func New(size int, defaultTTL time.Duration) (*Blacklist, error) {
	c, err := lru.New[int, entry](size)
	if err != nil {
		return nil, fmt.Errorf("blacklist: %w", err)
	}
	return &Blacklist{ttl: defaultTTL, now: time.Now, cache: c}, nil
}

// Add blacklists id for d, or for the default duration when d <= 0.
func (b *Blacklist) Add(id int, d time.Duration, reason string) {
	if d <= 0 {
		d = b.ttl
	}
	b.cache.Add(id, entry{until: b.now().Add(d), reason: reason})
}

func (b *Blacklist) Contains(id int) bool {
	_, ok := b.lookup(id)
	return ok
}

func (b *Blacklist) Reason(id int) (string, bool) {
	e, ok := b.lookup(id)
	return e.reason, ok
}

func (b *Blacklist) lookup(id int) (entry, bool) {
	e, ok := b.cache.Peek(id)
	if !ok {
		return entry{}, false
	}
	if !b.now().Before(e.until) {
		b.cache.Remove(id)
		return entry{}, false
	}
	return e, true
}

func (b *Blacklist) Remove(id int) { b.cache.Remove(id) }

func (b *Blacklist) Len() int { return b.cache.Len() }

func (b *Blacklist) Purge() { b.cache.Purge() }
