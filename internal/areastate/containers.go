package areastate

import (
	"sort"

	"areastate.ai/internal/geom"
)

// ContainerRecord is the cached state of one openable world object.
type ContainerRecord struct {
	ID            int            `json:"id"`
	Name          string         `json:"name"`
	Metadata      string         `json:"metadata"`
	Position      geom.Point     `json:"position"`
	State         ContainerState `json:"state"`
	IsLocked      bool           `json:"is_locked"`
	IsOpened      bool           `json:"is_opened"`
	IsTargetable  bool           `json:"is_targetable"`
	IsCorrupted   bool           `json:"is_corrupted"`
	IsIdentified  bool           `json:"is_identified"`
	IsBreakable   bool           `json:"is_breakable"`
	OpensOnDamage bool           `json:"opens_on_damage"`
	IsStrongbox   bool           `json:"is_strongbox"`
	IsVaalVessel  bool           `json:"is_vaal_vessel"`
	Rarity        Rarity         `json:"rarity"`
	Stats         []Stat         `json:"stats,omitempty"`

	// OpenAttempts belongs to callers; the cache never touches it.
	OpenAttempts int `json:"open_attempts,omitempty"`
}

func (r ContainerRecord) clone() ContainerRecord {
	r.Stats = copyStats(r.Stats)
	return r
}

// Containers maps container id to its record for one instance.
type Containers struct {
	byID map[int]*ContainerRecord
}

func newContainers() Containers {
	return Containers{byID: map[int]*ContainerRecord{}}
}

func (c *Containers) Len() int { return len(c.byID) }

func (c *Containers) get(id int) (*ContainerRecord, bool) {
	r, ok := c.byID[id]
	return r, ok
}

func (c *Containers) insert(obj Object) *ContainerRecord {
	r := &ContainerRecord{ID: obj.ID}
	r.observe(obj)
	c.byID[obj.ID] = r
	return r
}

// Snapshot returns copies ordered by id.
func (c *Containers) Snapshot() []ContainerRecord {
	out := make([]ContainerRecord, 0, len(c.byID))
	for _, r := range c.byID {
		out = append(out, r.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Containers) clear() { c.byID = map[int]*ContainerRecord{} }
