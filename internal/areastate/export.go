package areastate

import (
	"sort"
	"time"
)

// CacheExport is a detached copy of one instance cache.
type CacheExport struct {
	Instance InstanceKey `json:"instance"`
	AreaID   string      `json:"area_id"`

	Locations  []Location        `json:"locations"`
	Containers []ContainerRecord `json:"containers"`
	Items      []ItemSighting    `json:"items"`
	Seen       []string          `json:"seen_area_transitions,omitempty"`

	HasStashLocation       bool `json:"has_stash_location"`
	HasWaypointLocation    bool `json:"has_waypoint_location"`
	HasWaypointEntry       bool `json:"has_waypoint_entry"`
	HasQuestObjectLocation bool `json:"has_quest_object_location"`

	TimeInInstance time.Duration `json:"time_in_instance"`
	TimeInArea     time.Duration `json:"time_in_area"`
}

func (c *Cache) Export() CacheExport {
	return CacheExport{
		Instance:               c.key,
		AreaID:                 c.area.ID,
		Locations:              c.AllLocations(),
		Containers:             c.Containers(),
		Items:                  c.Items(),
		Seen:                   c.SeenAreaTransitions(),
		HasStashLocation:       c.HasStashLocation,
		HasWaypointLocation:    c.HasWaypointLocation,
		HasWaypointEntry:       c.HasWaypointEntry,
		HasQuestObjectLocation: c.HasQuestObjectLocation,
		TimeInInstance:         c.TimeInInstance(),
		TimeInArea:             c.TimeInArea(),
	}
}

// Export copies every tracked cache, ordered by instance key.
func (r *Registry) Export() []CacheExport {
	out := make([]CacheExport, 0, len(r.caches))
	for _, c := range r.caches {
		out = append(out, c.Export())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instance < out[j].Instance })
	return out
}
