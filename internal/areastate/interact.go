package areastate

import (
	"fmt"

	"areastate.ai/internal/areas"
)

// DefaultInteractTarget names the NPC an automation layer should talk to in a
// safe zone. Outside towns and hideouts it returns "" and no error.
func (c *Cache) DefaultInteractTarget() (string, error) {
	switch {
	case c.area.IsTown():
		if c.reg.catalog == nil {
			return "", fmt.Errorf("town npc %s: %w", c.area.ID, areas.ErrNoStaticLocation)
		}
		name, ok := c.reg.catalog.TownNPC(c.area.ID)
		if !ok {
			return "", fmt.Errorf("town npc %s: %w", c.area.ID, areas.ErrNoStaticLocation)
		}
		return name, nil
	case c.area.IsHideout():
		w := c.reg.world
		npc, ok := nearest(w.Objects(ObjNPC), w.Position())
		if !ok {
			return "", fmt.Errorf("hideout %s: %w", c.area.ID, ErrNoInteractTarget)
		}
		return npc.Name, nil
	}
	return "", nil
}
