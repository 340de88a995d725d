package areastate

import "areastate.ai/internal/geom"

// Anchor is where the agent stood when this instance was first entered.
func (c *Cache) Anchor() geom.Point { return c.anchor }

// CurrentAnchor is the resettable home position used after local transitions.
func (c *Cache) CurrentAnchor() geom.Point { return c.currentAnchor }

func (c *Cache) ResetCurrentAnchor() {
	c.currentAnchor = c.reg.world.Position()
	c.log.Printf("[ResetAnchorPoint] current anchor %v for %s", c.currentAnchor, c.anchorSeed)
}

func (c *Cache) resetAnchor() {
	w := c.reg.world
	c.anchor = w.Position()
	c.hasAnchor = true
	if key, ok := w.InstanceKey(); ok {
		c.anchorSeed = key
	} else {
		c.anchorSeed = c.key
	}
	c.log.Printf("[ResetAnchorPoint] anchor %v for %s", c.anchor, c.anchorSeed)
}

// StartingAreaTransition is the exit nearest to the agent when the instance was
// entered, or "" if none was visible.
func (c *Cache) StartingAreaTransition() (string, geom.Point) {
	return c.startTransitionName, c.startTransitionPos
}

func (c *Cache) ResetStartingAreaTransition() {
	w := c.reg.world
	at, ok := nearest(w.Objects(ObjAreaTransition), w.Position())
	if !ok {
		c.startTransitionName = ""
		c.startTransitionPos = geom.Zero
		return
	}
	c.startTransitionName = at.Name
	c.startTransitionPos = w.WalkableNear(at.Position)
}

// StartingPortal is the walkable position next to the portal nearest the entry
// point, or the zero point.
func (c *Cache) StartingPortal() geom.Point { return c.startPortalPos }
