package areastate

func (c *Cache) tickQuest() {
	if !c.area.IsMission() || c.HasQuestObjectLocation {
		return
	}
	w := c.reg.world
	obj, ok := w.ObjectByName(c.reg.cfg.QuestObjectName)
	if !ok {
		return
	}
	c.AddLocation(w.WalkableNear(obj.Position), obj.ID, obj.Name)
	c.HasQuestObjectLocation = true
}

func (c *Cache) tickGeneral() {
	w := c.reg.world
	c.timeInInstance.Start()
	c.timeInArea.Start()

	if c.updateCheckForWaypoint {
		if !c.area.HasWaypoint {
			c.updateCheckForWaypoint = false
			c.ShouldCheckForWaypoint = false
			c.HasWaypointLocation = false
			c.HasWaypointEntry = false
		} else {
			c.ShouldCheckForWaypoint = true
		}
	}

	if c.ShouldCheckForStash {
		if !c.HasStashLocation {
			if stash, ok := first(w.Objects(ObjStash)); ok {
				c.AddLocation(w.WalkableNear(stash.Position), stash.ID, "Stash")
				c.HasStashLocation = true
			}
		} else {
			c.ShouldCheckForStash = false
		}
	}

	if c.ShouldCheckForWaypoint {
		if !c.HasWaypointLocation {
			if wp, ok := first(w.Objects(ObjWaypoint)); ok {
				c.AddLocation(w.WalkableNear(wp.Position), wp.ID, "Waypoint")
				c.HasWaypointLocation = true
			}
		}
		// The entry can only be known once the waypoint itself has been seen.
		if c.HasWaypointLocation && !c.HasWaypointEntry {
			c.HasWaypointEntry = w.WaypointUnlocked(c.area.ID)
		}
		if c.HasWaypointLocation && c.HasWaypointEntry {
			c.updateCheckForWaypoint = false
			c.ShouldCheckForWaypoint = false
		}
	}

	if c.ShouldCheckForAreaTransition {
		for _, at := range w.Objects(ObjAreaTransition) {
			// Exits can share a name and still be different objects.
			if c.HasLocationID(at.Name, at.ID) {
				continue
			}
			c.AddLocation(w.WalkableNear(at.Position), at.ID, at.Name)
			if !contains(c.seenTransitions, at.Name) {
				c.seenTransitions = append(c.seenTransitions, at.Name)
			}
		}
	}

	if key, ok := w.InstanceKey(); ok && (!c.hasAnchor || key != c.anchorSeed) {
		c.resetAnchor()
		c.ResetCurrentAnchor()
	}
}

func first(objs []Object) (Object, bool) {
	if len(objs) == 0 {
		return Object{}, false
	}
	return objs[0], true
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
