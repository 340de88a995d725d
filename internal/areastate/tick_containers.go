package areastate

func (c *Cache) tickContainers() {
	w := c.reg.world
	created := 0
	for _, obj := range w.Objects(ObjContainer) {
		if r, ok := c.containers.get(obj.ID); ok {
			if r.observe(obj) {
				c.log.Printf("[ContainerUpdate] %d [%s] now %s locked=%t", r.ID, r.Name, r.State, r.IsLocked)
			}
			continue
		}
		// Known records keep merging once the cap is hit; only new ones wait.
		if created >= c.reg.cfg.ContainerBatch {
			continue
		}
		created++

		r := c.containers.insert(obj)
		if !r.IsBreakable {
			r.Position = w.WalkableNear(r.Position)
		}
		c.log.Printf("[ContainerAdded] %d [%s] at %v state=%s", r.ID, r.Name, r.Position, r.State)
		c.reg.metrics.add(c.reg.metrics.chests, c.area.ID)
		rec := r.clone()
		c.reg.publish(Event{Kind: EventContainerAdded, Instance: c.key, AreaID: c.area.ID, Container: &rec})
	}
}
