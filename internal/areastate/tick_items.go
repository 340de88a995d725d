package areastate

import (
	"areastate.ai/internal/geom"
)

func (c *Cache) tickItems() {
	w := c.reg.world
	now := c.reg.clock.Now()
	override := c.reg.LootVisibleOverride()

	evaluated := 0
	for _, obj := range w.Objects(ObjItem) {
		if evaluated >= c.reg.cfg.ItemBatch {
			break
		}
		if pos, ok := c.items.ignore[obj.ID]; ok {
			if pos == obj.Position {
				continue
			}
			c.log.Printf("[ItemCollision] %d [%s] moved %v -> %v, re-evaluating", obj.ID, obj.Name, pos, obj.Position)
			delete(c.items.ignore, obj.ID)
			c.items.remove(obj.ID)
		}

		evaluated++
		if obj.AllocatedToOther && now.Before(obj.PublicAt) {
			continue
		}

		v, rule := c.judgeItem(obj, override)
		if v == verdictRetry {
			continue
		}
		c.items.ignore[obj.ID] = obj.Position
		if v != verdictAccept {
			continue
		}
		c.items.put(ItemSighting{
			ID:       obj.ID,
			Name:     obj.Name,
			Position: obj.Position,
			Rarity:   obj.Rarity,
			Metadata: obj.Metadata,
		})
		c.reg.metrics.add(c.reg.metrics.items, c.area.ID)
		c.log.Printf("[ItemAdded] %d [%s] at %v (%s)", obj.ID, obj.Name, obj.Position, rule)
	}

	c.sweepItems(w.Position())
}

type verdict int

const (
	verdictReject verdict = iota
	verdictAccept
	// verdictRetry leaves the item out of the ignore set so a later pass judges it again.
	verdictRetry
)

// judgeItem runs the pickup filter, or in highlight mode accepts whatever label is
// on screen and falls back to the filter for the rest. Highlight mode with
// highlighting switched off judges nothing.
func (c *Cache) judgeItem(obj Object, override bool) (verdict, string) {
	if override {
		visible, enabled := c.reg.world.HighlightVisible(obj.ID)
		if !enabled {
			return verdictRetry, ""
		}
		if visible {
			return verdictAccept, "visible"
		}
	}
	if rule, ok := c.reg.filter.Match(obj); ok {
		return verdictAccept, rule
	}
	return verdictReject, ""
}

func (c *Cache) sweepItems(agent geom.Point) {
	radius := c.reg.cfg.ItemProximity
	var drop []int
	for id, it := range c.items.byID {
		if c.reg.blacklist.Contains(id) {
			drop = append(drop, id)
			continue
		}
		if !geom.Within(it.Position, agent, radius) {
			continue
		}
		if obj, ok := c.reg.world.ObjectByID(id); !ok || obj.Kind != ObjItem {
			drop = append(drop, id)
		}
	}
	for _, id := range drop {
		c.RemoveItem(id)
	}
}
