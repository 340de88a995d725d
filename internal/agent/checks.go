package agent

import (
	"context"
	"time"

	"areastate.ai/internal/areastate"
)

// InteractCheck resolves the default interaction target of each town or
// hideout instance once the agent has spent grace in it. An unknown town comes
// back as areas.ErrNoStaticLocation and is only logged; a hideout with no NPC
// halts the runner.
func InteractCheck(grace time.Duration) Check {
	done := map[areastate.InstanceKey]bool{}
	return func(_ context.Context, c *areastate.Cache) error {
		if done[c.Key()] {
			return nil
		}
		area := c.Area()
		if !area.IsTown() && !area.IsHideout() {
			done[c.Key()] = true
			return nil
		}
		if c.TimeInArea() < grace {
			return nil
		}
		done[c.Key()] = true
		_, err := c.DefaultInteractTarget()
		return err
	}
}
