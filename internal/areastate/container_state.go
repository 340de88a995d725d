package areastate

import "fmt"

// ContainerState is the lifecycle of a cached container record.
//
//	Unseen -> Sighted -> Refined* -> Opened
//
// Refined means identified and/or corrupted. Refinement only ever adds
// information; an opened record only keeps tracking its lock.
type ContainerState uint8

const (
	StateUnseen ContainerState = iota
	StateSighted
	StateRefined
	StateOpened
)

func (s ContainerState) String() string {
	switch s {
	case StateUnseen:
		return "UNSEEN"
	case StateSighted:
		return "SIGHTED"
	case StateRefined:
		return "REFINED"
	case StateOpened:
		return "OPENED"
	}
	return "UNKNOWN"
}

// transitionUnlocked is the transitionable-component bit some chests set when they
// unlock without their lock flag following.
const transitionUnlocked = 0x2

// observedLock applies the unlock overrides to what the world reports.
func observedLock(obj Object) bool {
	if obj.TransitionFlags&transitionUnlocked != 0 {
		return false
	}
	if obj.IsVaalVessel {
		return false
	}
	return obj.IsLocked
}

// observe folds one sighting of obj into r and reports whether anything changed.
func (r *ContainerRecord) observe(obj Object) bool {
	switch r.State {
	case StateUnseen:
		r.snapshot(obj)
		return true
	case StateOpened:
		locked := observedLock(obj)
		if locked == r.IsLocked {
			return false
		}
		r.IsLocked = locked
		return true
	}

	changed := false
	if r.IsTargetable != obj.IsTargetable {
		r.IsTargetable = obj.IsTargetable
		changed = true
	}
	if locked := observedLock(obj); locked != r.IsLocked {
		r.IsLocked = locked
		changed = true
	}
	if r.refine(obj) {
		changed = true
	}
	if obj.IsOpened && !r.IsOpened {
		r.IsOpened = true
		r.State = StateOpened
		changed = true
	}
	return changed
}

// refine flips corrupted/identified on their first true sighting and takes the
// stats that came with it. It never clears either flag.
func (r *ContainerRecord) refine(obj Object) bool {
	changed := false
	if !r.IsCorrupted && obj.IsCorrupted {
		r.IsCorrupted = true
		r.Stats = copyStats(obj.Stats)
		changed = true
	}
	if !r.IsIdentified && obj.IsIdentified {
		r.IsIdentified = true
		r.Stats = copyStats(obj.Stats)
		changed = true
	}
	if changed && r.State == StateSighted {
		r.State = StateRefined
	}
	return changed
}

func (r *ContainerRecord) snapshot(obj Object) {
	r.Name = obj.Name
	r.Metadata = obj.Metadata
	r.Position = obj.Position
	r.Rarity = obj.Rarity
	r.IsTargetable = obj.IsTargetable
	r.IsLocked = observedLock(obj)
	r.IsStrongbox = obj.IsStrongbox
	r.IsVaalVessel = obj.IsVaalVessel
	r.OpensOnDamage = obj.OpensOnDamage
	r.IsBreakable = obj.OpensOnDamage
	r.IsCorrupted = obj.IsCorrupted
	r.IsIdentified = obj.IsIdentified
	r.Stats = copyStats(obj.Stats)
	r.IsOpened = obj.IsOpened
	switch {
	case obj.IsOpened:
		r.State = StateOpened
	case obj.IsCorrupted || obj.IsIdentified:
		r.State = StateRefined
	default:
		r.State = StateSighted
	}
}

func copyStats(in []Stat) []Stat {
	if len(in) == 0 {
		return nil
	}
	out := make([]Stat, len(in))
	copy(out, in)
	return out
}

func (s ContainerState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *ContainerState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "UNSEEN":
		*s = StateUnseen
	case "SIGHTED":
		*s = StateSighted
	case "REFINED":
		*s = StateRefined
	case "OPENED":
		*s = StateOpened
	default:
		return fmt.Errorf("unknown container state %q", b)
	}
	return nil
}
