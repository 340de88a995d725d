package main

import "areastate.ai/internal/protocol"

// script walks a fixed route: town, then the coast (chests, one of them
// identified halfway, and a few ground items), then a fresh town instance.
type script struct {
	seq uint64
}

func newScript() *script { return &script{} }

const (
	phaseTown  = 40
	phaseCoast = 160
)

func (s *script) next() protocol.ObsMsg {
	s.seq++
	step := int(s.seq)
	obs := protocol.ObsMsg{
		Type:            protocol.TypeObs,
		ProtocolVersion: protocol.Version,
		Seq:             s.seq,
		InGame:          true,
		Waypoints:       []string{"1_1_town"},
		Objects:         []protocol.ObjectObs{},
	}
	switch {
	case step <= phaseTown:
		s.town(&obs, 0x7, step)
	case step <= phaseCoast:
		s.coast(&obs, step-phaseTown)
	default:
		s.town(&obs, 0xB, step-phaseCoast)
	}
	return obs
}

// controls returns the CONTROL frames to send before frame seq. The host
// announces each area change one frame ahead and gives up on the strongbox
// once it has been looked at for a while.
func (s *script) controls(seq uint64) []protocol.ControlMsg {
	ctrl := func(c protocol.ControlMsg) protocol.ControlMsg {
		c.Type, c.ProtocolVersion = protocol.TypeControl, protocol.Version
		return c
	}
	switch int(seq) {
	case phaseTown:
		return []protocol.ControlMsg{ctrl(protocol.ControlMsg{Action: protocol.ControlTravel, AreaID: "1_1_2"})}
	case phaseTown + 80:
		return []protocol.ControlMsg{ctrl(protocol.ControlMsg{
			Action: protocol.ControlBlacklist, ObjectID: 43, DurationMs: 30000, Reason: "strongbox guarded",
		})}
	case phaseCoast:
		return []protocol.ControlMsg{ctrl(protocol.ControlMsg{Action: protocol.ControlTravel, AreaID: "1_1_town", Enabled: true})}
	}
	return nil
}

func (s *script) town(obs *protocol.ObsMsg, instance uint32, step int) {
	obs.Instance = instance
	obs.AreaID = "1_1_town"
	obs.Self.Pos = [2]int{200 + step, 480}
	obs.Objects = append(obs.Objects,
		protocol.ObjectObs{ID: 11, Kind: "STASH", Name: "Stash", Pos: [2]int{248, 502}},
		protocol.ObjectObs{ID: 12, Kind: "WAYPOINT", Name: "Waypoint", Pos: [2]int{196, 474}},
		protocol.ObjectObs{ID: 13, Kind: "NPC", Name: "Nessa", Pos: [2]int{267, 497}},
		protocol.ObjectObs{ID: 14, Kind: "AREA_TRANSITION", Name: "The Coast", Pos: [2]int{300, 520}},
	)
}

func (s *script) coast(obs *protocol.ObsMsg, step int) {
	obs.Instance = 0x9
	obs.AreaID = "1_1_2"
	obs.Self.Pos = [2]int{100 + step, 300}
	wp := [2]int{131, 350}
	chest := protocol.ObjectObs{
		ID: 42, Kind: "CONTAINER", Name: "Chest", Metadata: "Metadata/Chests/Chest",
		Pos: [2]int{130, 350}, Walkable: &wp, Targetable: true,
	}
	if step > 60 {
		chest.Identified = true
		chest.Stats = []protocol.StatObs{{Type: "chest_item_quantity", Value: 50}}
	}
	box := protocol.ObjectObs{
		ID: 43, Kind: "CONTAINER", Name: "Arcanist's Strongbox", Metadata: "Metadata/Chests/StrongBoxes/Arcanist",
		Pos: [2]int{180, 320}, Targetable: true, Strongbox: true, Locked: true, Rarity: 2,
	}
	pot := protocol.ObjectObs{
		ID: 44, Kind: "CONTAINER", Name: "Pot", Metadata: "Metadata/Chests/Breakables/Pot",
		Pos: [2]int{120, 290}, Targetable: true, OpensOnDamage: true,
	}
	obs.Objects = append(obs.Objects, chest, box, pot,
		protocol.ObjectObs{ID: 15, Kind: "AREA_TRANSITION", Name: "Lioneye's Watch", Pos: [2]int{90, 300}},
		protocol.ObjectObs{ID: 16, Kind: "WAYPOINT", Name: "Waypoint", Pos: [2]int{150, 310}},
	)
	if step < 100 {
		obs.Objects = append(obs.Objects,
			protocol.ObjectObs{ID: 501, Kind: "ITEM", Name: "Exalted Orb", Metadata: "Metadata/Items/Currency/CurrencyAddModToRare", Pos: [2]int{140, 305}, Stack: 1},
			protocol.ObjectObs{ID: 502, Kind: "ITEM", Name: "Rusted Sword", Metadata: "Metadata/Items/Weapons/OneHandWeapons/OneHandSwords/OneHandSword1", Pos: [2]int{142, 306}},
		)
	}
	obs.Highlight = protocol.HighlightObs{Enabled: true, Visible: []int{501}}
}
