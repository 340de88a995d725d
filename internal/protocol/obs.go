package protocol

// OBS (host bridge -> agent): one full snapshot of what the game client sees.
type ObsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq"`

	InGame   bool   `json:"in_game"`
	Dead     bool   `json:"dead,omitempty"`
	Instance uint32 `json:"instance,omitempty"`
	AreaID   string `json:"area_id,omitempty"`

	Self      SelfObs        `json:"self"`
	Objects   []ObjectObs    `json:"objects"`
	Waypoints []string       `json:"waypoints,omitempty"`
	Highlight HighlightObs   `json:"highlight"`
	MapMods   map[string]int `json:"map_mods,omitempty"`
}

type SelfObs struct {
	Pos [2]int `json:"pos"`
}

type HighlightObs struct {
	Enabled bool  `json:"enabled"`
	Visible []int `json:"visible,omitempty"`
}

type ObjectObs struct {
	ID       int    `json:"id"`
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Metadata string `json:"metadata,omitempty"`
	Pos      [2]int `json:"pos"`
	// Walkable is the host's nearest walkable position for Pos, when it knows one.
	Walkable *[2]int `json:"walkable,omitempty"`
	Rarity   int     `json:"rarity,omitempty"`

	Stack            int   `json:"stack,omitempty"`
	AllocatedToOther bool  `json:"allocated_to_other,omitempty"`
	PublicAtUnixMs   int64 `json:"public_at_unix_ms,omitempty"`

	Targetable      bool      `json:"targetable,omitempty"`
	Opened          bool      `json:"opened,omitempty"`
	Locked          bool      `json:"locked,omitempty"`
	Corrupted       bool      `json:"corrupted,omitempty"`
	Identified      bool      `json:"identified,omitempty"`
	Strongbox       bool      `json:"strongbox,omitempty"`
	VaalVessel      bool      `json:"vaal_vessel,omitempty"`
	OpensOnDamage   bool      `json:"opens_on_damage,omitempty"`
	TransitionFlags uint8     `json:"transition_flags,omitempty"`
	Stats           []StatObs `json:"stats,omitempty"`
}

type StatObs struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}
