package protocol

import "encoding/json"

// HELLO (host bridge -> agent)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	HostName        string            `json:"host_name"`
	Capabilities    HelloCapabilities `json:"capabilities"`
	Auth            *HelloAuth        `json:"auth,omitempty"`
}

type HelloCapabilities struct {
	MaxQueue int  `json:"max_queue,omitempty"`
	Events   bool `json:"events,omitempty"`
}

type HelloAuth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (agent -> host bridge)
type WelcomeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	SessionID       string   `json:"session_id"`
	TickRateHz      int      `json:"tick_rate_hz"`
	KnownAreas      []string `json:"known_areas,omitempty"`
}

// Control actions a host may send to toggle the agent's automation.
const (
	ControlStart         = "START"
	ControlStop          = "STOP"
	ControlRefreshFilter = "REFRESH_FILTER"
	ControlLootVisible   = "LOOT_VISIBLE"
	ControlBlacklist     = "BLACKLIST"
	ControlUnblacklist   = "UNBLACKLIST"
	ControlTravel        = "TRAVEL"
)

// CONTROL (host bridge -> agent)
//
// Enabled is the toggle for LOOT_VISIBLE and the host's own new-instance
// preference for TRAVEL. ObjectID, DurationMs and Reason belong to BLACKLIST
// and UNBLACKLIST; a zero duration uses the configured default.
type ControlMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Action          string `json:"action"`
	Enabled         bool   `json:"enabled,omitempty"`
	ObjectID        int    `json:"object_id,omitempty"`
	DurationMs      int64  `json:"duration_ms,omitempty"`
	Reason          string `json:"reason,omitempty"`
	AreaID          string `json:"area_id,omitempty"`
}

// TRAVEL_PLAN (agent -> host bridge), the answer to a TRAVEL control.
type TravelPlanMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AreaID          string `json:"area_id"`
	NewInstance     bool   `json:"new_instance"`
}

// EVENT (agent -> host bridge). Record is a location or container record
// depending on Kind.
type EventMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Kind            string          `json:"kind"`
	Instance        uint32          `json:"instance"`
	AreaID          string          `json:"area_id"`
	AtUnixMs        int64           `json:"at_unix_ms"`
	Record          json.RawMessage `json:"record"`
}

// ERROR (agent -> host bridge)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}

func NewError(code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: msg}
}
