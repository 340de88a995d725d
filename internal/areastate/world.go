package areastate

import (
	"time"

	"areastate.ai/internal/areas"
	"areastate.ai/internal/geom"
)

type ObjectKind uint8

const (
	ObjItem ObjectKind = iota + 1
	ObjContainer
	ObjAreaTransition
	ObjNPC
	ObjWaypoint
	ObjStash
	ObjPortal
	ObjQuest
)

var objectKindNames = map[ObjectKind]string{
	ObjItem:           "ITEM",
	ObjContainer:      "CONTAINER",
	ObjAreaTransition: "AREA_TRANSITION",
	ObjNPC:            "NPC",
	ObjWaypoint:       "WAYPOINT",
	ObjStash:          "STASH",
	ObjPortal:         "PORTAL",
	ObjQuest:          "QUEST",
}

func (k ObjectKind) String() string {
	if s, ok := objectKindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

func ParseObjectKind(s string) (ObjectKind, bool) {
	for k, name := range objectKindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

type Rarity int

const (
	RarityNormal Rarity = iota
	RarityMagic
	RarityRare
	RarityUnique
)

type Stat struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

// Object is one visible world entity as reported by the world query.
// Item and container fields are zero for other kinds.
type Object struct {
	ID       int
	Kind     ObjectKind
	Name     string
	Metadata string
	Position geom.Point
	Rarity   Rarity

	// Items.
	Stack            int
	AllocatedToOther bool
	PublicAt         time.Time

	// Containers.
	IsTargetable    bool
	IsOpened        bool
	IsLocked        bool
	IsCorrupted     bool
	IsIdentified    bool
	IsStrongbox     bool
	IsVaalVessel    bool
	OpensOnDamage   bool
	TransitionFlags uint8
	Stats           []Stat
}

// World is the read side of the game the cache polls. A missing answer means
// "nothing to do this tick", never an error.
type World interface {
	InGame() bool
	IsDead() bool
	InstanceKey() (InstanceKey, bool)
	Area() (areas.Area, bool)
	Position() geom.Point
	Objects(kind ObjectKind) []Object
	ObjectByID(id int) (Object, bool)
	ObjectByName(name string) (Object, bool)
	WalkableNear(p geom.Point) geom.Point
	WaypointUnlocked(areaID string) bool
	// HighlightVisible reports whether the item's label is on screen, and whether
	// always-highlight is enabled at all.
	HighlightVisible(id int) (visible bool, enabled bool)
	MapMods() map[string]int
}

// ItemFilter decides whether a ground item is worth picking up.
type ItemFilter interface {
	Match(item Object) (rule string, ok bool)
}

type Blacklist interface {
	Contains(id int) bool
}

type ItemFilterFunc func(item Object) (string, bool)

func (f ItemFilterFunc) Match(item Object) (string, bool) { return f(item) }

type nopBlacklist struct{}

func (nopBlacklist) Contains(int) bool { return false }
