package areas

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is one classification bit of an area definition. An area may carry several.
type Kind uint16

const (
	KindTown Kind = 1 << iota
	KindOverworld
	KindMap
	KindCorrupted
	KindRelic
	KindDen
	KindDaily
	KindMission
	KindHideout
)

// evictionClasses is the fixed taxonomy used to decide that two areas are interchangeable.
const evictionClasses = KindTown | KindOverworld | KindMap | KindCorrupted | KindRelic |
	KindDen | KindDaily | KindMission | KindHideout

var kindNames = map[Kind]string{
	KindTown:      "town",
	KindOverworld: "overworld",
	KindMap:       "map",
	KindCorrupted: "corrupted",
	KindRelic:     "relic",
	KindDen:       "den",
	KindDaily:     "daily",
	KindMission:   "mission",
	KindHideout:   "hideout",
}

func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown area kind %q", s)
}

func ParseKinds(ss []string) (Kind, error) {
	var out Kind
	for _, s := range ss {
		k, err := ParseKind(s)
		if err != nil {
			return 0, err
		}
		out |= k
	}
	return out, nil
}

func (k Kind) Has(o Kind) bool { return k&o != 0 }

func (k Kind) Strings() []string {
	var out []string
	for bit, name := range kindNames {
		if k&bit != 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (k Kind) String() string {
	s := k.Strings()
	if len(s) == 0 {
		return "none"
	}
	return strings.Join(s, "|")
}

// Area is the static definition of an area. Every instance of the area shares it.
type Area struct {
	ID          string
	Name        string
	Kinds       Kind
	HasWaypoint bool
}

func (a Area) IsTown() bool      { return a.Kinds.Has(KindTown) }
func (a Area) IsHideout() bool   { return a.Kinds.Has(KindHideout) }
func (a Area) IsMission() bool   { return a.Kinds.Has(KindMission) }
func (a Area) IsMap() bool       { return a.Kinds.Has(KindMap) }
func (a Area) IsOverworld() bool { return a.Kinds.Has(KindOverworld) }

// SameDefinition reports whether a and b are the same area (not the same instance).
func SameDefinition(a, b Area) bool {
	return a.ID != "" && a.ID == b.ID
}

// SameClass reports whether a and b share any class of the eviction taxonomy.
// Two different maps are the same class even though their layouts differ.
func SameClass(a, b Area) bool {
	return a.Kinds&b.Kinds&evictionClasses != 0
}
