package areas

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"areastate.ai/internal/geom"
)

// ErrNoStaticLocation is returned when movement needs a fixed position that the catalog does not know.
var ErrNoStaticLocation = errors.New("no static location for area")

type Config struct {
	Areas []AreaSpec `yaml:"areas"`
}

type AreaSpec struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Kinds       []string    `yaml:"kinds"`
	HasWaypoint bool        `yaml:"has_waypoint"`
	Stash       *geom.Point `yaml:"stash,omitempty"`
	Waypoint    *geom.Point `yaml:"waypoint,omitempty"`
	TownNPC     string      `yaml:"town_npc,omitempty"`
	NPCs        []NPCSpec   `yaml:"npcs,omitempty"`
}

type NPCSpec struct {
	Name string     `yaml:"name"`
	Pos  geom.Point `yaml:"pos"`
}

type entry struct {
	area     Area
	stash    *geom.Point
	waypoint *geom.Point
	townNPC  string
	npcs     map[string]geom.Point
}

// Catalog is the read-only table of area definitions and their static locations.
type Catalog struct {
	byID map[string]*entry
}

func Load(path string) (*Catalog, error) {
	cfg := defaults()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = Config{}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("areas.yaml: %w", err)
		}
	}
	c, err := New(cfg)
	if err != nil {
		return nil, fmt.Errorf("areas.yaml: %w", err)
	}
	return c, nil
}

func Default() *Catalog {
	c, err := New(defaults())
	if err != nil {
		panic(err)
	}
	return c
}

func New(cfg Config) (*Catalog, error) {
	c := &Catalog{byID: map[string]*entry{}}
	for i, ad := range cfg.Areas {
		id := strings.TrimSpace(ad.ID)
		if id == "" {
			return nil, fmt.Errorf("areas[%d]: missing id", i)
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("areas[%d]: duplicate id %q", i, id)
		}
		kinds, err := ParseKinds(ad.Kinds)
		if err != nil {
			return nil, fmt.Errorf("areas[%d] %s: %w", i, id, err)
		}
		e := &entry{
			area: Area{
				ID:          id,
				Name:        ad.Name,
				Kinds:       kinds,
				HasWaypoint: ad.HasWaypoint,
			},
			stash:    ad.Stash,
			waypoint: ad.Waypoint,
			townNPC:  strings.TrimSpace(ad.TownNPC),
			npcs:     map[string]geom.Point{},
		}
		for _, n := range ad.NPCs {
			e.npcs[n.Name] = n.Pos
		}
		c.byID[id] = e
	}
	return c, nil
}

func (c *Catalog) Lookup(id string) (Area, bool) {
	e, ok := c.byID[id]
	if !ok {
		return Area{}, false
	}
	return e.area, true
}

func (c *Catalog) IDs() []string {
	out := make([]string, 0, len(c.byID))
	for id := range c.byID {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// StashLocation is a hard lookup: there is no sane fallback position to walk to.
func (c *Catalog) StashLocation(areaID string) (geom.Point, error) {
	e, ok := c.byID[areaID]
	if !ok || e.stash == nil {
		return geom.Zero, fmt.Errorf("stash %s: %w", areaID, ErrNoStaticLocation)
	}
	return *e.stash, nil
}

func (c *Catalog) WaypointLocation(areaID string) (geom.Point, error) {
	e, ok := c.byID[areaID]
	if !ok || e.waypoint == nil {
		return geom.Zero, fmt.Errorf("waypoint %s: %w", areaID, ErrNoStaticLocation)
	}
	return *e.waypoint, nil
}

// NPCLocation tolerates unknown areas and names.
func (c *Catalog) NPCLocation(areaID, name string) (geom.Point, bool) {
	e, ok := c.byID[areaID]
	if !ok {
		return geom.Zero, false
	}
	p, ok := e.npcs[name]
	return p, ok
}

// TownNPC is the vendor an automation layer talks to by default in a town.
func (c *Catalog) TownNPC(areaID string) (string, bool) {
	e, ok := c.byID[areaID]
	if !ok || e.townNPC == "" {
		return "", false
	}
	return e.townNPC, true
}

func pt(x, y int) *geom.Point { p := geom.Pt(x, y); return &p }

func defaults() Config {
	return Config{
		Areas: []AreaSpec{
			{
				ID: "1_1_town", Name: "Lioneye's Watch", Kinds: []string{"town"}, HasWaypoint: true,
				Stash: pt(248, 502), Waypoint: pt(196, 474), TownNPC: "Nessa",
				NPCs: []NPCSpec{{Name: "Nessa", Pos: geom.Pt(268, 518)}, {Name: "Tarkleigh", Pos: geom.Pt(300, 447)}},
			},
			{
				ID: "1_2_town", Name: "The Forest Encampment", Kinds: []string{"town"}, HasWaypoint: true,
				Stash: pt(318, 247), Waypoint: pt(286, 216), TownNPC: "Yeena",
				NPCs: []NPCSpec{{Name: "Yeena", Pos: geom.Pt(336, 230)}},
			},
			{
				ID: "1_3_town", Name: "The Sarn Encampment", Kinds: []string{"town"}, HasWaypoint: true,
				Stash: pt(205, 173), Waypoint: pt(243, 160), TownNPC: "Clarissa",
				NPCs: []NPCSpec{{Name: "Clarissa", Pos: geom.Pt(220, 190)}},
			},
			{
				ID: "1_4_town", Name: "Highgate", Kinds: []string{"town"}, HasWaypoint: true,
				Stash: pt(388, 305), Waypoint: pt(351, 334), TownNPC: "Petarus and Vanja",
				NPCs: []NPCSpec{{Name: "Petarus and Vanja", Pos: geom.Pt(402, 288)}},
			},
			{ID: "1_1_2", Name: "The Coast", Kinds: []string{"overworld"}, HasWaypoint: true},
			{ID: "1_1_3", Name: "The Mud Flats", Kinds: []string{"overworld"}},
			{ID: "1_1_4_1", Name: "The Submerged Passage", Kinds: []string{"overworld"}, HasWaypoint: true},
			{ID: "HideoutCoastal", Name: "Coastal Hideout", Kinds: []string{"hideout"}},
			{ID: "MapAtlasStrand", Name: "Strand Map", Kinds: []string{"map"}},
			{ID: "MapAtlasBeach", Name: "Beach Map", Kinds: []string{"map"}},
			{ID: "1_SideArea1", Name: "The Fetid Pool (corrupted)", Kinds: []string{"corrupted"}},
			{ID: "Labyrinth_Daily", Name: "Daily Trial", Kinds: []string{"daily"}},
			{ID: "MissionTora1", Name: "Karui Shores Mission", Kinds: []string{"mission"}},
		},
	}
}
