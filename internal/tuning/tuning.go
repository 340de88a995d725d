package tuning

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	Cache         Cache         `yaml:"cache"`
	Feed          Feed          `yaml:"feed"`
	Journal       Journal       `yaml:"journal"`
	Index         Index         `yaml:"index"`
	Redis         Redis         `yaml:"redis"`
	Blacklist     Blacklist     `yaml:"blacklist"`
	WalkableCache WalkableCache `yaml:"walkable_cache"`
	Transition    Transition    `yaml:"transition"`
}

// Cache holds the sub-loop periods and per-pass work caps of an instance cache.
type Cache struct {
	GeneralThrottleMs   int    `yaml:"general_throttle_ms"`
	ContainerThrottleMs int    `yaml:"container_throttle_ms"`
	QuestThrottleMs     int    `yaml:"quest_throttle_ms"`
	ItemThrottleMs      int    `yaml:"item_throttle_ms"`
	ItemBatch           int    `yaml:"item_batch"`
	ContainerBatch      int    `yaml:"container_batch"`
	ItemProximity       int    `yaml:"item_proximity"`
	QuestObjectName     string `yaml:"quest_object_name"`
}

type Feed struct {
	Listen         string `yaml:"listen"`
	Path           string `yaml:"path"`
	MaxQueue       int    `yaml:"max_queue"`
	ValidateFrames bool   `yaml:"validate_frames"`
}

type Journal struct {
	Dir     string `yaml:"dir"`
	Disable bool   `yaml:"disable"`
}

type Index struct {
	Path    string `yaml:"path"`
	Disable bool   `yaml:"disable"`
}

type Redis struct {
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
	Disable bool   `yaml:"disable"`
}

type Blacklist struct {
	Size       int `yaml:"size"`
	DefaultTTL int `yaml:"default_ttl_ms"`
}

// Transition configures instance-transition helpers. NewInstance maps an area
// id to a forced new-instance decision.
type Transition struct {
	NewInstance map[string]bool `yaml:"new_instance"`
	PollMs      int             `yaml:"poll_ms"`
	TimeoutMs   int             `yaml:"timeout_ms"`
}

type WalkableCache struct {
	NumCounters int64 `yaml:"num_counters"`
	MaxCost     int64 `yaml:"max_cost"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz: 20,
		Cache: Cache{
			GeneralThrottleMs:   500,
			ContainerThrottleMs: 250,
			QuestThrottleMs:     500,
			ItemThrottleMs:      25,
			ItemBatch:           10,
			ContainerBatch:      10,
			ItemProximity:       30,
			QuestObjectName:     "Karui Spirit",
		},
		Feed: Feed{
			Listen:         "127.0.0.1:8095",
			Path:           "/v1/feed",
			MaxQueue:       16,
			ValidateFrames: true,
		},
		Journal: Journal{Dir: "./data/journal"},
		Index:   Index{Path: "./data/index.db"},
		Redis: Redis{
			URL:     "redis://localhost:6379",
			Channel: "areastate.events",
			Disable: true,
		},
		Blacklist:     Blacklist{Size: 4096, DefaultTTL: 60_000},
		WalkableCache: WalkableCache{NumCounters: 1e5, MaxCost: 1 << 16},
		Transition:    Transition{PollMs: 1000, TimeoutMs: 30_000},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Normalize fills zero values left by a partial yaml file.
func (t *Tuning) Normalize() {
	d := Defaults()
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	c := &t.Cache
	if c.GeneralThrottleMs == 0 {
		c.GeneralThrottleMs = d.Cache.GeneralThrottleMs
	}
	if c.ContainerThrottleMs == 0 {
		c.ContainerThrottleMs = d.Cache.ContainerThrottleMs
	}
	if c.QuestThrottleMs == 0 {
		c.QuestThrottleMs = d.Cache.QuestThrottleMs
	}
	if c.ItemThrottleMs == 0 {
		c.ItemThrottleMs = d.Cache.ItemThrottleMs
	}
	if c.ItemBatch == 0 {
		c.ItemBatch = d.Cache.ItemBatch
	}
	if c.ContainerBatch == 0 {
		c.ContainerBatch = d.Cache.ContainerBatch
	}
	if c.ItemProximity == 0 {
		c.ItemProximity = d.Cache.ItemProximity
	}
	if strings.TrimSpace(c.QuestObjectName) == "" {
		c.QuestObjectName = d.Cache.QuestObjectName
	}
	if t.Feed.Path == "" {
		t.Feed.Path = d.Feed.Path
	}
	if t.Feed.MaxQueue <= 0 {
		t.Feed.MaxQueue = d.Feed.MaxQueue
	}
	if t.Redis.Channel == "" {
		t.Redis.Channel = d.Redis.Channel
	}
	if t.Blacklist.Size <= 0 {
		t.Blacklist.Size = d.Blacklist.Size
	}
	if t.Blacklist.DefaultTTL <= 0 {
		t.Blacklist.DefaultTTL = d.Blacklist.DefaultTTL
	}
	if t.WalkableCache.NumCounters <= 0 {
		t.WalkableCache.NumCounters = d.WalkableCache.NumCounters
	}
	if t.WalkableCache.MaxCost <= 0 {
		t.WalkableCache.MaxCost = d.WalkableCache.MaxCost
	}
	if t.Transition.PollMs <= 0 {
		t.Transition.PollMs = d.Transition.PollMs
	}
	if t.Transition.TimeoutMs <= 0 {
		t.Transition.TimeoutMs = d.Transition.TimeoutMs
	}
}

func (t Tuning) Validate() error {
	c := t.Cache
	if c.GeneralThrottleMs < 0 || c.ContainerThrottleMs < 0 || c.QuestThrottleMs < 0 || c.ItemThrottleMs < 0 {
		return fmt.Errorf("cache: throttle periods must be >= 0")
	}
	if c.ItemBatch < 0 || c.ContainerBatch < 0 {
		return fmt.Errorf("cache: batch caps must be >= 0")
	}
	if c.ItemProximity < 0 {
		return fmt.Errorf("cache: item_proximity must be >= 0")
	}
	if t.TickRateHz > 1000 {
		return fmt.Errorf("tick_rate_hz too high: %d", t.TickRateHz)
	}
	if !strings.HasPrefix(t.Feed.Path, "/") {
		return fmt.Errorf("feed.path must start with /: %q", t.Feed.Path)
	}
	return nil
}

func (c Cache) GeneralPeriod() time.Duration   { return ms(c.GeneralThrottleMs) }
func (c Cache) ContainerPeriod() time.Duration { return ms(c.ContainerThrottleMs) }
func (c Cache) QuestPeriod() time.Duration     { return ms(c.QuestThrottleMs) }
func (c Cache) ItemPeriod() time.Duration      { return ms(c.ItemThrottleMs) }

func (t Tuning) TickInterval() time.Duration {
	return time.Second / time.Duration(t.TickRateHz)
}

func (b Blacklist) TTL() time.Duration { return ms(b.DefaultTTL) }

func (t Transition) Poll() time.Duration    { return ms(t.PollMs) }
func (t Transition) Timeout() time.Duration { return ms(t.TimeoutMs) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
