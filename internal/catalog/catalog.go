// Package catalog loads the static boss definitions from bosses.yaml. The
// catalog is read once at startup, validated, and immutable afterwards.
package catalog

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mwatts14/respawn/internal/clockutil"
	"github.com/mwatts14/respawn/internal/models"
)

// Catalog is the validated, ordered set of boss definitions plus the
// reporting timezone they are scheduled in.
type Catalog struct {
	Location *time.Location

	bosses []models.BossDefinition
	byKey  map[string]int
}

type fileConfig struct {
	Timezone string      `yaml:"timezone"`
	Bosses   []bossEntry `yaml:"bosses"`
}

type bossEntry struct {
	Name          string      `yaml:"name"`
	Kind          string      `yaml:"kind"`
	IntervalHours int         `yaml:"interval_hours"`
	Slots         []slotEntry `yaml:"slots"`
	Points        int         `yaml:"points"`
}

type slotEntry struct {
	Day  int    `yaml:"day"`
	Time string `yaml:"time"`
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return FromYAML(data)
}

// FromYAML parses and validates a catalog from raw YAML bytes.
func FromYAML(data []byte) (*Catalog, error) {
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	loc, err := clockutil.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		Location: loc,
		byKey:    make(map[string]int, len(cfg.Bosses)),
	}
	for i, entry := range cfg.Bosses {
		def, err := entry.toDefinition()
		if err != nil {
			return nil, fmt.Errorf("boss %d (%q): %w", i, entry.Name, err)
		}
		key := CanonicalName(def.Name)
		if _, dup := c.byKey[key]; dup {
			return nil, fmt.Errorf("boss %q: duplicate name", def.Name)
		}
		c.byKey[key] = len(c.bosses)
		c.bosses = append(c.bosses, def)
	}
	if len(c.bosses) == 0 {
		return nil, fmt.Errorf("catalog defines no bosses")
	}
	return c, nil
}

func (e bossEntry) toDefinition() (models.BossDefinition, error) {
	def := models.BossDefinition{
		Name:   strings.TrimSpace(e.Name),
		Points: e.Points,
	}
	if def.Name == "" {
		return def, fmt.Errorf("name is required")
	}
	if e.Points < 0 {
		return def, fmt.Errorf("points must not be negative")
	}

	switch strings.ToLower(e.Kind) {
	case "interval":
		def.Kind = models.BossKindInterval
		if e.IntervalHours <= 0 {
			return def, fmt.Errorf("interval_hours must be positive, got %d", e.IntervalHours)
		}
		if len(e.Slots) > 0 {
			return def, fmt.Errorf("interval bosses must not define slots")
		}
		def.IntervalHours = e.IntervalHours
	case "weekly":
		def.Kind = models.BossKindWeekly
		if e.IntervalHours != 0 {
			return def, fmt.Errorf("weekly bosses must not define interval_hours")
		}
		if len(e.Slots) == 0 {
			return def, fmt.Errorf("weekly bosses require at least one slot")
		}
		for j, s := range e.Slots {
			slot, err := s.toSlot()
			if err != nil {
				return def, fmt.Errorf("slot %d: %w", j, err)
			}
			def.Slots = append(def.Slots, slot)
		}
	default:
		return def, fmt.Errorf("unknown kind %q", e.Kind)
	}
	return def, nil
}

func (s slotEntry) toSlot() (models.WeeklySlot, error) {
	var slot models.WeeklySlot
	if s.Day < 0 || s.Day > 6 {
		return slot, fmt.Errorf("day must be 0-6 (Sunday-based), got %d", s.Day)
	}
	hh, mm, ok := strings.Cut(s.Time, ":")
	if !ok {
		return slot, fmt.Errorf("time must be HH:MM, got %q", s.Time)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return slot, fmt.Errorf("time must be HH:MM, got %q", s.Time)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return slot, fmt.Errorf("time must be HH:MM, got %q", s.Time)
	}
	slot.Weekday = time.Weekday(s.Day)
	slot.Hour = hour
	slot.Minute = minute
	return slot, nil
}

// Lookup returns the definition for a boss name, canonicalized. The second
// return is false for names not in the catalog.
func (c *Catalog) Lookup(name string) (models.BossDefinition, bool) {
	i, ok := c.byKey[CanonicalName(name)]
	if !ok {
		return models.BossDefinition{}, false
	}
	return c.bosses[i], true
}

// Bosses returns all definitions in file order.
func (c *Catalog) Bosses() []models.BossDefinition {
	out := make([]models.BossDefinition, len(c.bosses))
	copy(out, c.bosses)
	return out
}

// Len reports the number of defined bosses.
func (c *Catalog) Len() int {
	return len(c.bosses)
}
