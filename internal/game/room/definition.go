// Package room runs the authoritative simulation of one room: a fixed-step
// loop that owns the room's world state and serializes every mutation through
// a single goroutine.
package room

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/platformer/internal/game/npc"
	"github.com/cory-johannsen/platformer/internal/game/tilemap"
	"github.com/cory-johannsen/platformer/internal/game/world"
)

// SpawnDef is one population rule in a room definition.
type SpawnDef struct {
	// Monster is a monster template id.
	Monster        string `yaml:"monster"`
	IntervalMillis int64  `yaml:"interval_ms"`
	Max            int    `yaml:"max"`
}

// Definition is the static configuration of a room.
type Definition struct {
	Name string `yaml:"name"`
	// Map is the Tiled map file name, relative to the maps directory.
	Map     string         `yaml:"map"`
	Spawns  []SpawnDef     `yaml:"spawns"`
	Portals []world.Portal `yaml:"portals"`
}

// Validate checks the definition's invariants.
//
// Postcondition: Returns nil iff name and map are set, every spawn rule has a
// monster, max >= 1 and interval >= 0, and portal ids are unique and target a room.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("room definition: name must not be empty")
	}
	if d.Map == "" {
		return fmt.Errorf("room %q: map must not be empty", d.Name)
	}
	for i, s := range d.Spawns {
		if s.Monster == "" {
			return fmt.Errorf("room %q: spawn %d: monster must not be empty", d.Name, i)
		}
		if s.Max < 1 {
			return fmt.Errorf("room %q: spawn %q: max must be >= 1", d.Name, s.Monster)
		}
		if s.IntervalMillis < 0 {
			return fmt.Errorf("room %q: spawn %q: interval_ms must not be negative", d.Name, s.Monster)
		}
	}
	seen := make(map[string]bool, len(d.Portals))
	for _, p := range d.Portals {
		if p.ID == "" || p.TargetRoom == "" {
			return fmt.Errorf("room %q: portals need an id and a target_room", d.Name)
		}
		if seen[p.ID] {
			return fmt.Errorf("room %q: duplicate portal %q", d.Name, p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// LoadDefinitionFromBytes parses and validates one room definition.
func LoadDefinitionFromBytes(data []byte) (*Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing room YAML: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadDefinitions reads every *.yaml file in dir.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all definitions in file-name order, or an error on the
// first failure or on a duplicate room name.
func LoadDefinitions(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading room dir %q: %w", dir, err)
	}
	var defs []*Definition
	names := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		d, err := LoadDefinitionFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		if names[d.Name] {
			return nil, fmt.Errorf("loading %q: duplicate room %q", path, d.Name)
		}
		names[d.Name] = true
		defs = append(defs, d)
	}
	return defs, nil
}

// ErrUnknownRoom is returned when a portal targets a room that is not defined.
var ErrUnknownRoom = errors.New("unknown room")

// CheckPortalTargets verifies that every portal in defs targets a defined room.
func CheckPortalTargets(defs []*Definition) error {
	names := make(map[string]bool, len(defs))
	for _, d := range defs {
		names[d.Name] = true
	}
	for _, d := range defs {
		for _, p := range d.Portals {
			if !names[p.TargetRoom] {
				return fmt.Errorf("room %q: portal %q targets %q: %w", d.Name, p.ID, p.TargetRoom, ErrUnknownRoom)
			}
		}
	}
	return nil
}

// buildState creates the initial world state from geometry and portals.
func buildState(def *Definition, geometry *tilemap.Map, newID func() string) (*world.State, error) {
	s := world.NewState(geometry.PixelWidth(), geometry.PixelHeight())
	for _, c := range geometry.Colliders {
		o := &world.Obstacle{
			ID:     newID(),
			X:      c.X,
			Y:      c.Y,
			Width:  geometry.TileWidth,
			Height: geometry.TileHeight,
			OneWay: c.OneWay,
		}
		if err := s.AddObstacle(o); err != nil {
			return nil, err
		}
	}
	for i := range def.Portals {
		p := def.Portals[i]
		if err := s.AddPortal(&p); err != nil {
			return nil, fmt.Errorf("room %q: %w", def.Name, err)
		}
	}
	return s, nil
}

// spawnRules resolves the definition's spawn rules against monster templates keyed by id.
func spawnRules(def *Definition, monsters map[string]world.MonsterTemplate) ([]npc.RoomSpawn, error) {
	rules := make([]npc.RoomSpawn, 0, len(def.Spawns))
	for _, s := range def.Spawns {
		tmpl, ok := monsters[s.Monster]
		if !ok {
			return nil, fmt.Errorf("room %q: unknown monster %q", def.Name, s.Monster)
		}
		rules = append(rules, npc.RoomSpawn{
			Template: tmpl,
			Max:      s.Max,
			Interval: time.Duration(s.IntervalMillis) * time.Millisecond,
		})
	}
	return rules, nil
}
