// Package npc provides monster templates, the monster behavior state machine
// and the per-room population spawner.
package npc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/platformer/internal/game/world"
)

// Template defines a monster archetype loaded from YAML.
type Template struct {
	ID             string  `yaml:"id"`
	Name           string  `yaml:"name"`
	MaxHealth      int     `yaml:"max_health"`
	Damage         int     `yaml:"damage"`
	Width          float64 `yaml:"width"`
	Height         float64 `yaml:"height"`
	DetectionRange float64 `yaml:"detection_range"`
	Experience     int     `yaml:"experience"`
	// PotentialLoot lists loot template ids. Repeating an id weights the drop table.
	PotentialLoot []string `yaml:"potential_loot"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, MaxHealth >= 1,
// and Width and Height are positive; returns an error on the first violation otherwise.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("monster template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("monster template %q: name must not be empty", t.ID)
	}
	if t.MaxHealth < 1 {
		return fmt.Errorf("monster template %q: max_health must be >= 1", t.ID)
	}
	if t.Width <= 0 || t.Height <= 0 {
		return fmt.Errorf("monster template %q: width and height must be positive", t.ID)
	}
	if t.Damage < 0 || t.Experience < 0 {
		return fmt.Errorf("monster template %q: damage and experience must not be negative", t.ID)
	}
	return nil
}

// LootLookup resolves loot template ids.
type LootLookup interface {
	Lookup(id string) (world.LootTemplate, bool)
}

// Resolve produces the immutable attribute block copied into spawned monsters.
//
// Precondition: loot must be non-nil.
// Postcondition: Returns an error naming the first unknown loot id.
func (t *Template) Resolve(loot LootLookup) (world.MonsterTemplate, error) {
	mt := world.MonsterTemplate{
		Name:           t.Name,
		MaxHealth:      t.MaxHealth,
		Damage:         t.Damage,
		Width:          t.Width,
		Height:         t.Height,
		DetectionRange: t.DetectionRange,
		Experience:     t.Experience,
	}
	for _, id := range t.PotentialLoot {
		lt, ok := loot.Lookup(id)
		if !ok {
			return world.MonsterTemplate{}, fmt.Errorf("monster template %q: unknown loot %q", t.ID, id)
		}
		mt.PotentialLoot = append(mt.PotentialLoot, lt)
	}
	return mt, nil
}

// LoadTemplateFromBytes parses a single monster template from raw YAML bytes.
//
// Precondition: data must be valid YAML for a single Template.
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading monster dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}
