// Package loot provides the loot catalog, proximity-based collection and the
// experience and leveling rules tied to it.
package loot

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/platformer/internal/game/world"
)

// Catalog indexes loot templates by id.
type Catalog struct {
	byID  map[string]world.LootTemplate
	order []string
}

type catalogFile struct {
	Loot []world.LootTemplate `yaml:"loot"`
}

// NewCatalog builds a catalog from templates.
//
// Postcondition: Returns an error on an empty or duplicate id, an empty name,
// or a non-positive size.
func NewCatalog(templates []world.LootTemplate) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]world.LootTemplate, len(templates))}
	for _, t := range templates {
		if t.ID == "" {
			return nil, fmt.Errorf("loot template: id must not be empty")
		}
		if t.Name == "" {
			return nil, fmt.Errorf("loot template %q: name must not be empty", t.ID)
		}
		if t.Width <= 0 || t.Height <= 0 {
			return nil, fmt.Errorf("loot template %q: width and height must be positive", t.ID)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("loot template %q: duplicate id", t.ID)
		}
		c.byID[t.ID] = t
		c.order = append(c.order, t.ID)
	}
	return c, nil
}

// LoadCatalogFromBytes parses a YAML document with a top-level "loot" list.
func LoadCatalogFromBytes(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing loot YAML: %w", err)
	}
	return NewCatalog(f.Loot)
}

// LoadCatalog reads the loot catalog file at path.
//
// Precondition: path must be a readable YAML file.
// Postcondition: Returns a validated Catalog or an error.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading loot catalog %q: %w", path, err)
	}
	c, err := LoadCatalogFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", path, err)
	}
	return c, nil
}

// Lookup returns the template with id.
func (c *Catalog) Lookup(id string) (world.LootTemplate, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// Len returns the number of templates.
func (c *Catalog) Len() int { return len(c.order) }
