// Package tilemap turns a Tiled JSON map into room collision geometry.
package tilemap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Tile property names recognised on tileset tiles.
const (
	PropCollision = "collision"
	PropOneWay    = "oneway"
)

// ErrNoLayers is returned when the map has no tile layer to read colliders from.
var ErrNoLayers = errors.New("tilemap has no layers")

// ErrMalformed is returned when required map dimensions are missing or inconsistent.
var ErrMalformed = errors.New("malformed tilemap")

// Collider is one solid or one-way tile, positioned by its center.
type Collider struct {
	X, Y   float64
	OneWay bool
}

// Map is the parsed geometry of a Tiled map.
type Map struct {
	Width      int
	Height     int
	TileWidth  float64
	TileHeight float64
	Colliders  []Collider
}

// PixelWidth returns the map width in world units.
func (m *Map) PixelWidth() float64 { return float64(m.Width) * m.TileWidth }

// PixelHeight returns the map height in world units.
func (m *Map) PixelHeight() float64 { return float64(m.Height) * m.TileHeight }

type property struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

type tile struct {
	ID         int        `json:"id"`
	Properties []property `json:"properties"`
}

type tileset struct {
	FirstGID int    `json:"firstgid"`
	Tiles    []tile `json:"tiles"`
}

type layer struct {
	Data []int `json:"data"`
}

type document struct {
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	TileWidth  float64   `json:"tilewidth"`
	TileHeight float64   `json:"tileheight"`
	Layers     []layer   `json:"layers"`
	Tilesets   []tileset `json:"tilesets"`
}

// Parse decodes Tiled JSON and extracts colliders from the first layer.
//
// A tile becomes a collider when its tileset entry has a true "collision" or
// "oneway" property; "oneway" marks it passable from below. Tile id 0 is empty.
//
// Postcondition: Returns ErrNoLayers or ErrMalformed (wrapped) on structural
// problems; colliders are in layer data order.
func Parse(data []byte) (*Map, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Width <= 0 || doc.Height <= 0 || doc.TileWidth <= 0 || doc.TileHeight <= 0 {
		return nil, fmt.Errorf("%w: width, height, tilewidth and tileheight must be positive", ErrMalformed)
	}
	if len(doc.Layers) == 0 {
		return nil, ErrNoLayers
	}

	m := &Map{Width: doc.Width, Height: doc.Height, TileWidth: doc.TileWidth, TileHeight: doc.TileHeight}
	for i, gid := range doc.Layers[0].Data {
		if gid == 0 {
			continue
		}
		props := doc.properties(gid)
		solid, oneWay := flag(props, PropCollision), flag(props, PropOneWay)
		if !solid && !oneWay {
			continue
		}
		m.Colliders = append(m.Colliders, Collider{
			X:      float64(i%doc.Width)*doc.TileWidth + doc.TileWidth/2,
			Y:      float64(i/doc.Width)*doc.TileHeight + doc.TileHeight/2,
			OneWay: oneWay,
		})
	}
	return m, nil
}

// Load reads and parses the map file at path.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tilemap %q: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing tilemap %q: %w", path, err)
	}
	return m, nil
}

// properties returns the tileset properties of global tile id gid. Tilesets
// are matched by firstgid range in document order.
func (d *document) properties(gid int) []property {
	for i, ts := range d.Tilesets {
		if gid < ts.FirstGID {
			continue
		}
		if i+1 < len(d.Tilesets) && gid >= d.Tilesets[i+1].FirstGID {
			continue
		}
		local := gid - ts.FirstGID
		for _, t := range ts.Tiles {
			if t.ID == local {
				return t.Properties
			}
		}
		return nil
	}
	return nil
}

func flag(props []property, name string) bool {
	for _, p := range props {
		if p.Name == name {
			if b, ok := p.Value.(bool); ok && b {
				return true
			}
		}
	}
	return false
}
