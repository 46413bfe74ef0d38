// Package world defines the authoritative state of a single room: static
// geometry, portals, players, monsters and loot.
//
// A State is owned by exactly one room goroutine and is not safe for
// concurrent use.
package world

import (
	"strings"

	"github.com/cory-johannsen/platformer/internal/game/geom"
)

// Default player attributes.
const (
	PlayerWidth  = 32.0
	PlayerHeight = 32.0
)

// Obstacle is immutable map geometry created at room initialization.
type Obstacle struct {
	ID     string
	X, Y   float64
	Width  float64
	Height float64
	OneWay bool
}

// Shape returns the collision shape of o.
func (o *Obstacle) Shape() geom.Shape {
	return geom.Obstacle(o.X, o.Y, o.Width, o.Height, o.OneWay)
}

// Portal links a region of this room to a spawn point in another room.
type Portal struct {
	ID         string  `yaml:"id"`
	X          float64 `yaml:"x"`
	Y          float64 `yaml:"y"`
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	TargetRoom string  `yaml:"target_room"`
	TargetX    float64 `yaml:"target_x"`
	TargetY    float64 `yaml:"target_y"`
}

// Input is one client input frame.
type Input struct {
	Left     bool   `json:"left"`
	Right    bool   `json:"right"`
	Up       bool   `json:"up"`
	Down     bool   `json:"down"`
	Jump     bool   `json:"jump"`
	Attack   bool   `json:"attack"`
	Loot     bool   `json:"loot"`
	Tick     int64  `json:"tick"`
	Username string `json:"username"`
}

// Player is a connected player's in-room entity.
//
// Invariant: CurrentHealth <= MaxHealth.
type Player struct {
	ID       string
	Username string

	X, Y   float64
	VX, VY float64

	Experience int
	Level      int
	Strength   int

	Width  float64
	Height float64

	CurrentHealth int
	MaxHealth     int

	CanAttack      bool
	CanLoot        bool
	CanJump        bool
	IsAttacking    bool
	IsInvulnerable bool

	LastProcessedTick int64

	inputs []Input
}

// Enqueue appends in to the player's input queue.
func (p *Player) Enqueue(in Input) {
	p.inputs = append(p.inputs, in)
}

// DrainInputs removes and returns every queued input in submission order.
//
// Postcondition: PendingInputs() == 0.
func (p *Player) DrainInputs() []Input {
	out := p.inputs
	p.inputs = nil
	return out
}

// PendingInputs returns the number of queued inputs.
func (p *Player) PendingInputs() int { return len(p.inputs) }

// Body returns the player's collision footprint.
func (p *Player) Body() geom.Body {
	return geom.Body{X: p.X, Y: p.Y, VY: p.VY, Half: geom.ActorHalf}
}

// BehaviorState is a monster's current movement mode.
type BehaviorState string

// Behavior states.
const (
	Idle BehaviorState = "idle"
	Walk BehaviorState = "walk"
	Run  BehaviorState = "run"
)

// LootTemplate describes an item a monster can drop.
type LootTemplate struct {
	ID     string  `yaml:"id"`
	Name   string  `yaml:"name"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// IsCoin reports whether items named name grant experience on pickup.
func IsCoin(name string) bool {
	return strings.Contains(name, "Coin")
}

// MonsterTemplate holds the static attributes copied into every spawned monster.
type MonsterTemplate struct {
	Name           string
	MaxHealth      int
	Damage         int
	Width          float64
	Height         float64
	DetectionRange float64
	Experience     int
	PotentialLoot  []LootTemplate
}

// Monster is a spawned monster.
type Monster struct {
	ID string
	MonsterTemplate

	X, Y   float64
	VX, VY float64

	CurrentHealth int
	CanJump       bool

	Behavior         BehaviorState
	BehaviorTimer    float64
	BehaviorDuration float64
}

// Alive reports whether m still has health.
func (m *Monster) Alive() bool { return m.CurrentHealth > 0 }

// Body returns the monster's footprint when it moves.
func (m *Monster) Body() geom.Body {
	return geom.Body{X: m.X, Y: m.Y, VY: m.VY, Half: geom.ActorHalf}
}

// Shape returns the monster as a solid box for player contact checks.
func (m *Monster) Shape() geom.Shape {
	return geom.Actor(m.X, m.Y, m.Width, m.Height)
}

// Loot is a dropped item.
//
// Invariant: CollectedBy != "" iff IsBeingCollected.
type Loot struct {
	ID     string
	Name   string
	X, Y   float64
	VX, VY float64
	Width  float64
	Height float64
	// SpawnTime is the room clock time in milliseconds when the item dropped.
	SpawnTime        int64
	CollectedBy      string
	IsBeingCollected bool
}

// Body returns the loot's collision footprint.
func (l *Loot) Body() geom.Body {
	return geom.Body{X: l.X, Y: l.Y, VY: l.VY, Half: geom.LootHalf}
}

// ResetCollection makes l collectible again.
func (l *Loot) ResetCollection() {
	l.IsBeingCollected = false
	l.CollectedBy = ""
}
