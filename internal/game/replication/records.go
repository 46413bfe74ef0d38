// Package replication defines the typed records clients receive and the
// structural diff between two captures of a room.
package replication

import "github.com/cory-johannsen/platformer/internal/game/world"

// PlayerRecord is the replicated view of a player.
type PlayerRecord struct {
	ID                string  `json:"id"`
	Username          string  `json:"username"`
	X                 float64 `json:"x"`
	Y                 float64 `json:"y"`
	VX                float64 `json:"velocityX"`
	VY                float64 `json:"velocityY"`
	Experience        int     `json:"experience"`
	Level             int     `json:"level"`
	Strength          int     `json:"strength"`
	Width             float64 `json:"width"`
	Height            float64 `json:"height"`
	CurrentHealth     int     `json:"currentHealth"`
	MaxHealth         int     `json:"maxHealth"`
	CanAttack         bool    `json:"canAttack"`
	CanLoot           bool    `json:"canLoot"`
	CanJump           bool    `json:"canJump"`
	IsAttacking       bool    `json:"isAttacking"`
	IsInvulnerable    bool    `json:"isInvulnerable"`
	LastProcessedTick int64   `json:"lastProcessedTick"`
}

// MonsterRecord is the replicated view of a monster.
type MonsterRecord struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	X                float64  `json:"x"`
	Y                float64  `json:"y"`
	VX               float64  `json:"velocityX"`
	VY               float64  `json:"velocityY"`
	MaxHealth        int      `json:"maxHealth"`
	CurrentHealth    int      `json:"currentHealth"`
	Damage           int      `json:"damage"`
	Width            float64  `json:"width"`
	Height           float64  `json:"height"`
	DetectionRange   float64  `json:"detectionRange"`
	Experience       int      `json:"experience"`
	PotentialLoot    []string `json:"potentialLoot"`
	CanJump          bool     `json:"canJump"`
	Behavior         string   `json:"behaviorState"`
	BehaviorTimer    float64  `json:"behaviorTimer"`
	BehaviorDuration float64  `json:"behaviorDuration"`
}

// LootRecord is the replicated view of a dropped item.
type LootRecord struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	X                float64 `json:"x"`
	Y                float64 `json:"y"`
	VX               float64 `json:"velocityX"`
	VY               float64 `json:"velocityY"`
	Width            float64 `json:"width"`
	Height           float64 `json:"height"`
	SpawnTime        int64   `json:"spawnTime"`
	CollectedBy      string  `json:"collectedBy,omitempty"`
	IsBeingCollected bool    `json:"isBeingCollected"`
}

// ObstacleRecord is the replicated view of static geometry.
type ObstacleRecord struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	OneWay bool    `json:"isOneWayPlatform"`
}

// PortalRecord is the replicated view of a portal.
type PortalRecord struct {
	ID         string  `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	TargetRoom string  `json:"targetRoom"`
	TargetX    float64 `json:"targetX"`
	TargetY    float64 `json:"targetY"`
}

// NewPlayerRecord captures p.
func NewPlayerRecord(p *world.Player) PlayerRecord {
	return PlayerRecord{
		ID: p.ID, Username: p.Username,
		X: p.X, Y: p.Y, VX: p.VX, VY: p.VY,
		Experience: p.Experience, Level: p.Level, Strength: p.Strength,
		Width: p.Width, Height: p.Height,
		CurrentHealth: p.CurrentHealth, MaxHealth: p.MaxHealth,
		CanAttack: p.CanAttack, CanLoot: p.CanLoot, CanJump: p.CanJump,
		IsAttacking: p.IsAttacking, IsInvulnerable: p.IsInvulnerable,
		LastProcessedTick: p.LastProcessedTick,
	}
}

// NewMonsterRecord captures m.
func NewMonsterRecord(m *world.Monster) MonsterRecord {
	names := make([]string, len(m.PotentialLoot))
	for i, l := range m.PotentialLoot {
		names[i] = l.Name
	}
	return MonsterRecord{
		ID: m.ID, Name: m.Name,
		X: m.X, Y: m.Y, VX: m.VX, VY: m.VY,
		MaxHealth: m.MaxHealth, CurrentHealth: m.CurrentHealth, Damage: m.Damage,
		Width: m.Width, Height: m.Height,
		DetectionRange: m.DetectionRange, Experience: m.Experience,
		PotentialLoot: names,
		CanJump:       m.CanJump,
		Behavior:      string(m.Behavior), BehaviorTimer: m.BehaviorTimer, BehaviorDuration: m.BehaviorDuration,
	}
}

// NewLootRecord captures l.
func NewLootRecord(l *world.Loot) LootRecord {
	return LootRecord{
		ID: l.ID, Name: l.Name,
		X: l.X, Y: l.Y, VX: l.VX, VY: l.VY,
		Width: l.Width, Height: l.Height,
		SpawnTime:   l.SpawnTime,
		CollectedBy: l.CollectedBy, IsBeingCollected: l.IsBeingCollected,
	}
}
