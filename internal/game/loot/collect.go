package loot

import (
	"math"

	"github.com/cory-johannsen/platformer/internal/game/geom"
	"github.com/cory-johannsen/platformer/internal/game/world"
)

// Collection and leveling tuning.
const (
	// PickupReach is the half-size of the box around a player in which loot can be collected.
	PickupReach = 40.0
	CoinXP      = 5
	// XPPerLevel times the current level is the experience needed to level up.
	XPPerLevel        = 100
	StrengthPerLevel  = 2
	MaxHealthPerLevel = 10
	// LockoutMillis is how long a player must wait between pickups.
	LockoutMillis = 250
	// RemovalMillis is the collection animation grace period before removal.
	RemovalMillis = 10
	// SafetyRemovalMillis guarantees removal if the first removal missed.
	SafetyRemovalMillis = 1000
)

// Collection is the result of one successful pickup.
type Collection struct {
	Item       *world.Loot
	Experience int
	LeveledUp  bool
}

// Nearest returns the closest collectible item within PickupReach of p, or nil.
// Items already being collected are never returned. Ties keep the earlier item.
func Nearest(p *world.Player, items []*world.Loot) *world.Loot {
	var best *world.Loot
	bestDist := math.Inf(1)
	for _, l := range items {
		if l.IsBeingCollected || !geom.WithinBox(p.X, p.Y, l.X, l.Y, PickupReach) {
			continue
		}
		if d := math.Hypot(p.X-l.X, p.Y-l.Y); d < bestDist {
			best, bestDist = l, d
		}
	}
	return best
}

// Collect marks the nearest collectible item as being collected by p and
// grants its experience.
//
// Postcondition: Returns nil if nothing is in reach. Otherwise the item has
// IsBeingCollected == true and CollectedBy == p.Username; the caller schedules
// its removal.
func Collect(p *world.Player, items []*world.Loot) *Collection {
	item := Nearest(p, items)
	if item == nil {
		return nil
	}
	item.IsBeingCollected = true
	item.CollectedBy = p.Username

	c := &Collection{Item: item}
	if world.IsCoin(item.Name) {
		c.Experience = CoinXP
		c.LeveledUp = GainExperience(p, CoinXP)
	}
	return c
}

// GainExperience adds xp to p and applies at most one level-up.
//
// Postcondition: Returns true if p leveled up; a level-up raises strength by 2,
// max health by 10 and restores current health to the new maximum.
func GainExperience(p *world.Player, xp int) bool {
	p.Experience += xp
	if p.Experience < p.Level*XPPerLevel {
		return false
	}
	p.Level++
	p.Strength += StrengthPerLevel
	p.MaxHealth += MaxHealthPerLevel
	p.CurrentHealth = p.MaxHealth
	return true
}
