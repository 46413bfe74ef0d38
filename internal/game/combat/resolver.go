// Package combat resolves player attacks against monsters and monster contact
// damage against players.
package combat

import (
	"math"

	"github.com/cory-johannsen/platformer/internal/game/geom"
	"github.com/cory-johannsen/platformer/internal/game/world"
)

// Attack tuning.
const (
	// AttackReach is the half-size of the box around the attacker in which monsters are hit.
	AttackReach       = 64.0
	DamagePerStrength = 5
	DamageSpreadLow   = 0.8
	DamageSpreadHigh  = 1.2
	CritChance        = 0.05
	CritMultiplier    = 2
	// AttackLockoutMillis is how long a player can neither attack nor move after attacking.
	AttackLockoutMillis = 500
)

// Source is the subset of dice.Source used by the resolver.
type Source interface {
	Float64() float64
}

// Hit is the outcome of one attack against one monster.
type Hit struct {
	MonsterID string
	Monster   string
	Damage    int
	Critical  bool
	// Lethal is true when this hit brought the monster to zero health or below.
	Lethal bool
}

// RollDamage draws the damage of one hit for the given strength.
//
// Postcondition: a non-critical result is in
// [floor(strength*5*0.8), floor(strength*5*1.2)]; a critical result is exactly
// double such a value.
func RollDamage(strength int, src Source) (damage int, critical bool) {
	factor := DamageSpreadLow + src.Float64()*(DamageSpreadHigh-DamageSpreadLow)
	damage = int(math.Floor(float64(strength*DamagePerStrength) * factor))
	if src.Float64() < CritChance {
		damage *= CritMultiplier
		critical = true
	}
	return damage, critical
}

// InReach reports whether m is inside p's attack box.
func InReach(p *world.Player, m *world.Monster) bool {
	return geom.WithinBox(p.X, p.Y, m.X, m.Y, AttackReach)
}

// ResolveAttack damages every live monster in reach of p. Each monster rolls
// its own damage. Dead monsters are left in place for the removal pass.
//
// Precondition: p and src must be non-nil.
// Postcondition: Returns one Hit per damaged monster, in monster order.
func ResolveAttack(p *world.Player, monsters []*world.Monster, src Source) []Hit {
	var hits []Hit
	for _, m := range monsters {
		if !m.Alive() || !InReach(p, m) {
			continue
		}
		dmg, crit := RollDamage(p.Strength, src)
		m.CurrentHealth -= dmg
		hits = append(hits, Hit{
			MonsterID: m.ID,
			Monster:   m.Name,
			Damage:    dmg,
			Critical:  crit,
			Lethal:    !m.Alive(),
		})
	}
	return hits
}
