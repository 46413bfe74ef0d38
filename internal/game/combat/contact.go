package combat

import (
	"github.com/cory-johannsen/platformer/internal/game/geom"
	"github.com/cory-johannsen/platformer/internal/game/world"
)

// Contact damage tuning.
const (
	ContactDamage         = 10
	KnockbackForce        = 5.0
	InvulnerabilityMillis = 1000
	RespawnX              = 100.0
	RespawnY              = 100.0
)

// Contact describes contact damage taken by a player this step.
type Contact struct {
	MonsterID string
	Damage    int
	// Respawned is true when the hit killed the player and it was reset to the respawn point.
	Respawned bool
}

// ResolveContact applies contact damage from the first live monster p touches.
//
// Invulnerable and attacking players are skipped. The hit makes p invulnerable
// (the caller schedules the end of the window), knocks p away from the monster
// and applies the knockback to the position immediately. A lethal hit restores
// full health and moves p to the respawn point.
//
// Postcondition: Returns nil when no damage was applied.
func ResolveContact(p *world.Player, monsters []*world.Monster) *Contact {
	if p.IsInvulnerable || p.IsAttacking {
		return nil
	}
	for _, m := range monsters {
		if !m.Alive() || !geom.Collides(p.Body(), m.Shape()) {
			continue
		}
		p.CurrentHealth -= ContactDamage
		p.IsInvulnerable = true
		Knockback(p, m.X)

		c := &Contact{MonsterID: m.ID, Damage: ContactDamage}
		if p.CurrentHealth <= 0 {
			Respawn(p)
			c.Respawned = true
		}
		return c
	}
	return nil
}

// Knockback pushes p away from a monster at monsterX and moves it by the
// knockback velocity at once.
func Knockback(p *world.Player, monsterX float64) {
	dir := 1.0
	if p.X < monsterX {
		dir = -1
	}
	p.VX = KnockbackForce * dir
	p.VY = -KnockbackForce / 2
	p.X += p.VX
	p.Y += p.VY
}

// Respawn restores p to full health at the room's safe point.
func Respawn(p *world.Player) {
	p.CurrentHealth = p.MaxHealth
	p.X = RespawnX
	p.Y = RespawnY
}
