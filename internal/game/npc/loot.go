package npc

import (
	"github.com/cory-johannsen/platformer/internal/game/dice"
	"github.com/cory-johannsen/platformer/internal/game/world"
)

// Drop tuning.
const (
	MinDrops = 1
	MaxDrops = 3
	// PopSpeedX bounds the horizontal pop velocity to (-PopSpeedX, PopSpeedX).
	PopSpeedX = 2.0
	// PopSpeedMin and PopSpeedMax bound the upward pop speed.
	PopSpeedMin = 2.0
	PopSpeedMax = 5.0
	JitterX     = 20.0
	JitterY     = 10.0
)

// GenerateLoot rolls the drops of a dead monster.
//
// Between MinDrops and MaxDrops items are drawn with replacement from
// m.PotentialLoot. Each item pops out of the death position with a random
// velocity and a small positional jitter.
//
// Precondition: src and newID must be non-nil.
// Postcondition: Returns nil if m has no potential loot; otherwise every item's
// name is taken from m.PotentialLoot and SpawnTime == nowMillis.
func GenerateLoot(m *world.Monster, src dice.Source, nowMillis int64, newID func() string) []*world.Loot {
	if len(m.PotentialLoot) == 0 {
		return nil
	}
	count := MinDrops + src.Intn(MaxDrops-MinDrops+1)
	items := make([]*world.Loot, 0, count)
	for i := 0; i < count; i++ {
		tmpl := dice.Pick(src, m.PotentialLoot)
		vx := (src.Float64() - 0.5) * 2 * PopSpeedX
		vy := -(PopSpeedMin + src.Float64()*(PopSpeedMax-PopSpeedMin))
		offX := (src.Float64() - 0.5) * JitterX
		offY := (src.Float64() - 0.5) * JitterY
		items = append(items, &world.Loot{
			ID:        newID(),
			Name:      tmpl.Name,
			X:         m.X + offX,
			Y:         m.Y + offY,
			VX:        vx,
			VY:        vy,
			Width:     tmpl.Width,
			Height:    tmpl.Height,
			SpawnTime: nowMillis,
		})
	}
	return items
}
