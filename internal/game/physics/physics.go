// Package physics advances players, monsters and loot by one fixed step.
//
// The same functions run on the server and inside the client predictor, so
// they depend only on the entity being moved and the static obstacle list.
package physics

import (
	"github.com/cory-johannsen/platformer/internal/game/geom"
	"github.com/cory-johannsen/platformer/internal/game/world"
)

// Step constants, in units per step.
const (
	Gravity         = 0.5
	PlayerSpeed     = 2.0
	JumpVelocity    = -12.0
	StuckBuffer     = 5.0
	LootRestEpsilon = 0.01
	// LootFloorInset keeps resting loot above the bottom of the map.
	LootFloorInset = 8.0
)

// StepMillis is the fixed simulation step in milliseconds.
const StepMillis = 1000.0 / 60.0

func hitsAny(b geom.Body, obstacles []*world.Obstacle) *world.Obstacle {
	for _, o := range obstacles {
		if geom.Collides(b, o.Shape()) {
			return o
		}
	}
	return nil
}

// resolveVertical settles an actor after its vertical displacement. The first
// obstacle hit decides: landing from above snaps the actor onto it, anything
// else restores prevY. Returns true when the actor landed.
func resolveVertical(x float64, y, vy *float64, prevY float64, obstacles []*world.Obstacle) bool {
	o := hitsAny(geom.Body{X: x, Y: *y, VY: *vy, Half: geom.ActorHalf}, obstacles)
	if o == nil {
		return false
	}
	top := o.Shape().Top()
	*vy = 0
	if prevY+geom.ActorHalf <= top {
		*y = top - geom.ActorHalf
		return true
	}
	*y = prevY
	return false
}

// MovePlayer applies one input frame's movement to p.
//
// Horizontal motion is suppressed while p.IsAttacking; gravity and vertical
// resolution always run.
//
// Postcondition: p.VX is the horizontal displacement actually applied this frame.
func MovePlayer(p *world.Player, in world.Input, obstacles []*world.Obstacle) {
	prevX, prevY := p.X, p.Y

	p.VX = 0
	if !p.IsAttacking {
		dir := 0.0
		if in.Left {
			dir = -1
		} else if in.Right {
			dir = 1
		}
		if dir != 0 {
			p.X += dir * PlayerSpeed
			p.VX = dir * PlayerSpeed
			if hitsAny(p.Body(), obstacles) != nil {
				p.X = prevX
				p.VX = 0
			}
		}
		if in.Jump && p.CanJump {
			p.VY = JumpVelocity
			p.CanJump = false
		}
	}

	p.VY += Gravity
	p.Y += p.VY
	p.CanJump = resolveVertical(p.X, &p.Y, &p.VY, prevY, obstacles)
}

// StepMonsterBody moves m by its behavior velocity and gravity.
//
// A horizontal hit restores the previous x and reverses the velocity.
func StepMonsterBody(m *world.Monster, obstacles []*world.Obstacle) {
	prevX, prevY := m.X, m.Y

	m.X += m.VX
	if hitsAny(m.Body(), obstacles) != nil {
		m.X = prevX
		m.VX = -m.VX
	}

	m.VY += Gravity
	m.Y += m.VY
	m.CanJump = resolveVertical(m.X, &m.Y, &m.VY, prevY, obstacles)
}

// StepLoot integrates a loot item: bounce on walls, settle with friction on
// floors, clamp to the map bottom, and come to rest once slow enough.
func StepLoot(l *world.Loot, obstacles []*world.Obstacle, mapHeight float64) {
	prevX, prevY := l.X, l.Y

	l.X += l.VX
	if hitsAny(l.Body(), obstacles) != nil {
		l.X = prevX
		l.VX *= -0.5
	}

	l.VY += Gravity
	l.Y += l.VY
	if o := hitsAny(l.Body(), obstacles); o != nil {
		if l.VY > 0 {
			l.Y = o.Shape().Top() - geom.LootHalf
			l.VY *= -0.5
			l.VX *= 0.8
		} else {
			l.Y = prevY
			l.VY = 0
		}
	}

	if floor := mapHeight - LootFloorInset; l.Y > floor {
		l.Y = floor
		l.VY *= -0.5
		l.VX *= 0.8
	}

	if abs(l.VX) < LootRestEpsilon && abs(l.VY) < LootRestEpsilon {
		l.VX = 0
		l.VY = 0
	}
}

// EscapeObstacles pushes p out of every solid obstacle it still overlaps,
// along the axis of least penetration plus StuckBuffer. One-way platforms are
// ignored.
//
// Postcondition: Returns true if p was moved.
func EscapeObstacles(p *world.Player, obstacles []*world.Obstacle) bool {
	moved := false
	for _, o := range obstacles {
		if o.OneWay {
			continue
		}
		s := o.Shape()
		if !geom.Collides(p.Body(), s) {
			continue
		}
		dx, dy := geom.Penetration(p.Body(), s)
		if dx < dy {
			if p.X < o.X {
				p.X -= dx + StuckBuffer
			} else {
				p.X += dx + StuckBuffer
			}
		} else {
			if p.Y <= o.Y {
				p.Y -= dy + StuckBuffer
			} else {
				p.Y += dy + StuckBuffer
			}
		}
		moved = true
	}
	return moved
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
