package npc

import (
	"github.com/cory-johannsen/platformer/internal/game/dice"
	"github.com/cory-johannsen/platformer/internal/game/world"
)

// Behavior tuning.
const (
	MinBehaviorMillis = 1000.0
	MaxBehaviorMillis = 4000.0
	WalkSpeed         = 0.5
	RunSpeed          = 2.0
	// IdleJitterChance is the per-step probability an idle monster turns around.
	IdleJitterChance = 0.01
	// SpawnVelocityX is the horizontal velocity of a freshly spawned monster.
	SpawnVelocityX = 1.0
)

type weightedState struct {
	state  world.BehaviorState
	weight float64
}

var behaviorWeights = []weightedState{
	{world.Idle, 0.3},
	{world.Walk, 0.4},
	{world.Run, 0.3},
}

// DrawState picks the next behavior with weights idle 0.3, walk 0.4, run 0.3.
// Self-transitions are allowed.
func DrawState(src dice.Source) world.BehaviorState {
	r := src.Float64()
	cumulative := 0.0
	for _, w := range behaviorWeights {
		cumulative += w.weight
		if r <= cumulative {
			return w.state
		}
	}
	return world.Idle
}

// DrawDuration picks a behavior duration uniform in [1000, 4000) ms.
func DrawDuration(src dice.Source) float64 {
	return dice.Uniform(src, MinBehaviorMillis, MaxBehaviorMillis)
}

// VelocityFor returns the horizontal velocity for a state, with a random sign
// for moving states.
func VelocityFor(state world.BehaviorState, src dice.Source) float64 {
	switch state {
	case world.Walk:
		return dice.Sign(src) * WalkSpeed
	case world.Run:
		return dice.Sign(src) * RunSpeed
	}
	return 0
}

// NewMonster creates a live monster from tmpl at (x, y) in the idle state.
//
// Postcondition: Behavior == Idle, BehaviorTimer == 0, BehaviorDuration in
// [1000, 4000), CurrentHealth == MaxHealth, VX == SpawnVelocityX.
func NewMonster(id string, tmpl world.MonsterTemplate, x, y float64, src dice.Source) *world.Monster {
	return &world.Monster{
		ID:               id,
		MonsterTemplate:  tmpl,
		X:                x,
		Y:                y,
		VX:               SpawnVelocityX,
		CurrentHealth:    tmpl.MaxHealth,
		Behavior:         world.Idle,
		BehaviorDuration: DrawDuration(src),
	}
}

// Advance runs m's behavior timer forward by stepMillis. When the timer
// expires a new state and duration are drawn and the velocity is reset.
//
// Postcondition: Returns true if a transition happened.
func Advance(m *world.Monster, stepMillis float64, src dice.Source) bool {
	m.BehaviorTimer += stepMillis
	if m.BehaviorTimer < m.BehaviorDuration {
		return false
	}
	m.Behavior = DrawState(src)
	m.BehaviorTimer = 0
	m.BehaviorDuration = DrawDuration(src)
	m.VX = VelocityFor(m.Behavior, src)
	return true
}

// Jitter occasionally flips an idle monster's direction.
func Jitter(m *world.Monster, src dice.Source) {
	if m.Behavior != world.Idle {
		return
	}
	if dice.Chance(src, IdleJitterChance) && m.VX != 0 {
		m.VX = -m.VX
	}
}
