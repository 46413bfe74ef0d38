package npc

import (
	"time"

	"github.com/cory-johannsen/platformer/internal/game/dice"
	"github.com/cory-johannsen/platformer/internal/game/world"
)

// Spawn point as a fraction of the map size.
const (
	SpawnFracX = 0.2
	SpawnFracY = 0.3
)

// RoomSpawn holds the resolved spawn configuration for one monster template in one room.
//
// Invariant: Max >= 1; Interval >= 0.
type RoomSpawn struct {
	// Template is the monster attribute block copied into each spawn.
	Template world.MonsterTemplate
	// Max is the population cap: spawning is suppressed when the count of this
	// template in the room is >= Max.
	Max int
	// Interval is the minimum room-clock time between two spawns of this template.
	Interval time.Duration
}

// Spawner maintains the monster population of one room.
//
// A rule that has never spawned is eligible at once; afterwards it waits
// Interval of room time between spawns.
//
// Concurrency: Spawner is owned by the room goroutine and is not safe for concurrent use.
type Spawner struct {
	rules     []RoomSpawn
	lastSpawn []int64
	spawned   []bool
	newID     func() string
	src       dice.Source
}

// NewSpawner creates a Spawner for rules.
//
// Precondition: newID and src must be non-nil.
// Postcondition: Returns a Spawner with every rule in the never-spawned state.
func NewSpawner(rules []RoomSpawn, newID func() string, src dice.Source) *Spawner {
	return &Spawner{
		rules:     append([]RoomSpawn(nil), rules...),
		lastSpawn: make([]int64, len(rules)),
		spawned:   make([]bool, len(rules)),
		newID:     newID,
		src:       src,
	}
}

// Rules returns a copy of the spawner's rules.
func (s *Spawner) Rules() []RoomSpawn {
	return append([]RoomSpawn(nil), s.rules...)
}

// Tick spawns at most one monster per rule whose population is below its cap
// and whose interval has elapsed at room time nowMillis.
//
// Postcondition: Returns the monsters added to state, in rule order.
func (s *Spawner) Tick(nowMillis int64, state *world.State) []*world.Monster {
	var out []*world.Monster
	for i, rule := range s.rules {
		if state.CountMonsters(rule.Template.Name) >= rule.Max {
			continue
		}
		if s.spawned[i] && nowMillis-s.lastSpawn[i] < rule.Interval.Milliseconds() {
			continue
		}
		m := NewMonster(s.newID(), rule.Template, state.MapWidth*SpawnFracX, state.MapHeight*SpawnFracY, s.src)
		if err := state.AddMonster(m); err != nil {
			continue
		}
		s.spawned[i] = true
		s.lastSpawn[i] = nowMillis
		out = append(out, m)
	}
	return out
}
