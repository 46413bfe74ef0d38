package replication_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/platformer/internal/game/replication"
	"github.com/cory-johannsen/platformer/internal/game/world"
)

func sampleState(t *testing.T) *world.State {
	t.Helper()
	s := world.NewState(1600, 800)
	require.NoError(t, s.AddObstacle(&world.Obstacle{ID: "o1", X: 16, Y: 784, Width: 32, Height: 32}))
	require.NoError(t, s.AddPortal(&world.Portal{ID: "field-portal", X: 50, Y: 650, Width: 64, Height: 64,
		TargetRoom: "field", TargetX: 1550, TargetY: 420}))
	require.NoError(t, s.AddPlayer(&world.Player{ID: "p1", Username: "alice", X: 100, Y: 100, Level: 1}))
	require.NoError(t, s.AddMonster(&world.Monster{ID: "m1", MonsterTemplate: world.MonsterTemplate{
		Name: "Snail", PotentialLoot: []world.LootTemplate{{Name: "Small Coin"}},
	}, CurrentHealth: 50}))
	return s
}

func TestCapture(t *testing.T) {
	s := sampleState(t)
	snap := replication.Capture(s, 42)
	assert.Equal(t, int64(42), snap.Tick)
	assert.Equal(t, 1600.0, snap.MapWidth)
	require.Len(t, snap.Portals, 1)
	assert.Equal(t, "field", snap.Portals[0].TargetRoom)
	assert.Equal(t, []string{"Small Coin"}, snap.Monsters[0].PotentialLoot)
	p, ok := snap.Player("alice")
	require.True(t, ok)
	assert.Equal(t, "p1", p.ID)

	s.Players[0].X = 500
	assert.Equal(t, 100.0, snap.Players[0].X)
}

func TestDiff_Kinds(t *testing.T) {
	s := sampleState(t)
	prev := replication.Capture(s, 1)

	s.Players[0].X = 102
	s.RemoveMonsters([]string{"m1"})
	require.NoError(t, s.AddLoot(&world.Loot{ID: "l1", Name: "Small Coin"}))
	next := replication.Capture(s, 2)

	patches := replication.Diff(prev, next)
	require.Len(t, patches, 3)
	assert.Equal(t, replication.PlayerUpdated, patches[0].Kind)
	assert.Equal(t, replication.MonsterRemoved, patches[1].Kind)
	assert.Nil(t, patches[1].Payload)
	assert.Equal(t, replication.LootAdded, patches[2].Kind)
	assert.Equal(t, "l1", patches[2].EntityID)
}

func TestDiff_NoChange(t *testing.T) {
	s := sampleState(t)
	assert.Empty(t, replication.Diff(replication.Capture(s, 1), replication.Capture(s, 2)))
}

func TestApply_RejectsUnknownEntity(t *testing.T) {
	base := replication.Capture(sampleState(t), 1)
	_, err := replication.Apply(base, 2, []replication.Patch{{Kind: replication.LootRemoved, EntityID: "nope"}})
	assert.Error(t, err)
}

// Property: applying Diff(prev, next) to prev reproduces next's dynamic entities.
func TestPropertyDiffApplyConverges(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := world.NewState(1000, 1000)
		n := 0
		step := func() {
			ops := rapid.IntRange(0, 6).Draw(t, "ops")
			for i := 0; i < ops; i++ {
				switch rapid.IntRange(0, 5).Draw(t, "op") {
				case 0:
					n++
					_ = s.AddPlayer(&world.Player{ID: fmt.Sprintf("p%d", n), Username: fmt.Sprintf("u%d", n)})
				case 1:
					n++
					_ = s.AddMonster(&world.Monster{ID: fmt.Sprintf("m%d", n), CurrentHealth: 10})
				case 2:
					n++
					_ = s.AddLoot(&world.Loot{ID: fmt.Sprintf("l%d", n)})
				case 3:
					if len(s.Players) > 0 {
						s.RemovePlayer(s.Players[0].Username)
					}
				case 4:
					if len(s.Monsters) > 0 {
						s.Monsters[len(s.Monsters)-1].X += rapid.Float64Range(-5, 5).Draw(t, "dx")
					}
				case 5:
					if len(s.Loot) > 0 {
						s.RemoveLoot(s.Loot[0].ID)
					}
				}
			}
		}
		step()
		prev := replication.Capture(s, 1)
		step()
		next := replication.Capture(s, 2)

		got, err := replication.Apply(prev, 2, replication.Diff(prev, next))
		if err != nil {
			t.Fatal(err)
		}
		assert.Equal(t, next.Players, got.Players)
		assert.Equal(t, next.Monsters, got.Monsters)
		assert.Equal(t, next.Loot, got.Loot)
	})
}
