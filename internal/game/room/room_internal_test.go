package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/platformer/internal/game/dice"
	"github.com/cory-johannsen/platformer/internal/game/npc"
	"github.com/cory-johannsen/platformer/internal/game/physics"
	"github.com/cory-johannsen/platformer/internal/game/profile"
	"github.com/cory-johannsen/platformer/internal/game/replication"
	"github.com/cory-johannsen/platformer/internal/game/session"
	"github.com/cory-johannsen/platformer/internal/game/world"
)

func joinAlice(t *testing.T, h *harness) *world.Player {
	t.Helper()
	res, err := h.room.join(profile.Profile{Username: "alice", LastX: 100, LastY: groundY}, session.JoinOptions{})
	require.NoError(t, err)
	p := h.room.state.PlayerByID(res.PlayerID)
	require.NotNil(t, p)
	return p
}

func addSnail(t *testing.T, h *harness, id string, x float64, health int) *world.Monster {
	t.Helper()
	m := npc.NewMonster(id, snailTemplate(), x, groundY, dice.NewSeededSource(1))
	m.CurrentHealth = health
	require.NoError(t, h.room.state.AddMonster(m))
	return m
}

func TestNew_BuildsObstaclesAndPortals(t *testing.T) {
	def := &Definition{
		Name: "field", Map: "field.tmj",
		Portals: []world.Portal{{ID: "to-village", X: 10, Y: 10, Width: 20, Height: 20, TargetRoom: "village"}},
	}
	h := newHarness(t, def, nil, nil)
	assert.Len(t, h.room.state.Obstacles, 50)
	assert.Len(t, h.room.state.Portals, 1)
	assert.Equal(t, 800.0, h.room.state.MapWidth)
	assert.Equal(t, 320.0, h.room.state.MapHeight)
}

func TestNew_UnknownMonster(t *testing.T) {
	def := &Definition{Name: "field", Map: "field.tmj", Spawns: []SpawnDef{{Monster: "dragon", Max: 1}}}
	_, err := New(def, Deps{Geometry: floorMap(), NewID: sequentialIDs(), Logger: zap.NewNop()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dragon")
}

func TestJoin_RejectsDuplicateUsername(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	joinAlice(t, h)
	_, err := h.room.join(profile.Profile{Username: "alice"}, session.JoinOptions{})
	assert.ErrorIs(t, err, ErrDuplicateSession)
	assert.Len(t, h.room.state.Players, 1)
}

func TestJoin_UsesPortalTarget(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	tx, ty := 300.0, 200.0
	res, err := h.room.join(profile.Profile{Username: "bob", LastX: 50, LastY: 50},
		session.JoinOptions{TargetX: &tx, TargetY: &ty})
	require.NoError(t, err)
	p := h.room.state.PlayerByID(res.PlayerID)
	assert.Equal(t, 300.0, p.X)
	assert.Equal(t, 200.0, p.Y)
	_, ok := res.Snapshot.Player("bob")
	assert.True(t, ok)
	assert.Equal(t, []string{"join field bob"}, h.hooks.events)
	assert.Equal(t, []string{"bob"}, h.out.welcomes)
}

func TestJoin_ResetsInFlightLoot(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	item := &world.Loot{ID: "l1", Name: "Small Coin", X: 400, Y: groundY, Width: 16, Height: 16,
		IsBeingCollected: true, CollectedBy: "carol"}
	require.NoError(t, h.room.state.AddLoot(item))
	joinAlice(t, h)
	assert.False(t, item.IsBeingCollected)
	assert.Empty(t, item.CollectedBy)
}

func TestLeave_PersistsPosition(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	p := joinAlice(t, h)
	p.X = 222
	require.NoError(t, h.room.leave("alice"))

	writes := h.writer.all()
	require.Len(t, writes, 1)
	assert.Equal(t, "leave", writes[0].Reason)
	assert.Equal(t, "field", *writes[0].Update.LastRoom)
	assert.Equal(t, 222.0, *writes[0].Update.LastX)
	assert.Nil(t, h.room.state.PlayerByUsername("alice"))
	assert.ErrorIs(t, h.room.leave("alice"), ErrNotInRoom)
}

func TestInput_UnknownPlayerDroppedWithWarning(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	h := newHarness(t, nil, zap.New(core), nil)
	h.room.input(world.Input{Username: "ghost", Right: true, Tick: 1})
	entries := logs.FilterMessage("input for unknown player dropped").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
}

func TestChat_RelaysEveryMessage(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	h.room.chat("alice", "")
	h.room.chat("alice", "hi")
	assert.Equal(t, []ChatMessage{
		{Username: "alice", Text: ""},
		{Username: "alice", Text: "hi"},
	}, h.out.chats)
}

func TestInput_MovesAndTracksLastProcessedTick(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	p := joinAlice(t, h)
	h.room.input(world.Input{Username: "alice", Right: true, Tick: 3})
	h.room.input(world.Input{Username: "alice", Right: true, Tick: 4})
	h.steps(1)
	assert.Equal(t, 104.0, p.X)
	assert.Equal(t, int64(4), p.LastProcessedTick)
	assert.Equal(t, 0, p.PendingInputs())
}

func TestAttack_KillsDropsLootAndLocksOut(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	p := joinAlice(t, h)
	addSnail(t, h, "m1", 150, 1)

	h.room.input(world.Input{Username: "alice", Attack: true, Tick: 1})
	h.steps(1)

	assert.Nil(t, h.room.state.MonsterByID("m1"))
	assert.GreaterOrEqual(t, len(h.room.state.Loot), npc.MinDrops)
	assert.LessOrEqual(t, len(h.room.state.Loot), npc.MaxDrops)
	assert.Contains(t, h.hooks.events, "defeat field Snail")
	assert.True(t, p.IsAttacking)
	assert.False(t, p.CanAttack)

	h.room.input(world.Input{Username: "alice", Right: true, Tick: 2})
	h.steps(1)
	assert.Equal(t, 100.0, p.X, "attacking players cannot move")

	h.steps(28)
	assert.False(t, p.CanAttack)
	h.steps(1)
	assert.True(t, p.CanAttack)
	assert.False(t, p.IsAttacking)
}

func TestContact_DamageAndInvulnerabilityWindow(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	p := joinAlice(t, h)
	addSnail(t, h, "m1", 100, 30)
	addSnail(t, h, "m2", 100, 30)

	h.steps(1)
	assert.Equal(t, 90, p.CurrentHealth, "one contact hit per step")
	assert.True(t, p.IsInvulnerable)
	h.room.state.RemoveMonsters([]string{"m1", "m2"})

	h.steps(59)
	assert.True(t, p.IsInvulnerable)
	h.steps(1)
	assert.False(t, p.IsInvulnerable)
	assert.Equal(t, 90, p.CurrentHealth)
}

func TestEffects_SkipDepartedPlayer(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	joinAlice(t, h)
	addSnail(t, h, "m1", 100, 30)
	h.steps(1)
	require.NoError(t, h.room.leave("alice"))
	h.room.state.RemoveMonsters([]string{"m1"})
	assert.NotPanics(t, func() { h.steps(70) })
	assert.Equal(t, 0, h.room.sched.Len())
}

func TestCollect_RemovesOnceAndLocksOut(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	p := joinAlice(t, h)
	require.NoError(t, h.room.state.AddLoot(&world.Loot{ID: "l1", Name: "Small Coin", X: 100, Y: groundY, Width: 16, Height: 16}))

	h.room.input(world.Input{Username: "alice", Loot: true, Tick: 1})
	h.steps(1)
	item := h.room.state.LootByID("l1")
	require.NotNil(t, item)
	assert.True(t, item.IsBeingCollected)
	assert.Equal(t, "alice", item.CollectedBy)
	assert.Equal(t, 5, p.Experience)
	assert.False(t, p.CanLoot)

	h.steps(1)
	assert.Nil(t, h.room.state.LootByID("l1"))

	h.steps(13)
	assert.False(t, p.CanLoot)
	h.steps(1)
	assert.True(t, p.CanLoot)

	h.steps(60)
	assert.Empty(t, h.room.state.Loot)
	assert.Equal(t, 0, h.room.sched.Len())
}

func TestCollect_LevelUpPersistsAndNotifies(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	p := joinAlice(t, h)
	p.Experience = 95
	require.NoError(t, h.room.state.AddLoot(&world.Loot{ID: "l1", Name: "Large Coin", X: 100, Y: groundY, Width: 32, Height: 32}))

	h.room.input(world.Input{Username: "alice", Loot: true, Tick: 1})
	h.steps(1)

	assert.Equal(t, 2, p.Level)
	assert.Equal(t, 12, p.Strength)
	assert.Equal(t, 110, p.MaxHealth)
	writes := h.writer.all()
	require.Len(t, writes, 1)
	assert.Equal(t, "level_up", writes[0].Reason)
	assert.Equal(t, 2, *writes[0].Update.Level)
	assert.Contains(t, h.hooks.events, "level field alice 2")
}

func TestSpawner_PopulatesRoom(t *testing.T) {
	def := &Definition{Name: "field", Map: "field.tmj", Spawns: []SpawnDef{{Monster: "snail", IntervalMillis: 1000, Max: 2}}}
	h := newHarness(t, def, nil, nil)
	h.steps(1)
	assert.Equal(t, 1, h.room.state.CountMonsters("Snail"))
	h.steps(30)
	assert.Equal(t, 1, h.room.state.CountMonsters("Snail"))
	h.steps(40)
	assert.Equal(t, 2, h.room.state.CountMonsters("Snail"))
	h.steps(200)
	assert.Equal(t, 2, h.room.state.CountMonsters("Snail"))
}

func TestPublish_KeyframeThenPatches(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	joinAlice(t, h)

	h.steps(1)
	h.room.publish()
	require.Equal(t, 1, h.out.frameCount())
	assert.NotNil(t, h.out.frames[0].Keyframe)

	h.steps(1)
	h.room.publish()
	assert.Equal(t, 1, h.out.frameCount(), "nothing changed, nothing sent")

	h.room.input(world.Input{Username: "alice", Right: true, Tick: 1})
	h.steps(1)
	h.room.publish()
	require.Equal(t, 2, h.out.frameCount())
	f := h.out.frames[1]
	assert.Nil(t, f.Keyframe)
	require.Len(t, f.Patches, 1)
	assert.Equal(t, replication.PlayerUpdated, f.Patches[0].Kind)
}

func TestAdvance_CarriesRemainder(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	assert.Equal(t, 0, h.room.advance(10*1e6))
	assert.Equal(t, 1, h.room.advance(10*1e6))
	assert.Equal(t, int64(1), h.room.tick)
}

func TestAdvance_CatchUpRunsEveryStep(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	h := newHarness(t, nil, zap.New(core), nil)

	// A stall just over one second is 60 fixed steps; none may be skipped.
	assert.Equal(t, MaxStepsPerWake, h.room.advance(time.Second+time.Millisecond))
	assert.Equal(t, 1, logs.FilterMessage("room behind real time, catching up").Len())

	total := MaxStepsPerWake
	for wakes := 0; wakes < 10 && h.room.acc >= physics.StepMillis; wakes++ {
		total += h.room.advance(0)
	}
	assert.Equal(t, 60, total)
	assert.Equal(t, int64(60), h.room.tick)
	assert.Less(t, h.room.acc, physics.StepMillis)
}

func TestProperty_AdvanceNeverSkipsSteps(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness(t, nil, nil, nil)
		var elapsedMs int64
		wakes := rapid.IntRange(1, 40).Draw(rt, "wakes")
		for i := 0; i < wakes; i++ {
			ms := rapid.Int64Range(0, 2000).Draw(rt, "ms")
			elapsedMs += ms
			h.room.advance(time.Duration(ms) * time.Millisecond)
		}
		for h.room.acc >= physics.StepMillis {
			h.room.advance(0)
		}
		want := int64(float64(elapsedMs) / physics.StepMillis)
		// Float accumulation may leave the last step a hair short.
		if h.room.tick != want && h.room.tick != want-1 {
			rt.Fatalf("ran %d steps for %dms, want %d", h.room.tick, elapsedMs, want)
		}
	})
}

// Property: however inputs are interleaved, health never exceeds max and
// processed ticks never move backwards.
func TestPropertyPlayerInvariantsHold(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness(t, &Definition{Name: "field", Map: "field.tmj",
			Spawns: []SpawnDef{{Monster: "snail", IntervalMillis: 500, Max: 3}}}, nil, dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed")))
		p := joinAlice(t, h)
		var lastTick int64
		n := rapid.IntRange(1, 120).Draw(rt, "steps")
		for i := 0; i < n; i++ {
			h.room.input(world.Input{
				Username: "alice",
				Left:     rapid.Bool().Draw(rt, "left"),
				Right:    rapid.Bool().Draw(rt, "right"),
				Jump:     rapid.Bool().Draw(rt, "jump"),
				Attack:   rapid.Bool().Draw(rt, "attack"),
				Loot:     rapid.Bool().Draw(rt, "loot"),
				Tick:     rapid.Int64Range(0, 200).Draw(rt, "tick"),
			})
			h.steps(1)
			if p.CurrentHealth > p.MaxHealth || p.CurrentHealth <= 0 {
				rt.Fatalf("health %d out of (0, %d]", p.CurrentHealth, p.MaxHealth)
			}
			if p.LastProcessedTick < lastTick {
				rt.Fatalf("last processed tick went backwards: %d < %d", p.LastProcessedTick, lastTick)
			}
			lastTick = p.LastProcessedTick
			for _, m := range h.room.state.Monsters {
				if !m.Alive() {
					rt.Fatalf("dead monster %s survived a step", m.ID)
				}
			}
		}
	})
}
