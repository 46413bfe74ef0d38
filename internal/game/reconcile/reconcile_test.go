package reconcile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/platformer/internal/game/physics"
	"github.com/cory-johannsen/platformer/internal/game/reconcile"
	"github.com/cory-johannsen/platformer/internal/game/replication"
	"github.com/cory-johannsen/platformer/internal/game/world"
)

// floor is a wide solid platform whose top edge sits at y=200.
func floor() []*world.Obstacle {
	return []*world.Obstacle{{ID: "floor", X: 500, Y: 216, Width: 1000, Height: 32}}
}

func grounded() replication.PlayerRecord {
	return replication.PlayerRecord{
		ID: "p1", Username: "alice", X: 100, Y: 184, CanJump: true,
		Level: 1, Strength: 10, CurrentHealth: 100, MaxHealth: 100, Width: 32, Height: 32,
	}
}

func TestPredict_StampsTicks(t *testing.T) {
	p := reconcile.NewPredictor(grounded(), floor())
	a := p.Predict(world.Input{Right: true})
	b := p.Predict(world.Input{Right: true})
	assert.Equal(t, int64(1), a.Tick)
	assert.Equal(t, int64(2), b.Tick)
	assert.Equal(t, "alice", a.Username)
	assert.Equal(t, 104.0, p.Player().X)
	assert.Equal(t, 2, p.Pending())
}

func TestReconcile_DiscardsAcknowledged(t *testing.T) {
	p := reconcile.NewPredictor(grounded(), floor())
	for i := 0; i < 3; i++ {
		p.Predict(world.Input{Right: true})
	}
	server := grounded()
	server.X = 104
	server.LastProcessedTick = 2
	snapped := p.Reconcile(server)
	assert.False(t, snapped)
	assert.Equal(t, 1, p.Pending())
	assert.Equal(t, 106.0, p.Player().X)
}

func TestReconcile_SnapsAndReplays(t *testing.T) {
	p := reconcile.NewPredictor(grounded(), floor())
	for i := 0; i < 3; i++ {
		p.Predict(world.Input{Right: true})
	}
	server := grounded()
	server.X = 150
	server.LastProcessedTick = 1
	server.CurrentHealth = 90
	require.True(t, p.Reconcile(server))
	assert.Equal(t, 154.0, p.Player().X)
	assert.Equal(t, 90, p.Player().CurrentHealth)
	assert.Equal(t, 2, p.Pending())
}

func TestReconcile_ServerAheadAdvancesTick(t *testing.T) {
	p := reconcile.NewPredictor(grounded(), floor())
	server := grounded()
	server.LastProcessedTick = 10
	p.Reconcile(server)
	assert.Equal(t, int64(11), p.Predict(world.Input{}).Tick)
}

func TestInterpolate(t *testing.T) {
	assert.Equal(t, 5.0, reconcile.Interpolate(0, 10, 0.5))
	assert.Equal(t, 10.0, reconcile.Interpolate(0, 10, 2))
	assert.Equal(t, 0.0, reconcile.Interpolate(0, 10, -1))
	x, y := reconcile.InterpolatePosition(0, 0, 10, 20, 0.25)
	assert.Equal(t, 2.5, x)
	assert.Equal(t, 5.0, y)
}

// Property: when the server applies exactly the inputs the client predicted,
// reconciliation never snaps and the prediction matches the server.
func TestPropertyPredictionMatchesServer(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := grounded()
		p := reconcile.NewPredictor(start, floor())
		server := &world.Player{Username: "alice", X: start.X, Y: start.Y, CanJump: true}

		n := rapid.IntRange(1, 60).Draw(t, "inputs")
		var last world.Input
		for i := 0; i < n; i++ {
			in := world.Input{
				Left:  rapid.Bool().Draw(t, "left"),
				Right: rapid.Bool().Draw(t, "right"),
				Jump:  rapid.Bool().Draw(t, "jump"),
			}
			last = p.Predict(in)
			physics.MovePlayer(server, last, floor())
		}
		rec := grounded()
		rec.X, rec.Y, rec.VX, rec.VY, rec.CanJump = server.X, server.Y, server.VX, server.VY, server.CanJump
		rec.LastProcessedTick = last.Tick
		if p.Reconcile(rec) {
			t.Fatalf("unexpected snap: predicted (%v,%v) server (%v,%v)", p.Player().X, p.Player().Y, server.X, server.Y)
		}
		if p.Pending() != 0 {
			t.Fatalf("%d inputs still pending", p.Pending())
		}
	})
}
