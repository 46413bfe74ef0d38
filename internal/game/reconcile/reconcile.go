// Package reconcile is the client half of the movement contract: local
// prediction with the server's integration rules, correction against
// authoritative records, and interpolation of remote entities.
package reconcile

import (
	"math"

	"github.com/cory-johannsen/platformer/internal/game/physics"
	"github.com/cory-johannsen/platformer/internal/game/replication"
	"github.com/cory-johannsen/platformer/internal/game/world"
)

// SnapThreshold is the position divergence above which the predicted player
// is snapped to the server position.
const SnapThreshold = 5.0

// Predictor runs client-side prediction for the local player.
// It is not safe for concurrent use.
type Predictor struct {
	player    *world.Player
	obstacles []*world.Obstacle
	pending   []world.Input
	nextTick  int64
	threshold float64
}

// NewPredictor starts predicting from the authoritative record self.
func NewPredictor(self replication.PlayerRecord, obstacles []*world.Obstacle) *Predictor {
	p := &Predictor{
		player:    &world.Player{Username: self.Username},
		obstacles: obstacles,
		nextTick:  self.LastProcessedTick + 1,
		threshold: SnapThreshold,
	}
	p.adopt(self)
	return p
}

// Player returns the predicted local player.
func (p *Predictor) Player() *world.Player { return p.player }

// Pending returns the number of inputs not yet acknowledged by the server.
func (p *Predictor) Pending() int { return len(p.pending) }

// Predict stamps in with the next tick number, applies it locally and buffers
// it for replay.
//
// Postcondition: Returns the stamped input to send to the server.
func (p *Predictor) Predict(in world.Input) world.Input {
	in.Tick = p.nextTick
	in.Username = p.player.Username
	p.nextTick++
	physics.MovePlayer(p.player, in, p.obstacles)
	p.pending = append(p.pending, in)
	return in
}

// Reconcile corrects the prediction with the server's record for the local player.
//
// Inputs with tick <= server.LastProcessedTick are discarded. If the predicted
// position differs from the server's by more than the threshold, the player is
// snapped to the server state and the remaining inputs are replayed.
//
// Postcondition: Returns true if a snap and replay happened.
func (p *Predictor) Reconcile(server replication.PlayerRecord) bool {
	keep := p.pending[:0]
	for _, in := range p.pending {
		if in.Tick > server.LastProcessedTick {
			keep = append(keep, in)
		}
	}
	p.pending = keep
	if p.nextTick <= server.LastProcessedTick {
		p.nextTick = server.LastProcessedTick + 1
	}

	p.syncAttributes(server)
	if math.Hypot(p.player.X-server.X, p.player.Y-server.Y) <= p.threshold {
		return false
	}
	p.adopt(server)
	for _, in := range p.pending {
		physics.MovePlayer(p.player, in, p.obstacles)
	}
	return true
}

// adopt copies the full authoritative state, including kinematics.
func (p *Predictor) adopt(r replication.PlayerRecord) {
	p.player.ID = r.ID
	p.player.X, p.player.Y = r.X, r.Y
	p.player.VX, p.player.VY = r.VX, r.VY
	p.player.CanJump = r.CanJump
	p.syncAttributes(r)
}

// syncAttributes copies the fields the client never predicts.
func (p *Predictor) syncAttributes(r replication.PlayerRecord) {
	pl := p.player
	pl.Experience, pl.Level, pl.Strength = r.Experience, r.Level, r.Strength
	pl.Width, pl.Height = r.Width, r.Height
	pl.CurrentHealth, pl.MaxHealth = r.CurrentHealth, r.MaxHealth
	pl.CanAttack, pl.CanLoot = r.CanAttack, r.CanLoot
	pl.IsAttacking, pl.IsInvulnerable = r.IsAttacking, r.IsInvulnerable
	pl.LastProcessedTick = r.LastProcessedTick
}

// Interpolate moves current toward target by alpha in [0, 1].
func Interpolate(current, target, alpha float64) float64 {
	alpha = math.Max(0, math.Min(1, alpha))
	return current + (target-current)*alpha
}

// InterpolatePosition applies Interpolate to both axes.
func InterpolatePosition(x, y, targetX, targetY, alpha float64) (float64, float64) {
	return Interpolate(x, targetX, alpha), Interpolate(y, targetY, alpha)
}
