package room

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/platformer/internal/game/combat"
	"github.com/cory-johannsen/platformer/internal/game/loot"
	"github.com/cory-johannsen/platformer/internal/game/npc"
	"github.com/cory-johannsen/platformer/internal/game/physics"
	"github.com/cory-johannsen/platformer/internal/game/session"
	"github.com/cory-johannsen/platformer/internal/game/world"
	"github.com/cory-johannsen/platformer/internal/observability"
)

// MaxStepsPerWake bounds the steps run in one wake so mailbox messages are
// still served while a stalled room catches up. Time beyond the bound stays
// accumulated and runs on later wakes.
const MaxStepsPerWake = 30

// advance consumes elapsed wall-clock time as fixed steps.
//
// Postcondition: Returns the number of steps run. Unconsumed time, including a
// backlog left by the per-wake bound, carries over to the next wake.
func (r *Room) advance(elapsed time.Duration) int {
	r.acc += float64(elapsed) / float64(time.Millisecond)
	steps := 0
	for r.acc >= physics.StepMillis && steps < MaxStepsPerWake {
		r.acc -= physics.StepMillis
		r.step()
		steps++
	}
	if r.acc >= physics.StepMillis {
		r.logger.Warn("room behind real time, catching up",
			zap.Float64("backlog_ms", r.acc),
			zap.Int64("tick", r.tick),
		)
	}
	return steps
}

// now is the room clock in whole milliseconds.
func (r *Room) now() int64 { return int64(r.clock) }

// step runs exactly one fixed step.
func (r *Room) step() {
	r.clock += physics.StepMillis
	r.tick++
	now := r.now()

	for _, e := range r.sched.Due(now) {
		r.applyEffect(e)
	}
	for _, p := range r.state.Players {
		r.contact(p, now)
	}
	for _, p := range r.state.Players {
		r.processInputs(p, now)
	}
	r.stepMonsters(now)
	for _, l := range r.state.Loot {
		physics.StepLoot(l, r.state.Obstacles, r.state.MapHeight)
	}
	for _, p := range r.state.Players {
		if physics.EscapeObstacles(p, r.state.Obstacles) {
			r.logger.Debug("player pushed out of obstacle", observability.Player(p.ID, p.Username))
		}
	}
	for _, m := range r.spawner.Tick(now, r.state) {
		r.logger.Debug("monster spawned",
			zap.String("monster_id", m.ID),
			zap.String("monster", m.Name),
		)
	}
}

// applyEffect resolves e's target by id; effects on departed entities are no-ops.
func (r *Room) applyEffect(e Effect) {
	switch e.Kind {
	case AttackReady, LootReady, InvulnerabilityEnd:
		p := r.state.PlayerByID(e.Target)
		if p == nil {
			return
		}
		switch e.Kind {
		case AttackReady:
			p.CanAttack = true
			p.IsAttacking = false
		case LootReady:
			p.CanLoot = true
		case InvulnerabilityEnd:
			p.IsInvulnerable = false
		}
	case RemoveLoot, SafetyRemoveLoot:
		if r.state.RemoveLoot(e.Target) {
			r.logger.Debug("loot removed", zap.String("loot_id", e.Target), zap.Stringer("effect", e.Kind))
		}
	}
}

func (r *Room) contact(p *world.Player, now int64) {
	c := combat.ResolveContact(p, r.state.Monsters)
	if c == nil {
		return
	}
	r.sched.Schedule(now+combat.InvulnerabilityMillis, InvulnerabilityEnd, p.ID)
	r.logger.Debug("contact damage",
		observability.Player(p.ID, p.Username),
		zap.String("monster_id", c.MonsterID),
		zap.Int("damage", c.Damage),
		zap.Int("health", p.CurrentHealth),
	)
	if c.Respawned {
		r.logger.Info("player defeated and respawned", observability.Player(p.ID, p.Username))
	}
}

func (r *Room) processInputs(p *world.Player, now int64) {
	for _, in := range p.DrainInputs() {
		if in.Tick > p.LastProcessedTick {
			p.LastProcessedTick = in.Tick
		}
		if in.Attack && p.CanAttack {
			r.attack(p, now)
		}
		if in.Loot && p.CanLoot {
			r.collect(p, now)
		}
		physics.MovePlayer(p, in, r.state.Obstacles)
	}
}

func (r *Room) attack(p *world.Player, now int64) {
	hits := combat.ResolveAttack(p, r.state.Monsters, r.src)
	p.IsAttacking = true
	p.CanAttack = false
	r.sched.Schedule(now+combat.AttackLockoutMillis, AttackReady, p.ID)
	for _, h := range hits {
		r.logger.Debug("attack hit",
			observability.Player(p.ID, p.Username),
			zap.String("monster_id", h.MonsterID),
			zap.Int("damage", h.Damage),
			zap.Bool("critical", h.Critical),
			zap.Bool("lethal", h.Lethal),
		)
	}
}

func (r *Room) collect(p *world.Player, now int64) {
	p.CanLoot = false
	r.sched.Schedule(now+loot.LockoutMillis, LootReady, p.ID)
	c := loot.Collect(p, r.state.Loot)
	if c == nil {
		return
	}
	r.sched.Schedule(now+loot.RemovalMillis, RemoveLoot, c.Item.ID)
	r.sched.Schedule(now+loot.SafetyRemovalMillis, SafetyRemoveLoot, c.Item.ID)
	r.logger.Debug("loot collected",
		observability.Player(p.ID, p.Username),
		zap.String("loot_id", c.Item.ID),
		zap.String("item", c.Item.Name),
		zap.Int("experience", c.Experience),
	)
	if !c.LeveledUp {
		return
	}
	r.profiles.Enqueue(session.Write{Username: p.Username, Update: session.LevelUpdate(p), Reason: "level_up"})
	r.logger.Info("player leveled up",
		observability.Player(p.ID, p.Username),
		zap.Int("level", p.Level),
	)
	r.hooks.PlayerLeveled(r.name, p.Username, p.Level)
}

// stepMonsters removes dead monsters, dropping their loot, and moves the living.
func (r *Room) stepMonsters(now int64) {
	var dead []string
	for _, m := range r.state.Monsters {
		if !m.Alive() {
			dead = append(dead, m.ID)
			drops := npc.GenerateLoot(m, r.src, now, r.newID)
			for _, l := range drops {
				if err := r.state.AddLoot(l); err != nil {
					r.logger.Error("adding loot", zap.String("loot_id", l.ID), zap.Error(err))
				}
			}
			r.logger.Debug("monster defeated",
				zap.String("monster_id", m.ID),
				zap.String("monster", m.Name),
				zap.Int("drops", len(drops)),
			)
			r.hooks.MonsterDefeated(r.name, m.Name, m.X, m.Y)
			continue
		}
		npc.Advance(m, physics.StepMillis, r.src)
		physics.StepMonsterBody(m, r.state.Obstacles)
		npc.Jitter(m, r.src)
	}
	r.state.RemoveMonsters(dead)
}
