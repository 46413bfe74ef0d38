package room

import "container/heap"

// EffectKind names a deferred state change.
type EffectKind int

const (
	// AttackReady ends a player's attack lockout.
	AttackReady EffectKind = iota
	// LootReady ends a player's pickup lockout.
	LootReady
	// InvulnerabilityEnd ends a player's post-hit invulnerability.
	InvulnerabilityEnd
	// RemoveLoot removes a collected item after its pickup animation.
	RemoveLoot
	// SafetyRemoveLoot removes a collected item if RemoveLoot missed it.
	SafetyRemoveLoot
)

func (k EffectKind) String() string {
	switch k {
	case AttackReady:
		return "attack_ready"
	case LootReady:
		return "loot_ready"
	case InvulnerabilityEnd:
		return "invulnerability_end"
	case RemoveLoot:
		return "remove_loot"
	case SafetyRemoveLoot:
		return "safety_remove_loot"
	default:
		return "unknown"
	}
}

// Effect is a deferred change to the entity with id Target, due at room time At.
type Effect struct {
	At     int64
	Kind   EffectKind
	Target string
	seq    uint64
}

// Scheduler orders deferred effects by due time on the room clock. Effects
// with equal due times fire in scheduling order.
//
// Scheduler holds entity ids, never entity pointers; whoever applies an effect
// looks the target up and skips it when it is gone.
type Scheduler struct {
	q   effectQueue
	seq uint64
}

// NewScheduler returns an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Schedule queues kind for target at room time at.
func (s *Scheduler) Schedule(at int64, kind EffectKind, target string) {
	s.seq++
	heap.Push(&s.q, Effect{At: at, Kind: kind, Target: target, seq: s.seq})
}

// Due removes and returns every effect with At <= now, in firing order.
func (s *Scheduler) Due(now int64) []Effect {
	var out []Effect
	for len(s.q) > 0 && s.q[0].At <= now {
		out = append(out, heap.Pop(&s.q).(Effect))
	}
	return out
}

// Len returns the number of pending effects.
func (s *Scheduler) Len() int { return len(s.q) }

type effectQueue []Effect

func (q effectQueue) Len() int { return len(q) }
func (q effectQueue) Less(i, j int) bool {
	if q[i].At != q[j].At {
		return q[i].At < q[j].At
	}
	return q[i].seq < q[j].seq
}
func (q effectQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *effectQueue) Push(x any)   { *q = append(*q, x.(Effect)) }
func (q *effectQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}
