package room_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/platformer/internal/game/room"
)

func TestScheduler_FiresInTimeThenInsertionOrder(t *testing.T) {
	s := room.NewScheduler()
	s.Schedule(100, room.RemoveLoot, "l1")
	s.Schedule(50, room.AttackReady, "p1")
	s.Schedule(100, room.SafetyRemoveLoot, "l1")
	s.Schedule(200, room.LootReady, "p1")

	assert.Empty(t, s.Due(49))
	due := s.Due(100)
	assert.Len(t, due, 3)
	assert.Equal(t, room.AttackReady, due[0].Kind)
	assert.Equal(t, room.RemoveLoot, due[1].Kind)
	assert.Equal(t, room.SafetyRemoveLoot, due[2].Kind)
	assert.Equal(t, 1, s.Len())
}

func TestEffectKind_String(t *testing.T) {
	assert.Equal(t, "invulnerability_end", room.InvulnerabilityEnd.String())
	assert.Equal(t, "unknown", room.EffectKind(99).String())
}

// Property: Due returns effects in non-decreasing time order and never
// returns an effect twice.
func TestPropertySchedulerOrdering(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := room.NewScheduler()
		n := rapid.IntRange(0, 50).Draw(t, "n")
		for i := 0; i < n; i++ {
			s.Schedule(rapid.Int64Range(0, 1000).Draw(t, "at"), room.AttackReady, "p")
		}
		var got []room.Effect
		for now := int64(0); now <= 1000; now += rapid.Int64Range(1, 200).Draw(t, "step") {
			got = append(got, s.Due(now)...)
		}
		got = append(got, s.Due(1000)...)
		if len(got) != n {
			t.Fatalf("fired %d of %d effects", len(got), n)
		}
		for i := 1; i < len(got); i++ {
			if got[i].At < got[i-1].At {
				t.Fatalf("effect %d at %d fired after %d", i, got[i].At, got[i-1].At)
			}
		}
	})
}
