package replication

import (
	"fmt"
	"reflect"
	"slices"
)

// PatchKind identifies the type of diff entry.
type PatchKind string

const (
	PlayerAdded    PatchKind = "player_added"
	PlayerUpdated  PatchKind = "player_updated"
	PlayerRemoved  PatchKind = "player_removed"
	MonsterAdded   PatchKind = "monster_added"
	MonsterUpdated PatchKind = "monster_updated"
	MonsterRemoved PatchKind = "monster_removed"
	LootAdded      PatchKind = "loot_added"
	LootUpdated    PatchKind = "loot_updated"
	LootRemoved    PatchKind = "loot_removed"
)

// Patch is one structural change between two snapshots. Payload holds the
// full new record for added and updated kinds and is nil for removals.
type Patch struct {
	Kind     PatchKind `json:"kind"`
	EntityID string    `json:"entityId"`
	Payload  any       `json:"payload,omitempty"`
}

// Frame is one outbound state publication for a room.
type Frame struct {
	Room     string    `json:"room"`
	Tick     int64     `json:"tick"`
	Keyframe *Snapshot `json:"keyframe,omitempty"`
	Patches  []Patch   `json:"patches,omitempty"`
}

// Diff returns the patches that turn prev into next for players, monsters and
// loot. Static geometry is only sent in keyframes.
//
// Postcondition: Patches are grouped players, monsters, loot; within a group
// removals come first in prev order, then additions and updates in next order.
func Diff(prev, next *Snapshot) []Patch {
	var out []Patch
	out = diffKind(out, prev.Players, next.Players, func(r PlayerRecord) string { return r.ID },
		func(a, b PlayerRecord) bool { return a == b }, PlayerAdded, PlayerUpdated, PlayerRemoved)
	out = diffKind(out, prev.Monsters, next.Monsters, func(r MonsterRecord) string { return r.ID },
		monsterEqual, MonsterAdded, MonsterUpdated, MonsterRemoved)
	out = diffKind(out, prev.Loot, next.Loot, func(r LootRecord) string { return r.ID },
		func(a, b LootRecord) bool { return a == b }, LootAdded, LootUpdated, LootRemoved)
	return out
}

func monsterEqual(a, b MonsterRecord) bool {
	return reflect.DeepEqual(a, b)
}

func diffKind[R any](out []Patch, prev, next []R, id func(R) string, equal func(a, b R) bool,
	added, updated, removed PatchKind) []Patch {
	before := make(map[string]R, len(prev))
	for _, r := range prev {
		before[id(r)] = r
	}
	present := make(map[string]struct{}, len(next))
	for _, r := range next {
		present[id(r)] = struct{}{}
	}
	for _, r := range prev {
		if _, ok := present[id(r)]; !ok {
			out = append(out, Patch{Kind: removed, EntityID: id(r)})
		}
	}
	for _, r := range next {
		old, ok := before[id(r)]
		switch {
		case !ok:
			out = append(out, Patch{Kind: added, EntityID: id(r), Payload: r})
		case !equal(old, r):
			out = append(out, Patch{Kind: updated, EntityID: id(r), Payload: r})
		}
	}
	return out
}

// Apply returns a copy of base with patches applied, labelled with tick.
//
// Postcondition: Returns an error on a patch whose payload type does not match
// its kind, or an update or removal for an unknown entity.
func Apply(base *Snapshot, tick int64, patches []Patch) (*Snapshot, error) {
	s := base.Clone()
	s.Tick = tick
	var err error
	for _, p := range patches {
		switch p.Kind {
		case PlayerAdded, PlayerUpdated, PlayerRemoved:
			s.Players, err = applyOne(s.Players, p, PlayerAdded, PlayerRemoved, func(r PlayerRecord) string { return r.ID })
		case MonsterAdded, MonsterUpdated, MonsterRemoved:
			s.Monsters, err = applyOne(s.Monsters, p, MonsterAdded, MonsterRemoved, func(r MonsterRecord) string { return r.ID })
		case LootAdded, LootUpdated, LootRemoved:
			s.Loot, err = applyOne(s.Loot, p, LootAdded, LootRemoved, func(r LootRecord) string { return r.ID })
		default:
			err = fmt.Errorf("unknown patch kind %q", p.Kind)
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func applyOne[R any](records []R, p Patch, added, removed PatchKind, id func(R) string) ([]R, error) {
	idx := slices.IndexFunc(records, func(r R) bool { return id(r) == p.EntityID })
	if p.Kind == removed {
		if idx < 0 {
			return nil, fmt.Errorf("%s: unknown entity %s", p.Kind, p.EntityID)
		}
		return slices.Delete(records, idx, idx+1), nil
	}
	rec, ok := p.Payload.(R)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected payload %T", p.Kind, p.Payload)
	}
	if p.Kind == added {
		if idx >= 0 {
			return nil, fmt.Errorf("%s: entity %s already present", p.Kind, p.EntityID)
		}
		return append(records, rec), nil
	}
	if idx < 0 {
		return nil, fmt.Errorf("%s: unknown entity %s", p.Kind, p.EntityID)
	}
	records[idx] = rec
	return records, nil
}
