package replication

import (
	"slices"

	"github.com/cory-johannsen/platformer/internal/game/world"
)

// Snapshot is a full capture of a room's replicated state.
type Snapshot struct {
	Tick      int64            `json:"tick"`
	MapWidth  float64          `json:"mapWidth"`
	MapHeight float64          `json:"mapHeight"`
	Players   []PlayerRecord   `json:"players"`
	Monsters  []MonsterRecord  `json:"monsters"`
	Loot      []LootRecord     `json:"loot"`
	Obstacles []ObstacleRecord `json:"obstacles"`
	Portals   []PortalRecord   `json:"portals"`
}

// Capture copies s into a Snapshot labelled with tick.
//
// Postcondition: The result shares no memory with s.
func Capture(s *world.State, tick int64) *Snapshot {
	snap := &Snapshot{
		Tick:      tick,
		MapWidth:  s.MapWidth,
		MapHeight: s.MapHeight,
		Players:   make([]PlayerRecord, 0, len(s.Players)),
		Monsters:  make([]MonsterRecord, 0, len(s.Monsters)),
		Loot:      make([]LootRecord, 0, len(s.Loot)),
		Obstacles: make([]ObstacleRecord, 0, len(s.Obstacles)),
		Portals:   make([]PortalRecord, 0, len(s.Portals)),
	}
	for _, p := range s.Players {
		snap.Players = append(snap.Players, NewPlayerRecord(p))
	}
	for _, m := range s.Monsters {
		snap.Monsters = append(snap.Monsters, NewMonsterRecord(m))
	}
	for _, l := range s.Loot {
		snap.Loot = append(snap.Loot, NewLootRecord(l))
	}
	for _, o := range s.Obstacles {
		snap.Obstacles = append(snap.Obstacles, ObstacleRecord{
			ID: o.ID, X: o.X, Y: o.Y, Width: o.Width, Height: o.Height, OneWay: o.OneWay,
		})
	}
	for _, p := range s.Portals {
		snap.Portals = append(snap.Portals, PortalRecord(*p))
	}
	return snap
}

// Player returns the record for username.
func (s *Snapshot) Player(username string) (PlayerRecord, bool) {
	for _, p := range s.Players {
		if p.Username == username {
			return p, true
		}
	}
	return PlayerRecord{}, false
}

// Clone returns a deep copy of s.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.Players = slices.Clone(s.Players)
	c.Monsters = make([]MonsterRecord, len(s.Monsters))
	for i, m := range s.Monsters {
		m.PotentialLoot = slices.Clone(m.PotentialLoot)
		c.Monsters[i] = m
	}
	c.Loot = slices.Clone(s.Loot)
	c.Obstacles = slices.Clone(s.Obstacles)
	c.Portals = slices.Clone(s.Portals)
	return &c
}
