package world

import (
	"errors"
	"fmt"
)

// ErrDuplicateID is returned when an entity id is already present in the state.
var ErrDuplicateID = errors.New("duplicate entity id")

// ErrDuplicateUsername is returned when a player with the same username is already in the room.
var ErrDuplicateUsername = errors.New("username already in room")

// State is the authoritative aggregate of one room.
//
// Players, Monsters and Loot keep insertion order; Players is therefore in
// join order, which is the order inputs are processed each step.
//
// Invariant: every entity id is unique across all kinds.
// Invariant: at most one Player per Username.
type State struct {
	MapWidth  float64
	MapHeight float64

	Obstacles []*Obstacle
	Portals   []*Portal
	Players   []*Player
	Monsters  []*Monster
	Loot      []*Loot

	ids map[string]struct{}
}

// NewState creates an empty state with the given map bounds.
//
// Postcondition: Returns a State with no entities.
func NewState(mapWidth, mapHeight float64) *State {
	return &State{
		MapWidth:  mapWidth,
		MapHeight: mapHeight,
		ids:       make(map[string]struct{}),
	}
}

func (s *State) claim(id string) error {
	if id == "" {
		return fmt.Errorf("entity id must not be empty")
	}
	if _, ok := s.ids[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	s.ids[id] = struct{}{}
	return nil
}

// AddObstacle appends a static obstacle.
//
// Postcondition: Returns ErrDuplicateID if o.ID is already present.
func (s *State) AddObstacle(o *Obstacle) error {
	if err := s.claim(o.ID); err != nil {
		return err
	}
	s.Obstacles = append(s.Obstacles, o)
	return nil
}

// AddPortal appends a portal.
//
// Postcondition: Returns ErrDuplicateID if p.ID is already present.
func (s *State) AddPortal(p *Portal) error {
	if err := s.claim(p.ID); err != nil {
		return err
	}
	s.Portals = append(s.Portals, p)
	return nil
}

// AddPlayer appends p to the end of the player order.
//
// Postcondition: Returns ErrDuplicateUsername or ErrDuplicateID without
// modifying the state when the player cannot be added.
func (s *State) AddPlayer(p *Player) error {
	if s.PlayerByUsername(p.Username) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateUsername, p.Username)
	}
	if err := s.claim(p.ID); err != nil {
		return err
	}
	s.Players = append(s.Players, p)
	return nil
}

// RemovePlayer removes the player with the given username and returns it, or nil.
func (s *State) RemovePlayer(username string) *Player {
	for i, p := range s.Players {
		if p.Username == username {
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			delete(s.ids, p.ID)
			return p
		}
	}
	return nil
}

// PlayerByUsername returns the player with username, or nil.
func (s *State) PlayerByUsername(username string) *Player {
	for _, p := range s.Players {
		if p.Username == username {
			return p
		}
	}
	return nil
}

// PlayerByID returns the player with id, or nil.
func (s *State) PlayerByID(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// AddMonster appends m to the monster list.
func (s *State) AddMonster(m *Monster) error {
	if err := s.claim(m.ID); err != nil {
		return err
	}
	s.Monsters = append(s.Monsters, m)
	return nil
}

// MonsterByID returns the monster with id, or nil.
func (s *State) MonsterByID(id string) *Monster {
	for _, m := range s.Monsters {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// RemoveMonsters removes every monster whose id is in ids, preserving the order
// of the survivors.
//
// Postcondition: Returns the number of monsters removed.
func (s *State) RemoveMonsters(ids []string) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := s.Monsters[:0]
	removed := 0
	for _, m := range s.Monsters {
		if _, ok := drop[m.ID]; ok {
			delete(s.ids, m.ID)
			removed++
			continue
		}
		kept = append(kept, m)
	}
	for i := len(kept); i < len(s.Monsters); i++ {
		s.Monsters[i] = nil
	}
	s.Monsters = kept
	return removed
}

// CountMonsters returns the number of monsters spawned from the named template,
// dead or alive.
func (s *State) CountMonsters(templateName string) int {
	n := 0
	for _, m := range s.Monsters {
		if m.Name == templateName {
			n++
		}
	}
	return n
}

// AddLoot appends l to the loot list.
func (s *State) AddLoot(l *Loot) error {
	if err := s.claim(l.ID); err != nil {
		return err
	}
	s.Loot = append(s.Loot, l)
	return nil
}

// LootByID returns the loot item with id, or nil.
func (s *State) LootByID(id string) *Loot {
	for _, l := range s.Loot {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// RemoveLoot removes the loot item with id.
//
// Postcondition: Returns false if no such item exists.
func (s *State) RemoveLoot(id string) bool {
	for i, l := range s.Loot {
		if l.ID == id {
			s.Loot = append(s.Loot[:i], s.Loot[i+1:]...)
			delete(s.ids, id)
			return true
		}
	}
	return false
}

// ResetLootCollection clears the in-flight collection mark on every loot item.
//
// Postcondition: Returns the number of items that were reset.
func (s *State) ResetLootCollection() int {
	n := 0
	for _, l := range s.Loot {
		if l.IsBeingCollected {
			l.ResetCollection()
			n++
		}
	}
	return n
}
