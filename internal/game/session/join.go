package session

import (
	"context"
	"fmt"

	"github.com/cory-johannsen/platformer/internal/game/profile"
	"github.com/cory-johannsen/platformer/internal/game/world"
)

// DefaultSpawn is used when a profile has no usable last position.
const (
	DefaultSpawnX = 100.0
	DefaultSpawnY = 100.0
)

// JoinOptions carries the client's join request. TargetX and TargetY are set
// together by a portal transfer.
type JoinOptions struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	TargetX  *float64 `json:"targetX,omitempty"`
	TargetY  *float64 `json:"targetY,omitempty"`
}

// Authenticate logs opts.Username in against store.
//
// Postcondition: Returns profile.ErrMissingCredentials when either credential
// is empty, otherwise whatever the store's Login returns.
func Authenticate(ctx context.Context, store profile.Store, opts JoinOptions) (profile.Profile, error) {
	if opts.Username == "" || opts.Password == "" {
		return profile.Profile{}, profile.ErrMissingCredentials
	}
	p, err := store.Login(ctx, opts.Username, opts.Password)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("authenticating %q: %w", opts.Username, err)
	}
	return p, nil
}

// SpawnPosition picks where a joining player appears.
//
// A portal target wins when both coordinates are present. Otherwise the
// profile's last position is used, with a zero coordinate falling back to the
// default spawn.
func SpawnPosition(p profile.Profile, opts JoinOptions) (x, y float64) {
	if opts.TargetX != nil && opts.TargetY != nil {
		return *opts.TargetX, *opts.TargetY
	}
	x, y = p.LastX, p.LastY
	if x == 0 {
		x = DefaultSpawnX
	}
	if y == 0 {
		y = DefaultSpawnY
	}
	return x, y
}

// NewPlayer builds the in-room entity for an authenticated profile.
//
// Postcondition: CurrentHealth == MaxHealth, all action flags enabled, not invulnerable.
func NewPlayer(id string, p profile.Profile, x, y float64) *world.Player {
	maxHealth := p.MaxHealth
	if maxHealth <= 0 {
		maxHealth = profile.DefaultMaxHealth
	}
	strength := p.Strength
	if strength <= 0 {
		strength = profile.DefaultStrength
	}
	level := p.Level
	if level <= 0 {
		level = profile.DefaultLevel
	}
	return &world.Player{
		ID:            id,
		Username:      p.Username,
		X:             x,
		Y:             y,
		Experience:    p.Experience,
		Level:         level,
		Strength:      strength,
		Width:         world.PlayerWidth,
		Height:        world.PlayerHeight,
		CurrentHealth: maxHealth,
		MaxHealth:     maxHealth,
		CanAttack:     true,
		CanLoot:       true,
		CanJump:       true,
	}
}

// LeaveUpdate is the profile write issued when p leaves room.
func LeaveUpdate(p *world.Player, room string) profile.Update {
	u := LevelUpdate(p)
	x, y := p.X, p.Y
	u.LastRoom = &room
	u.LastX = &x
	u.LastY = &y
	return u
}

// LevelUpdate is the profile write issued when p levels up.
func LevelUpdate(p *world.Player) profile.Update {
	xp, lvl, str, maxHealth := p.Experience, p.Level, p.Strength, p.MaxHealth
	return profile.Update{Experience: &xp, Level: &lvl, Strength: &str, MaxHealth: &maxHealth}
}
