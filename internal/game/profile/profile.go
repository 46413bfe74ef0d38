// Package profile defines the durable player profile and the store contract
// the room uses to authenticate and persist players.
package profile

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Defaults applied to a newly registered profile.
const (
	DefaultLevel     = 1
	DefaultStrength  = 10
	DefaultMaxHealth = 100
	DefaultRoom      = "field"
)

// ErrNotFound is returned when a profile lookup yields no results.
var ErrNotFound = errors.New("profile not found")

// ErrExists is returned when registering a username that is already taken.
var ErrExists = errors.New("profile already exists")

// ErrInvalidCredentials is returned when a password does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrMissingCredentials is returned when the username or password is empty.
var ErrMissingCredentials = errors.New("username and password are required")

// Profile is the persisted state of one player account.
type Profile struct {
	Username     string
	PasswordHash string
	Experience   int
	Level        int
	LastRoom     string
	LastX        float64
	LastY        float64
	Strength     int
	MaxHealth    int
}

// NewProfile returns a fresh profile for username with the registration defaults.
func NewProfile(username, passwordHash string) Profile {
	return Profile{
		Username:     username,
		PasswordHash: passwordHash,
		Level:        DefaultLevel,
		LastRoom:     DefaultRoom,
		Strength:     DefaultStrength,
		MaxHealth:    DefaultMaxHealth,
	}
}

// Update is a partial profile write. Nil fields are left unchanged.
type Update struct {
	Experience *int
	Level      *int
	LastRoom   *string
	LastX      *float64
	LastY      *float64
	Strength   *int
	MaxHealth  *int
}

// Apply writes every non-nil field of u into p.
func (u Update) Apply(p *Profile) {
	if u.Experience != nil {
		p.Experience = *u.Experience
	}
	if u.Level != nil {
		p.Level = *u.Level
	}
	if u.LastRoom != nil {
		p.LastRoom = *u.LastRoom
	}
	if u.LastX != nil {
		p.LastX = *u.LastX
	}
	if u.LastY != nil {
		p.LastY = *u.LastY
	}
	if u.Strength != nil {
		p.Strength = *u.Strength
	}
	if u.MaxHealth != nil {
		p.MaxHealth = *u.MaxHealth
	}
}

// Empty reports whether u changes nothing.
func (u Update) Empty() bool {
	return u.Experience == nil && u.Level == nil && u.LastRoom == nil &&
		u.LastX == nil && u.LastY == nil && u.Strength == nil && u.MaxHealth == nil
}

// Store is the durable profile backend.
type Store interface {
	// Register creates a profile with default attributes.
	//
	// Postcondition: Returns ErrExists if the username is taken.
	Register(ctx context.Context, username, password string) (Profile, error)
	// Login verifies credentials.
	//
	// Postcondition: Returns ErrNotFound or ErrInvalidCredentials on failure.
	Login(ctx context.Context, username, password string) (Profile, error)
	// Get returns the profile for username or ErrNotFound.
	Get(ctx context.Context, username string) (Profile, error)
	// Update applies u to the stored profile or returns ErrNotFound.
	Update(ctx context.Context, username string, u Update) error
}

// HashPassword creates a bcrypt hash of password.
//
// Precondition: password must be non-empty.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
