// Package gateway exposes rooms to browser clients over HTTP and websockets.
package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/cory-johannsen/platformer/internal/game/profile"
	"github.com/cory-johannsen/platformer/internal/game/replication"
)

// Message types carried in an Envelope.
const (
	TypeWelcome = "welcome"
	TypeState   = "state"
	TypePatch   = "patch"
	TypeChat    = "chat"
	TypeError   = "error"
	TypeInput   = "input"
)

// Envelope is the outbound wire frame: a type tag and its payload.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type clientEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// WelcomePayload is sent once to a client after it joins a room.
type WelcomePayload struct {
	PlayerID string                `json:"playerId"`
	Room     string                `json:"room"`
	Snapshot *replication.Snapshot `json:"snapshot"`
}

// PatchPayload carries the structural diff published for one tick.
type PatchPayload struct {
	Tick    int64               `json:"tick"`
	Patches []replication.Patch `json:"patches"`
}

// ErrorPayload reports a rejected client message.
type ErrorPayload struct {
	Message string `json:"message"`
}

type chatRequest struct {
	Text string `json:"text"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ProfileView is the client-visible part of a profile.
type ProfileView struct {
	Username   string  `json:"username"`
	Experience int     `json:"experience"`
	Level      int     `json:"level"`
	LastRoom   string  `json:"lastRoom"`
	LastX      float64 `json:"lastX"`
	LastY      float64 `json:"lastY"`
	Strength   int     `json:"strength"`
	MaxHealth  int     `json:"maxHealth"`
}

func newProfileView(p profile.Profile) ProfileView {
	return ProfileView{
		Username:   p.Username,
		Experience: p.Experience,
		Level:      p.Level,
		LastRoom:   p.LastRoom,
		LastX:      p.LastX,
		LastY:      p.LastY,
		Strength:   p.Strength,
		MaxHealth:  p.MaxHealth,
	}
}

func encode(msgType string, payload any) ([]byte, error) {
	data, err := json.Marshal(Envelope{Type: msgType, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encoding %s message: %w", msgType, err)
	}
	return data, nil
}
