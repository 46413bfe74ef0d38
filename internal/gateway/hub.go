package gateway

import (
	"errors"

	"go.uber.org/zap"

	"github.com/cory-johannsen/platformer/internal/game/replication"
	"github.com/cory-johannsen/platformer/internal/game/room"
	"github.com/cory-johannsen/platformer/internal/game/session"
)

// SystemSender is the chat username used for server announcements.
const SystemSender = "server"

// Hub fans room output out to the outboxes of connected clients.
// It implements room.Broadcaster and is safe for concurrent use.
type Hub struct {
	dir    *session.Directory
	logger *zap.Logger
}

// NewHub creates a Hub delivering through dir.
//
// Precondition: dir and logger must be non-nil.
func NewHub(dir *session.Directory, logger *zap.Logger) *Hub {
	if dir == nil {
		panic("gateway.NewHub: dir must not be nil")
	}
	if logger == nil {
		panic("gateway.NewHub: logger must not be nil")
	}
	return &Hub{dir: dir, logger: logger}
}

// Welcome sends the join result to username only.
func (h *Hub) Welcome(roomName, username string, res room.JoinResult) {
	c, ok := h.dir.Lookup(username)
	if !ok {
		h.logger.Debug("welcome for disconnected player dropped",
			zap.String("room", roomName),
			zap.String("username", username),
		)
		return
	}
	data, err := encode(TypeWelcome, WelcomePayload{PlayerID: res.PlayerID, Room: roomName, Snapshot: res.Snapshot})
	if err != nil {
		h.logger.Error("encoding welcome", zap.Error(err))
		return
	}
	h.deliver(c.Outbox, data)
}

// PublishFrame sends a keyframe as a state message and anything else as a patch message.
func (h *Hub) PublishFrame(f replication.Frame) {
	var (
		data []byte
		err  error
	)
	if f.Keyframe != nil {
		data, err = encode(TypeState, f.Keyframe)
	} else {
		data, err = encode(TypePatch, PatchPayload{Tick: f.Tick, Patches: f.Patches})
	}
	if err != nil {
		h.logger.Error("encoding frame", zap.String("room", f.Room), zap.Error(err))
		return
	}
	h.broadcast(f.Room, data)
}

// PublishChat sends msg to every client in roomName.
func (h *Hub) PublishChat(roomName string, msg room.ChatMessage) {
	data, err := encode(TypeChat, msg)
	if err != nil {
		h.logger.Error("encoding chat", zap.String("room", roomName), zap.Error(err))
		return
	}
	h.broadcast(roomName, data)
}

// Announce publishes text to roomName as a chat message from SystemSender.
func (h *Hub) Announce(roomName, text string) {
	h.PublishChat(roomName, room.ChatMessage{Username: SystemSender, Text: text})
}

func (h *Hub) broadcast(roomName string, data []byte) {
	for _, o := range h.dir.Outboxes(roomName) {
		h.deliver(o, data)
	}
}

// deliver pushes data without blocking. A client whose outbox is full is
// disconnected so it rejoins with a fresh keyframe.
func (h *Hub) deliver(o *session.Outbox, data []byte) {
	err := o.Push(data)
	switch {
	case err == nil, errors.Is(err, session.ErrOutboxClosed):
	case errors.Is(err, session.ErrOutboxFull):
		h.logger.Warn("outbox full, disconnecting slow client", zap.String("username", o.Username()))
		o.Close()
	default:
		h.logger.Error("delivering message", zap.String("username", o.Username()), zap.Error(err))
	}
}
