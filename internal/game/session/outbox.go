// Package session covers a player's connection lifecycle: authentication,
// spawn placement, profile write-back and outbound message delivery.
package session

import (
	"errors"
	"sync"
)

// DefaultOutboxSize is used when a non-positive buffer size is requested.
const DefaultOutboxSize = 64

// ErrOutboxClosed is returned by Push after Close.
var ErrOutboxClosed = errors.New("outbox closed")

// ErrOutboxFull is returned by Push when the buffer has no free slot.
var ErrOutboxFull = errors.New("outbox full")

// Outbox is a bounded queue of encoded messages for one connected client.
// The room side pushes without blocking; the transport writer drains Messages.
type Outbox struct {
	username string
	messages chan []byte
	mu       sync.Mutex
	closed   bool
}

// NewOutbox creates an Outbox for username.
//
// Postcondition: Returns an open Outbox with capacity size (DefaultOutboxSize if size <= 0).
func NewOutbox(username string, size int) *Outbox {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	return &Outbox{username: username, messages: make(chan []byte, size)}
}

// Username returns the owner of the outbox.
func (o *Outbox) Username() string { return o.username }

// Push enqueues msg.
//
// Postcondition: Returns ErrOutboxClosed or ErrOutboxFull without blocking.
func (o *Outbox) Push(msg []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrOutboxClosed
	}
	select {
	case o.messages <- msg:
		return nil
	default:
		return ErrOutboxFull
	}
}

// Messages returns the channel the transport writer reads from. It is closed by Close.
func (o *Outbox) Messages() <-chan []byte { return o.messages }

// Close closes the message channel. Safe to call more than once.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.messages)
	}
}

// IsClosed reports whether Close has been called.
func (o *Outbox) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
