package session

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrAlreadyConnected is returned when a username already holds a connection.
var ErrAlreadyConnected = errors.New("player already connected")

// ErrNotConnected is returned when a username has no connection.
var ErrNotConnected = errors.New("player not connected")

// Connection is one player's live presence on the server.
type Connection struct {
	Username string
	Room     string
	Outbox   *Outbox

	released chan struct{}
}

// Directory tracks which room each connected player occupies.
// All methods are safe for concurrent use.
type Directory struct {
	mu         sync.RWMutex
	conns      map[string]*Connection         // username → connection
	byRoom     map[string]map[string]struct{} // room → usernames
	outboxSize int
}

// NewDirectory creates an empty Directory whose outboxes hold outboxSize messages.
func NewDirectory(outboxSize int) *Directory {
	return &Directory{
		conns:      make(map[string]*Connection),
		byRoom:     make(map[string]map[string]struct{}),
		outboxSize: outboxSize,
	}
}

// Connect registers username in room with a fresh Outbox.
//
// Precondition: username and room must be non-empty.
// Postcondition: Returns ErrAlreadyConnected if username is present anywhere on the server.
func (d *Directory) Connect(username, room string) (*Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.conns[username]; ok {
		return nil, ErrAlreadyConnected
	}
	return d.register(username, room), nil
}

// ConnectWait is Connect, except that while username is still held it waits for
// that connection to be released and then retries.
//
// Postcondition: Returns ErrAlreadyConnected if ctx ends before username is free.
func (d *Directory) ConnectWait(ctx context.Context, username, room string) (*Connection, error) {
	for {
		d.mu.Lock()
		cur, ok := d.conns[username]
		if !ok {
			c := d.register(username, room)
			d.mu.Unlock()
			return c, nil
		}
		released := cur.released
		d.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return nil, ErrAlreadyConnected
		}
	}
}

// Disconnect removes username and closes its outbox.
//
// Postcondition: Returns ErrNotConnected if username is absent.
func (d *Directory) Disconnect(username string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.conns[username]
	if !ok {
		return ErrNotConnected
	}
	d.remove(c)
	return nil
}

// Release disconnects c only if it is still the current connection for its username.
//
// Postcondition: Returns false when c was already replaced or removed.
func (d *Directory) Release(c *Connection) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	cur, ok := d.conns[c.Username]
	if !ok || cur != c {
		return false
	}
	d.remove(c)
	return true
}

// Lookup returns the connection for username.
func (d *Directory) Lookup(username string) (*Connection, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.conns[username]
	return c, ok
}

// InRoom returns the sorted usernames occupying room.
func (d *Directory) InRoom(room string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	set := d.byRoom[room]
	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Outboxes returns the outboxes of every player in room.
func (d *Directory) Outboxes(room string) []*Outbox {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Outbox, 0, len(d.byRoom[room]))
	for u := range d.byRoom[room] {
		out = append(out, d.conns[u].Outbox)
	}
	return out
}

// Count returns the number of connected players.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.conns)
}

func (d *Directory) register(username, room string) *Connection {
	c := &Connection{
		Username: username,
		Room:     room,
		Outbox:   NewOutbox(username, d.outboxSize),
		released: make(chan struct{}),
	}
	d.conns[username] = c
	d.enter(room, username)
	return c
}

func (d *Directory) remove(c *Connection) {
	d.exit(c.Room, c.Username)
	delete(d.conns, c.Username)
	c.Outbox.Close()
	close(c.released)
}

func (d *Directory) enter(room, username string) {
	if d.byRoom[room] == nil {
		d.byRoom[room] = make(map[string]struct{})
	}
	d.byRoom[room][username] = struct{}{}
}

func (d *Directory) exit(room, username string) {
	if set, ok := d.byRoom[room]; ok {
		delete(set, username)
		if len(set) == 0 {
			delete(d.byRoom, room)
		}
	}
}
