package room

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Manager is the registry of running rooms. Each room runs in its own goroutine.
//
// Invariant: room names are unique.
type Manager struct {
	rooms map[string]*Room

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager registers rooms.
//
// Postcondition: Returns an error if two rooms share a name.
func NewManager(rooms ...*Room) (*Manager, error) {
	m := &Manager{rooms: make(map[string]*Room, len(rooms))}
	for _, r := range rooms {
		if _, dup := m.rooms[r.Name()]; dup {
			return nil, fmt.Errorf("duplicate room %q", r.Name())
		}
		m.rooms[r.Name()] = r
	}
	return m, nil
}

// Get returns the named room.
func (m *Manager) Get(name string) (*Room, bool) {
	r, ok := m.rooms[name]
	return r, ok
}

// Names returns the registered room names in sorted order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.rooms))
	for name := range m.rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run runs every room until ctx is cancelled or a room fails.
//
// Postcondition: Returns after every room loop has exited.
func (m *Manager) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range m.Names() {
		r := m.rooms[name]
		g.Go(func() error {
			if err := r.Run(ctx); err != nil {
				return fmt.Errorf("room %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Start runs every room and blocks until Stop is called.
func (m *Manager) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()
	defer close(done)
	return m.Run(ctx)
}

// Stop cancels every room and waits for them to persist their players.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
