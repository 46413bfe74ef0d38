package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/platformer/internal/game/profile"
)

// Write is one queued profile update.
type Write struct {
	Username string
	Update   profile.Update
	// Reason names the event that produced the write, for logs.
	Reason string
}

// Persister writes profile updates on a background goroutine so the simulation
// never waits on storage. Failed writes are logged and not retried.
type Persister struct {
	store   profile.Store
	queue   chan Write
	timeout time.Duration
	logger  *zap.Logger
}

// NewPersister creates a Persister with a queue of size entries.
//
// Precondition: store and logger must be non-nil; size > 0; timeout > 0.
func NewPersister(store profile.Store, size int, timeout time.Duration, logger *zap.Logger) *Persister {
	return &Persister{
		store:   store,
		queue:   make(chan Write, size),
		timeout: timeout,
		logger:  logger,
	}
}

// Enqueue schedules w without blocking.
//
// Postcondition: Returns false and logs a warning if the queue is full.
func (p *Persister) Enqueue(w Write) bool {
	select {
	case p.queue <- w:
		return true
	default:
		p.logger.Warn("profile write dropped, queue full",
			zap.String("username", w.Username),
			zap.String("reason", w.Reason),
		)
		return false
	}
}

// Run applies queued writes until ctx is cancelled, then drains what is
// already queued before returning.
func (p *Persister) Run(ctx context.Context) error {
	for {
		select {
		case w := <-p.queue:
			p.apply(w)
		case <-ctx.Done():
			p.drain()
			return nil
		}
	}
}

func (p *Persister) drain() {
	for {
		select {
		case w := <-p.queue:
			p.apply(w)
		default:
			return
		}
	}
}

// apply bounds each write by its own timeout; Run's context only signals shutdown.
func (p *Persister) apply(w Write) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.store.Update(ctx, w.Username, w.Update); err != nil {
		p.logger.Error("profile write failed",
			zap.String("username", w.Username),
			zap.String("reason", w.Reason),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("profile written",
		zap.String("username", w.Username),
		zap.String("reason", w.Reason),
	)
}
