// README: In-memory session registry with ownership checks and an idle sweeper.
package session

import (
	"context"
	"sync"
	"time"

	"nile/internal/metrics"
	"nile/internal/observability"
	"nile/internal/types"
)

type Registry struct {
	deps Deps

	mu       sync.Mutex
	sessions map[types.ID]*Controller
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{deps: deps, sessions: map[types.ID]*Controller{}}
}

// Create starts a new session owned by userID. An empty userID is an anonymous session.
func (r *Registry) Create(userID string) *Controller {
	c := NewController(userID, r.deps)
	r.mu.Lock()
	r.sessions[c.ID()] = c
	r.mu.Unlock()
	metrics.ActiveSessions.Inc()
	observability.Logger().Info("session created", "session_id", string(c.ID()), "user_id", userID)
	return c
}

// Get returns the session if callerUID may use it. Anonymous sessions are open to anyone.
func (r *Registry) Get(id types.ID, callerUID string) (*Controller, error) {
	r.mu.Lock()
	c, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	if c.UserID() != "" && c.UserID() != callerUID {
		return nil, ErrForbidden
	}
	return c, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close tears the session down and forgets it.
func (r *Registry) Close(id types.ID) error {
	r.mu.Lock()
	c, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	c.Teardown()
	metrics.ActiveSessions.Dec()
	return nil
}

// Sweep closes sessions idle since before now-idle and returns how many it closed.
func (r *Registry) Sweep(now time.Time, idle time.Duration) int {
	cutoff := now.Add(-idle)
	r.mu.Lock()
	var stale []*Controller
	for id, c := range r.sessions {
		if c.LastActive().Before(cutoff) {
			stale = append(stale, c)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, c := range stale {
		c.Teardown()
		metrics.ActiveSessions.Dec()
	}
	return len(stale)
}

// RunSweeper blocks until ctx is done, sweeping idle sessions every interval.
func (r *Registry) RunSweeper(ctx context.Context) {
	interval := r.deps.Engine.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	idle := r.deps.Engine.SessionIdleTimeout
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := observability.Logger()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.Sweep(now, idle); n > 0 {
				logger.Info("idle sessions closed", "count", n)
			}
		}
	}
}

// Shutdown tears down every session.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = map[types.ID]*Controller{}
	r.mu.Unlock()
	for _, c := range all {
		c.Teardown()
		metrics.ActiveSessions.Dec()
	}
}
