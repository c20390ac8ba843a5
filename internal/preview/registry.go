// Package preview fans out reload notifications to a project's live preview
// connections and serves project files for preview rendering.
package preview

import (
	"context"
	"sync"
)

// Conn is the minimal write side of a live preview connection. Implemented by
// the gateway's websocket wrapper and by test fakes.
type Conn interface {
	Write(ctx context.Context, data []byte) error
}

type key struct {
	owner     string
	projectID string
}

// state holds the live connections and broadcast bookkeeping for one key.
type state struct {
	conns    map[Conn]struct{}
	inFlight bool
	pending  bool
	reason   string
}

// Registry tracks live preview connections per (owner, project) key.
// Constructor-injected; one per composition root.
type Registry struct {
	mu     sync.Mutex
	states map[key]*state
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{states: make(map[key]*state)}
}

// lockedState returns the lazily-created state for a key. Caller holds mu.
func (r *Registry) lockedState(k key) *state {
	s, ok := r.states[k]
	if !ok {
		s = &state{conns: make(map[Conn]struct{})}
		r.states[k] = s
	}
	return s
}

// Register adds a connection for a key. Idempotent.
func (r *Registry) Register(owner, projectID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lockedState(key{owner, projectID}).conns[c] = struct{}{}
}

// Unregister removes a connection if present. No-op otherwise.
func (r *Registry) Unregister(owner, projectID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.states[key{owner, projectID}]; ok {
		delete(s.conns, c)
	}
}

// Connections returns the number of live connections for a key.
func (r *Registry) Connections(owner, projectID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.states[key{owner, projectID}]; ok {
		return len(s.conns)
	}
	return 0
}
