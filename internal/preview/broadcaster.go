package preview

import (
	"context"
	"log/slog"

	"github.com/codeloom/codeloom/internal/events"
)

// Broadcaster pushes reload notifications to every registered connection of a
// project, one pass at a time per key.
type Broadcaster struct {
	registry *Registry

	// Coalesce controls what happens when a broadcast arrives while a pass
	// for the same key is in flight. False (default) drops the redundant
	// call, matching the historical behavior; true remembers one pending
	// pass and reruns after the current one finishes, so a reload arriving
	// mid-pass is never lost.
	Coalesce bool
}

// NewBroadcaster creates a broadcaster over the given registry.
func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{registry: registry}
}

// BroadcastReload sends a reload message to all connections registered for
// the key. No-op when the set is empty. A call made while a pass is already
// in flight either returns immediately (default) or schedules one rerun
// (Coalesce). Connections whose write fails are removed after the pass.
func (b *Broadcaster) BroadcastReload(ctx context.Context, owner, projectID, reason string) {
	k := key{owner, projectID}

	b.registry.mu.Lock()
	s, ok := b.registry.states[k]
	if !ok || len(s.conns) == 0 {
		b.registry.mu.Unlock()
		return
	}
	if s.inFlight {
		if b.Coalesce {
			s.pending = true
			s.reason = reason
		}
		b.registry.mu.Unlock()
		return
	}
	s.inFlight = true
	b.registry.mu.Unlock()

	for {
		b.pass(ctx, k, reason)

		b.registry.mu.Lock()
		if s.pending {
			s.pending = false
			reason = s.reason
			b.registry.mu.Unlock()
			continue
		}
		s.inFlight = false
		b.registry.mu.Unlock()
		return
	}
}

// pass delivers one reload message to every connection currently registered
// for the key and prunes the ones whose write failed.
func (b *Broadcaster) pass(ctx context.Context, k key, reason string) {
	msg, err := events.Marshal(events.New(events.ReloadPayload{Reason: reason}))
	if err != nil {
		slog.Error("marshal reload", "error", err)
		return
	}

	b.registry.mu.Lock()
	conns := make([]Conn, 0, len(b.registry.states[k].conns))
	for c := range b.registry.states[k].conns {
		conns = append(conns, c)
	}
	b.registry.mu.Unlock()

	var dead []Conn
	for _, c := range conns {
		if err := c.Write(ctx, msg); err != nil {
			dead = append(dead, c)
		}
	}

	if len(dead) > 0 {
		b.registry.mu.Lock()
		for _, c := range dead {
			delete(b.registry.states[k].conns, c)
		}
		b.registry.mu.Unlock()
		slog.Debug("pruned dead preview connections",
			"owner", k.owner, "project_id", k.projectID, "count", len(dead))
	}
}
