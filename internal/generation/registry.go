// Package generation owns the lifecycle of generation tasks: creation, the
// per-task event queue, background execution, and eviction of finished tasks.
package generation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeloom/codeloom/internal/events"
)

// Task holds the state of one generation request.
type Task struct {
	ID            string
	Owner         string
	ProjectID     string
	ChatSessionID string
	Prompt        string

	mu        sync.Mutex
	completed bool
	errMsg    string
	doneAt    time.Time

	queue *events.Queue
}

// Completed reports whether the task's terminal event has been enqueued.
func (t *Task) Completed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

// Err returns the task's failure message, if any.
func (t *Task) Err() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errMsg
}

func (t *Task) markDone(errMsg string) {
	t.mu.Lock()
	t.completed = true
	t.errMsg = errMsg
	t.doneAt = time.Now()
	t.mu.Unlock()
}

func (t *Task) doneSince(cutoff time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed && t.doneAt.Before(cutoff)
}

// Registry tracks tasks by id. Construct one per composition root; there is
// no package-level instance.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// CreateTask registers a new task with a fresh id and an empty queue.
// The runner is scheduled by the caller, not here.
func (r *Registry) CreateTask(owner, prompt, projectID, chatSessionID string) string {
	t := &Task{
		ID:            uuid.New().String(),
		Owner:         owner,
		ProjectID:     projectID,
		ChatSessionID: chatSessionID,
		Prompt:        prompt,
		queue:         events.NewQueue(),
	}

	r.mu.Lock()
	r.tasks[t.ID] = t
	r.mu.Unlock()

	return t.ID
}

// Owner returns the recorded owner of a task.
func (r *Registry) Owner(taskID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[taskID]
	if !ok {
		return "", false
	}
	return t.Owner, true
}

// Queue returns the task's event queue. Used by the runner (producer) and the
// stream gate (single consumer).
func (r *Registry) Queue(taskID string) (*events.Queue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[taskID]
	if !ok {
		return nil, false
	}
	return t.queue, true
}

func (r *Registry) task(taskID string) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[taskID]
	return t, ok
}

// Evict removes completed tasks whose terminal event predates cutoff.
// Returns the number of tasks removed.
func (r *Registry) Evict(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, t := range r.tasks {
		if t.doneSince(cutoff) {
			delete(r.tasks, id)
			n++
		}
	}
	return n
}

// StartJanitor sweeps completed tasks older than ttl until ctx is cancelled.
// A ttl of zero disables eviction.
func (r *Registry) StartJanitor(ctx context.Context, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(ttl)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Evict(time.Now().Add(-ttl)); n > 0 {
					slog.Debug("evicted finished tasks", "count", n)
				}
			}
		}
	}()
}
