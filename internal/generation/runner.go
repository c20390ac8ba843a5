package generation

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codeloom/codeloom/internal/events"
)

// placeholderTokens replaces an empty prompt so the stream still carries a
// token phase.
var placeholderTokens = []string{"[no]", "prompt", "provided"}

// Runner executes one task, producing an ordered event sequence that models a
// multi-phase generation pipeline. The real model/tooling calls are simulated;
// the contract is the event shapes and their ordering.
type Runner struct {
	registry *Registry
	pace     time.Duration
}

// NewRunner creates a runner over the given registry. pace is the delay
// between emitted events; tests set it to zero.
func NewRunner(registry *Registry, pace time.Duration) *Runner {
	return &Runner{registry: registry, pace: pace}
}

// Run executes the task with the given id to its terminal event. Unknown ids
// are a no-op. Run never panics and never returns an error: any fault is
// converted into an error event on the task's stream, and the mandatory end
// event is emitted regardless.
func (r *Runner) Run(taskID string) {
	t, ok := r.registry.task(taskID)
	if !ok {
		return
	}

	var failure string
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				failure = fmt.Sprint(rec)
			}
		}()
		failure = r.emitPhases(t)
	}()

	if failure != "" {
		slog.Warn("generation failed", "task_id", t.ID, "error", failure)
		t.queue.Put(events.New(events.ErrorPayload{Message: failure, TaskID: t.ID}))
	}

	t.queue.Put(events.New(events.EndPayload{TaskID: t.ID}))
	t.markDone(failure)
}

// emitPhases produces the started/token/file_diff/completed sequence.
// Returns a non-empty message on failure, in which case the completed status
// is not emitted.
func (r *Runner) emitPhases(t *Task) string {
	t.queue.Put(events.New(events.StatusPayload{Phase: events.PhaseStarted, TaskID: t.ID}))

	for i, tok := range tokenize(t.Prompt) {
		r.sleep()
		t.queue.Put(events.New(events.TokenPayload{Index: i + 1, Token: tok, TaskID: t.ID}))
	}

	for i, diff := range mockDiffs(t.Prompt) {
		r.sleep()
		t.queue.Put(events.New(events.FileDiffPayload{Index: i + 1, Diff: diff, TaskID: t.ID}))
	}

	r.sleep()
	t.queue.Put(events.New(events.StatusPayload{Phase: events.PhaseCompleted, TaskID: t.ID}))
	return ""
}

func (r *Runner) sleep() {
	if r.pace > 0 {
		time.Sleep(r.pace)
	}
}

// tokenize splits a prompt on whitespace.
func tokenize(prompt string) []string {
	fields := strings.Fields(prompt)
	if len(fields) == 0 {
		return placeholderTokens
	}
	return fields
}

// mockDiffs produces a fixed pair of simulated file changes for the prompt.
func mockDiffs(prompt string) []events.FileDiff {
	clipped := prompt
	if len(clipped) > 20 {
		clipped = clipped[:20] + "..."
	}
	return []events.FileDiff{
		{
			Path:       "README.md",
			ChangeType: "modify",
			Patch:      "+ Added section for: " + clipped,
		},
		{
			Path:       "src/app/page.tsx",
			ChangeType: "add",
			Patch:      "+ Page created for: " + clipped,
		},
	}
}
