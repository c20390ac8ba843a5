package generation

import (
	"context"
	"testing"

	"github.com/codeloom/codeloom/internal/events"
)

// drain collects every queued event through the end event.
func drain(t *testing.T, q *events.Queue) []events.Event {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out []events.Event
	for {
		ev, err := q.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		out = append(out, ev)
		if ev.Kind == events.KindEnd {
			return out
		}
	}
}

func TestRunFullSequence(t *testing.T) {
	reg := NewRegistry()
	runner := NewRunner(reg, 0)

	id := reg.CreateTask("dev@example.com", "add login page", "", "")
	runner.Run(id)

	q, ok := reg.Queue(id)
	if !ok {
		t.Fatal("queue not found")
	}
	got := drain(t, q)

	want := []events.Kind{
		events.KindStatus,
		events.KindToken, events.KindToken, events.KindToken,
		events.KindFileDiff, events.KindFileDiff,
		events.KindStatus,
		events.KindEnd,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i, k := range want {
		if got[i].Kind != k {
			t.Fatalf("event %d: expected %q, got %q", i, k, got[i].Kind)
		}
	}

	first := got[0].Payload.(events.StatusPayload)
	if first.Phase != events.PhaseStarted {
		t.Fatalf("expected first status %q, got %q", events.PhaseStarted, first.Phase)
	}
	last := got[6].Payload.(events.StatusPayload)
	if last.Phase != events.PhaseCompleted {
		t.Fatalf("expected final status %q, got %q", events.PhaseCompleted, last.Phase)
	}

	tokens := []string{"add", "login", "page"}
	for i, want := range tokens {
		p := got[1+i].Payload.(events.TokenPayload)
		if p.Token != want {
			t.Fatalf("token %d: expected %q, got %q", i, want, p.Token)
		}
		if p.Index != i+1 {
			t.Fatalf("token %d: expected index %d, got %d", i, i+1, p.Index)
		}
	}

	d1 := got[4].Payload.(events.FileDiffPayload)
	if d1.Diff.Path != "README.md" || d1.Diff.ChangeType != "modify" {
		t.Fatalf("unexpected first diff: %+v", d1.Diff)
	}
	d2 := got[5].Payload.(events.FileDiffPayload)
	if d2.Diff.Path != "src/app/page.tsx" || d2.Diff.ChangeType != "add" {
		t.Fatalf("unexpected second diff: %+v", d2.Diff)
	}
}

func TestRunEmptyPrompt(t *testing.T) {
	reg := NewRegistry()
	runner := NewRunner(reg, 0)

	id := reg.CreateTask("dev@example.com", "   ", "", "")
	runner.Run(id)

	q, _ := reg.Queue(id)
	got := drain(t, q)

	var tokens []string
	for _, ev := range got {
		if p, ok := ev.Payload.(events.TokenPayload); ok {
			tokens = append(tokens, p.Token)
		}
	}
	want := []string{"[no]", "prompt", "provided"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d placeholder tokens, got %d", len(want), len(tokens))
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Fatalf("token %d: expected %q, got %q", i, want[i], tokens[i])
		}
	}
}

func TestRunLongPromptClipsPatch(t *testing.T) {
	reg := NewRegistry()
	runner := NewRunner(reg, 0)

	prompt := "build a complete dashboard with charts and tables"
	id := reg.CreateTask("dev@example.com", prompt, "", "")
	runner.Run(id)

	q, _ := reg.Queue(id)
	for _, ev := range drain(t, q) {
		p, ok := ev.Payload.(events.FileDiffPayload)
		if !ok {
			continue
		}
		want := "+ Added section for: " + prompt[:20] + "..."
		if p.Diff.Path == "README.md" && p.Diff.Patch != want {
			t.Fatalf("expected patch %q, got %q", want, p.Diff.Patch)
		}
	}
}

func TestRunSingleEndEvent(t *testing.T) {
	reg := NewRegistry()
	runner := NewRunner(reg, 0)

	id := reg.CreateTask("dev@example.com", "hello", "", "")
	runner.Run(id)

	q, _ := reg.Queue(id)
	ends := 0
	for _, ev := range drain(t, q) {
		if ev.Kind == events.KindEnd {
			ends++
		}
	}
	if ends != 1 {
		t.Fatalf("expected exactly one end event, got %d", ends)
	}
	if q.Len() != 0 {
		t.Fatalf("expected nothing after end, got %d queued events", q.Len())
	}
}

func TestRunUnknownTask(t *testing.T) {
	reg := NewRegistry()
	runner := NewRunner(reg, 0)

	// Must not panic or create state.
	runner.Run("no-such-task")
	if _, ok := reg.Owner("no-such-task"); ok {
		t.Fatal("unknown task should not exist after run")
	}
}

func TestRunMarksTaskDone(t *testing.T) {
	reg := NewRegistry()
	runner := NewRunner(reg, 0)

	id := reg.CreateTask("dev@example.com", "hello", "", "")
	tk, _ := reg.task(id)
	if tk.Completed() {
		t.Fatal("task completed before run")
	}
	runner.Run(id)
	if !tk.Completed() {
		t.Fatal("task not completed after run")
	}
	if tk.Err() != "" {
		t.Fatalf("expected no failure, got %q", tk.Err())
	}
}
