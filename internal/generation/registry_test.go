package generation

import (
	"testing"
	"time"
)

func TestRegistryCreateAndLookup(t *testing.T) {
	reg := NewRegistry()

	id := reg.CreateTask("dev@example.com", "hello", "p1", "c1")
	if id == "" {
		t.Fatal("expected non-empty task id")
	}

	owner, ok := reg.Owner(id)
	if !ok {
		t.Fatal("task not found")
	}
	if owner != "dev@example.com" {
		t.Fatalf("expected owner %q, got %q", "dev@example.com", owner)
	}

	if _, ok := reg.Queue(id); !ok {
		t.Fatal("queue not found")
	}
	if _, ok := reg.Owner("missing"); ok {
		t.Fatal("expected lookup miss for unknown id")
	}
}

func TestRegistryIDsAreUnique(t *testing.T) {
	reg := NewRegistry()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := reg.CreateTask("dev@example.com", "x", "", "")
		if seen[id] {
			t.Fatalf("duplicate task id %q", id)
		}
		seen[id] = true
	}
}

func TestEvictOnlyCompletedTasks(t *testing.T) {
	reg := NewRegistry()
	runner := NewRunner(reg, 0)

	done := reg.CreateTask("dev@example.com", "x", "", "")
	runner.Run(done)
	pending := reg.CreateTask("dev@example.com", "y", "", "")

	if n := reg.Evict(time.Now().Add(time.Minute)); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if _, ok := reg.Owner(done); ok {
		t.Fatal("completed task survived eviction")
	}
	if _, ok := reg.Owner(pending); !ok {
		t.Fatal("pending task was evicted")
	}
}

func TestEvictRespectsCutoff(t *testing.T) {
	reg := NewRegistry()
	runner := NewRunner(reg, 0)

	id := reg.CreateTask("dev@example.com", "x", "", "")
	runner.Run(id)

	// Finished just now; a cutoff in the past keeps it.
	if n := reg.Evict(time.Now().Add(-time.Minute)); n != 0 {
		t.Fatalf("expected 0 evictions, got %d", n)
	}
	if _, ok := reg.Owner(id); !ok {
		t.Fatal("task evicted before its ttl")
	}
}
