package store

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestProjectCRUD(t *testing.T) {
	s := newTestStore(t)

	p, err := s.CreateProject("dev@example.com", "landing", "marketing site")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetProject("dev@example.com", p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "landing" || got.Description != "marketing site" {
		t.Fatalf("unexpected project: %+v", got)
	}

	name := "landing v2"
	updated, err := s.UpdateProject("dev@example.com", p.ID, &name, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "landing v2" || updated.Description != "marketing site" {
		t.Fatalf("partial update changed wrong fields: %+v", updated)
	}

	if err := s.DeleteProject("dev@example.com", p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetProject("dev@example.com", p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestProjectOwnerScoping(t *testing.T) {
	s := newTestStore(t)

	p, err := s.CreateProject("alice@example.com", "secret", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.GetProject("bob@example.com", p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
	if err := s.DeleteProject("bob@example.com", p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign delete, got %v", err)
	}
}

func TestListProjectsFilter(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"landing page", "admin panel", "Landing v2"} {
		if _, err := s.CreateProject("dev@example.com", name, ""); err != nil {
			t.Fatalf("create %q: %v", name, err)
		}
	}

	all, err := s.ListProjects("dev@example.com", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 projects, got %d", len(all))
	}

	filtered, err := s.ListProjects("dev@example.com", "landing")
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(filtered))
	}
}

func TestChatSessionsAndMessages(t *testing.T) {
	s := newTestStore(t)

	cs, err := s.CreateChatSession("dev@example.com", "first chat", "p1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if cs.Status != "active" {
		t.Fatalf("expected active status, got %q", cs.Status)
	}

	for _, content := range []string{"hi", "build me a page", "done"} {
		if _, err := s.AppendChatMessage(cs.ID, "user", content); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	msgs, err := s.ListChatMessages(cs.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "hi" || msgs[2].Content != "done" {
		t.Fatalf("messages out of order: %q ... %q", msgs[0].Content, msgs[2].Content)
	}

	if err := s.DeleteChatSession("dev@example.com", cs.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := s.GetChatSession("dev@example.com", cs.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
