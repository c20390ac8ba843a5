// Package store persists projects, their files and version snapshots, and
// chat sessions in a local SQLite database.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrPathExists = errors.New("path already exists")
)

// Project is a user-owned project.
type Project struct {
	ID          string `json:"id"`
	OwnerEmail  string `json:"owner_email"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ChatSession groups chat messages, optionally linked to a project.
type ChatSession struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	Status    string `json:"status"`
}

// ChatMessage is one message in a chat session.
type ChatMessage struct {
	ID            string `json:"id"`
	ChatSessionID string `json:"chat_session_id"`
	Role          string `json:"role"`
	Content       string `json:"content"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id          TEXT PRIMARY KEY,
			owner_email TEXT NOT NULL,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS files (
			id          TEXT PRIMARY KEY,
			owner_email TEXT NOT NULL,
			project_id  TEXT NOT NULL,
			path        TEXT NOT NULL,
			content     TEXT NOT NULL DEFAULT '',
			is_binary   INTEGER NOT NULL DEFAULT 0,
			UNIQUE (owner_email, project_id, path)
		)`,
		`CREATE TABLE IF NOT EXISTS versions (
			id             TEXT PRIMARY KEY,
			owner_email    TEXT NOT NULL,
			project_id     TEXT NOT NULL,
			version_number INTEGER NOT NULL,
			description    TEXT NOT NULL DEFAULT '',
			UNIQUE (owner_email, project_id, version_number)
		)`,
		`CREATE TABLE IF NOT EXISTS version_files (
			version_id TEXT NOT NULL,
			file_id    TEXT NOT NULL,
			path       TEXT NOT NULL,
			content    TEXT NOT NULL DEFAULT '',
			is_binary  INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS chat_sessions (
			id          TEXT PRIMARY KEY,
			owner_email TEXT NOT NULL,
			title       TEXT NOT NULL DEFAULT '',
			project_id  TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'active'
		)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id              TEXT PRIMARY KEY,
			chat_session_id TEXT NOT NULL,
			role            TEXT NOT NULL,
			content         TEXT NOT NULL,
			seq             INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// CreateProject creates a project for the owner.
func (s *Store) CreateProject(owner, name, description string) (*Project, error) {
	p := &Project{
		ID:          uuid.New().String(),
		OwnerEmail:  owner,
		Name:        name,
		Description: description,
	}
	_, err := s.db.Exec(
		`INSERT INTO projects (id, owner_email, name, description) VALUES (?, ?, ?, ?)`,
		p.ID, p.OwnerEmail, p.Name, p.Description,
	)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

// GetProject returns a project scoped to its owner.
func (s *Store) GetProject(owner, projectID string) (*Project, error) {
	var p Project
	err := s.db.QueryRow(
		`SELECT id, owner_email, name, description FROM projects WHERE owner_email = ? AND id = ?`,
		owner, projectID,
	).Scan(&p.ID, &p.OwnerEmail, &p.Name, &p.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

// ListProjects returns the owner's projects, optionally filtered by a
// case-insensitive name substring.
func (s *Store) ListProjects(owner, query string) ([]*Project, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_email, name, description FROM projects WHERE owner_email = ? ORDER BY name`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var result []*Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.OwnerEmail, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			continue
		}
		result = append(result, &p)
	}
	return result, rows.Err()
}

// UpdateProject applies a partial update. Nil fields are left unchanged.
func (s *Store) UpdateProject(owner, projectID string, name, description *string) (*Project, error) {
	p, err := s.GetProject(owner, projectID)
	if err != nil {
		return nil, err
	}
	if name != nil {
		p.Name = *name
	}
	if description != nil {
		p.Description = *description
	}
	_, err = s.db.Exec(
		`UPDATE projects SET name = ?, description = ? WHERE owner_email = ? AND id = ?`,
		p.Name, p.Description, owner, projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return p, nil
}

// DeleteProject removes a project and its files, versions, and snapshots.
func (s *Store) DeleteProject(owner, projectID string) error {
	res, err := s.db.Exec(`DELETE FROM projects WHERE owner_email = ? AND id = ?`, owner, projectID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, _ = s.db.Exec(`DELETE FROM files WHERE owner_email = ? AND project_id = ?`, owner, projectID)
	_, _ = s.db.Exec(`DELETE FROM version_files WHERE version_id IN
		(SELECT id FROM versions WHERE owner_email = ? AND project_id = ?)`, owner, projectID)
	_, _ = s.db.Exec(`DELETE FROM versions WHERE owner_email = ? AND project_id = ?`, owner, projectID)
	return nil
}

// CreateChatSession creates a chat session for the owner.
func (s *Store) CreateChatSession(owner, title, projectID string) (*ChatSession, error) {
	cs := &ChatSession{
		ID:        uuid.New().String(),
		Title:     title,
		ProjectID: projectID,
		Status:    "active",
	}
	_, err := s.db.Exec(
		`INSERT INTO chat_sessions (id, owner_email, title, project_id, status) VALUES (?, ?, ?, ?, ?)`,
		cs.ID, owner, cs.Title, cs.ProjectID, cs.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("create chat session: %w", err)
	}
	return cs, nil
}

// GetChatSession returns a chat session scoped to its owner.
func (s *Store) GetChatSession(owner, sessionID string) (*ChatSession, error) {
	var cs ChatSession
	err := s.db.QueryRow(
		`SELECT id, title, project_id, status FROM chat_sessions WHERE owner_email = ? AND id = ?`,
		owner, sessionID,
	).Scan(&cs.ID, &cs.Title, &cs.ProjectID, &cs.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat session: %w", err)
	}
	return &cs, nil
}

// ListChatSessions returns all chat sessions for the owner.
func (s *Store) ListChatSessions(owner string) ([]*ChatSession, error) {
	rows, err := s.db.Query(
		`SELECT id, title, project_id, status FROM chat_sessions WHERE owner_email = ?`, owner)
	if err != nil {
		return nil, fmt.Errorf("list chat sessions: %w", err)
	}
	defer rows.Close()

	var result []*ChatSession
	for rows.Next() {
		var cs ChatSession
		if err := rows.Scan(&cs.ID, &cs.Title, &cs.ProjectID, &cs.Status); err != nil {
			return nil, err
		}
		result = append(result, &cs)
	}
	return result, rows.Err()
}

// DeleteChatSession removes a session and its messages.
func (s *Store) DeleteChatSession(owner, sessionID string) error {
	res, err := s.db.Exec(`DELETE FROM chat_sessions WHERE owner_email = ? AND id = ?`, owner, sessionID)
	if err != nil {
		return fmt.Errorf("delete chat session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, _ = s.db.Exec(`DELETE FROM chat_messages WHERE chat_session_id = ?`, sessionID)
	return nil
}

// AppendChatMessage adds a message to a session.
func (s *Store) AppendChatMessage(sessionID, role, content string) (*ChatMessage, error) {
	m := &ChatMessage{
		ID:            uuid.New().String(),
		ChatSessionID: sessionID,
		Role:          role,
		Content:       content,
	}
	_, err := s.db.Exec(
		`INSERT INTO chat_messages (id, chat_session_id, role, content, seq)
		 VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM chat_messages WHERE chat_session_id = ?))`,
		m.ID, m.ChatSessionID, m.Role, m.Content, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("append chat message: %w", err)
	}
	return m, nil
}

// ListChatMessages returns a session's messages in append order.
func (s *Store) ListChatMessages(sessionID string) ([]*ChatMessage, error) {
	rows, err := s.db.Query(
		`SELECT id, chat_session_id, role, content FROM chat_messages
		 WHERE chat_session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var result []*ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.ChatSessionID, &m.Role, &m.Content); err != nil {
			return nil, err
		}
		result = append(result, &m)
	}
	return result, rows.Err()
}
