package store

import (
	"archive/zip"
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// FileRecord is one project file.
type FileRecord struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Content  string `json:"content"`
	IsBinary bool   `json:"is_binary"`
}

// VersionRecord is a point-in-time snapshot of a project's files.
type VersionRecord struct {
	ID            string       `json:"id"`
	VersionNumber int          `json:"version_number"`
	Description   string       `json:"description,omitempty"`
	Files         []FileRecord `json:"files"`
}

// ListFiles returns all current files of a project.
func (s *Store) ListFiles(owner, projectID string) ([]FileRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, path, content, is_binary FROM files
		 WHERE owner_email = ? AND project_id = ? ORDER BY path`,
		owner, projectID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var result []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.ID, &f.Path, &f.Content, &f.IsBinary); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// GetFile returns one file by id.
func (s *Store) GetFile(owner, projectID, fileID string) (*FileRecord, error) {
	var f FileRecord
	err := s.db.QueryRow(
		`SELECT id, path, content, is_binary FROM files
		 WHERE owner_email = ? AND project_id = ? AND id = ?`,
		owner, projectID, fileID,
	).Scan(&f.ID, &f.Path, &f.Content, &f.IsBinary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return &f, nil
}

// GetFileByPath returns one file by its exact stored path.
func (s *Store) GetFileByPath(owner, projectID, path string) (*FileRecord, error) {
	var f FileRecord
	err := s.db.QueryRow(
		`SELECT id, path, content, is_binary FROM files
		 WHERE owner_email = ? AND project_id = ? AND path = ?`,
		owner, projectID, path,
	).Scan(&f.ID, &f.Path, &f.Content, &f.IsBinary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file by path: %w", err)
	}
	return &f, nil
}

// UpsertFileByPath creates or replaces the content of a file at path.
func (s *Store) UpsertFileByPath(owner, projectID, path, content string, isBinary bool) (*FileRecord, error) {
	existing, err := s.GetFileByPath(owner, projectID, path)
	if err == nil {
		_, err = s.db.Exec(
			`UPDATE files SET content = ?, is_binary = ? WHERE id = ?`,
			content, isBinary, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("upsert file: %w", err)
		}
		existing.Content = content
		existing.IsBinary = isBinary
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	f := &FileRecord{ID: uuid.New().String(), Path: path, Content: content, IsBinary: isBinary}
	_, err = s.db.Exec(
		`INSERT INTO files (id, owner_email, project_id, path, content, is_binary) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, owner, projectID, f.Path, f.Content, f.IsBinary)
	if err != nil {
		return nil, fmt.Errorf("insert file: %w", err)
	}
	return f, nil
}

// UpdateFile applies a partial update to a file. Moving a file onto an
// existing path returns ErrPathExists.
func (s *Store) UpdateFile(owner, projectID, fileID string, path, content *string, isBinary *bool) (*FileRecord, error) {
	f, err := s.GetFile(owner, projectID, fileID)
	if err != nil {
		return nil, err
	}
	if path != nil && *path != f.Path {
		if other, err := s.GetFileByPath(owner, projectID, *path); err == nil && other.ID != fileID {
			return nil, ErrPathExists
		}
		f.Path = *path
	}
	if content != nil {
		f.Content = *content
	}
	if isBinary != nil {
		f.IsBinary = *isBinary
	}
	_, err = s.db.Exec(
		`UPDATE files SET path = ?, content = ?, is_binary = ? WHERE id = ?`,
		f.Path, f.Content, f.IsBinary, f.ID)
	if err != nil {
		return nil, fmt.Errorf("update file: %w", err)
	}
	return f, nil
}

// DeleteFile removes a file by id.
func (s *Store) DeleteFile(owner, projectID, fileID string) error {
	res, err := s.db.Exec(
		`DELETE FROM files WHERE owner_email = ? AND project_id = ? AND id = ?`,
		owner, projectID, fileID)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SnapshotVersion records the current files as the next numbered version.
func (s *Store) SnapshotVersion(owner, projectID, description string) (*VersionRecord, error) {
	files, err := s.ListFiles(owner, projectID)
	if err != nil {
		return nil, err
	}

	var next int
	if err := s.db.QueryRow(
		`SELECT COALESCE(MAX(version_number), 0) + 1 FROM versions WHERE owner_email = ? AND project_id = ?`,
		owner, projectID,
	).Scan(&next); err != nil {
		return nil, fmt.Errorf("next version: %w", err)
	}

	v := &VersionRecord{
		ID:            uuid.New().String(),
		VersionNumber: next,
		Description:   description,
		Files:         files,
	}
	_, err = s.db.Exec(
		`INSERT INTO versions (id, owner_email, project_id, version_number, description) VALUES (?, ?, ?, ?, ?)`,
		v.ID, owner, projectID, v.VersionNumber, v.Description)
	if err != nil {
		return nil, fmt.Errorf("insert version: %w", err)
	}
	for _, f := range files {
		if _, err := s.db.Exec(
			`INSERT INTO version_files (version_id, file_id, path, content, is_binary) VALUES (?, ?, ?, ?, ?)`,
			v.ID, f.ID, f.Path, f.Content, f.IsBinary); err != nil {
			return nil, fmt.Errorf("insert version file: %w", err)
		}
	}
	return v, nil
}

// ListVersions returns a project's versions, newest first.
func (s *Store) ListVersions(owner, projectID string) ([]*VersionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, version_number, description FROM versions
		 WHERE owner_email = ? AND project_id = ? ORDER BY version_number DESC`,
		owner, projectID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var result []*VersionRecord
	for rows.Next() {
		var v VersionRecord
		if err := rows.Scan(&v.ID, &v.VersionNumber, &v.Description); err != nil {
			return nil, err
		}
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, v := range result {
		if v.Files, err = s.versionFiles(v.ID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// GetVersion returns one version by number, with its files.
func (s *Store) GetVersion(owner, projectID string, versionNumber int) (*VersionRecord, error) {
	var v VersionRecord
	err := s.db.QueryRow(
		`SELECT id, version_number, description FROM versions
		 WHERE owner_email = ? AND project_id = ? AND version_number = ?`,
		owner, projectID, versionNumber,
	).Scan(&v.ID, &v.VersionNumber, &v.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	if v.Files, err = s.versionFiles(v.ID); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) versionFiles(versionID string) ([]FileRecord, error) {
	rows, err := s.db.Query(
		`SELECT file_id, path, content, is_binary FROM version_files WHERE version_id = ? ORDER BY path`,
		versionID)
	if err != nil {
		return nil, fmt.Errorf("version files: %w", err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.ID, &f.Path, &f.Content, &f.IsBinary); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// RestoreVersion replaces the project's current files with a version's
// snapshot. Restored files get new ids.
func (s *Store) RestoreVersion(owner, projectID string, versionNumber int) ([]FileRecord, *VersionRecord, error) {
	v, err := s.GetVersion(owner, projectID, versionNumber)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.db.Exec(
		`DELETE FROM files WHERE owner_email = ? AND project_id = ?`, owner, projectID); err != nil {
		return nil, nil, fmt.Errorf("restore version: %w", err)
	}

	restored := make([]FileRecord, 0, len(v.Files))
	for _, f := range v.Files {
		nf := FileRecord{ID: uuid.New().String(), Path: f.Path, Content: f.Content, IsBinary: f.IsBinary}
		if _, err := s.db.Exec(
			`INSERT INTO files (id, owner_email, project_id, path, content, is_binary) VALUES (?, ?, ?, ?, ?, ?)`,
			nf.ID, owner, projectID, nf.Path, nf.Content, nf.IsBinary); err != nil {
			return nil, nil, fmt.Errorf("restore file: %w", err)
		}
		restored = append(restored, nf)
	}
	return restored, v, nil
}

// ExportZip returns a ZIP archive of the project's current files.
func (s *Store) ExportZip(owner, projectID string) ([]byte, error) {
	files, err := s.ListFiles(owner, projectID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		name := strings.ReplaceAll(strings.TrimPrefix(f.Path, "/"), "\\", "/")
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("zip entry %s: %w", name, err)
		}
		if _, err := w.Write([]byte(f.Content)); err != nil {
			return nil, fmt.Errorf("zip write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip close: %w", err)
	}
	return buf.Bytes(), nil
}
