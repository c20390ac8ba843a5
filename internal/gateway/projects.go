package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codeloom/codeloom/internal/store"
)

type projectCreate struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type projectUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(identity(r), r.URL.Query().Get("q"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if projects == nil {
		projects = []*store.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "project name is required")
		return
	}
	p, err := s.store.CreateProject(identity(r), req.Name, req.Description)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProject(identity(r), chi.URLParam(r, "projectID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var req projectUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := s.store.UpdateProject(identity(r), chi.URLParam(r, "projectID"), req.Name, req.Description)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProject(identity(r), chi.URLParam(r, "projectID")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type fileUpsert struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	IsBinary bool   `json:"is_binary"`
}

type fileUpdate struct {
	Path     *string `json:"path,omitempty"`
	Content  *string `json:"content,omitempty"`
	IsBinary *bool   `json:"is_binary,omitempty"`
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.ListFiles(identity(r), chi.URLParam(r, "projectID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if files == nil {
		files = []store.FileRecord{}
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleUpsertFile(w http.ResponseWriter, r *http.Request) {
	var req fileUpsert
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeError(w, http.StatusBadRequest, "file path is required")
		return
	}
	owner, projectID := identity(r), chi.URLParam(r, "projectID")
	f, err := s.store.UpsertFileByPath(owner, projectID, req.Path, req.Content, req.IsBinary)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.broadcaster.BroadcastReload(r.Context(), owner, projectID, "file_change")
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.store.GetFile(identity(r), chi.URLParam(r, "projectID"), chi.URLParam(r, "fileID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleUpdateFile(w http.ResponseWriter, r *http.Request) {
	var req fileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	owner, projectID := identity(r), chi.URLParam(r, "projectID")
	f, err := s.store.UpdateFile(owner, projectID, chi.URLParam(r, "fileID"), req.Path, req.Content, req.IsBinary)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.broadcaster.BroadcastReload(r.Context(), owner, projectID, "file_change")
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	owner, projectID := identity(r), chi.URLParam(r, "projectID")
	if err := s.store.DeleteFile(owner, projectID, chi.URLParam(r, "fileID")); err != nil {
		writeStoreError(w, err)
		return
	}
	s.broadcaster.BroadcastReload(r.Context(), owner, projectID, "file_change")
	w.WriteHeader(http.StatusNoContent)
}

type versionCreate struct {
	Description string `json:"description,omitempty"`
}

type versionOut struct {
	ID            string `json:"id"`
	VersionNumber int    `json:"version_number"`
	Description   string `json:"description,omitempty"`
}

func (s *Server) handleCreateVersion(w http.ResponseWriter, r *http.Request) {
	var req versionCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v, err := s.store.SnapshotVersion(identity(r), chi.URLParam(r, "projectID"), req.Description)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, versionOut{ID: v.ID, VersionNumber: v.VersionNumber, Description: v.Description})
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.store.ListVersions(identity(r), chi.URLParam(r, "projectID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]versionOut, 0, len(versions))
	for _, v := range versions {
		out = append(out, versionOut{ID: v.ID, VersionNumber: v.VersionNumber, Description: v.Description})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRestoreVersion(w http.ResponseWriter, r *http.Request) {
	var versionNumber int
	if _, err := fmt.Sscanf(chi.URLParam(r, "versionNumber"), "%d", &versionNumber); err != nil {
		writeError(w, http.StatusBadRequest, "invalid version number")
		return
	}
	owner, projectID := identity(r), chi.URLParam(r, "projectID")
	files, _, err := s.store.RestoreVersion(owner, projectID, versionNumber)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.broadcaster.BroadcastReload(r.Context(), owner, projectID, "version_restore")
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleExportProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	data, err := s.store.ExportZip(identity(r), projectID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "project-"+projectID+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type chatSessionCreate struct {
	Title     string `json:"title,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
}

type chatMessageCreate struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Server) handleListChatSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListChatSessions(identity(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*store.ChatSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleCreateChatSession(w http.ResponseWriter, r *http.Request) {
	var req chatSessionCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cs, err := s.store.CreateChatSession(identity(r), req.Title, req.ProjectID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cs)
}

func (s *Server) handleGetChatSession(w http.ResponseWriter, r *http.Request) {
	cs, err := s.store.GetChatSession(identity(r), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (s *Server) handleDeleteChatSession(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteChatSession(identity(r), chi.URLParam(r, "sessionID")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListChatMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := s.store.GetChatSession(identity(r), sessionID); err != nil {
		writeStoreError(w, err)
		return
	}
	messages, err := s.store.ListChatMessages(sessionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if messages == nil {
		messages = []*store.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleCreateChatMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := s.store.GetChatSession(identity(r), sessionID); err != nil {
		writeStoreError(w, err)
		return
	}
	var req chatMessageCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Role == "" {
		writeError(w, http.StatusBadRequest, "role and content are required")
		return
	}
	m, err := s.store.AppendChatMessage(sessionID, req.Role, req.Content)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}
