// Package gateway exposes the HTTP and WebSocket API: auth, project CRUD,
// generation streaming, and live preview reload.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/codeloom/codeloom/internal/auth"
	"github.com/codeloom/codeloom/internal/generation"
	"github.com/codeloom/codeloom/internal/preview"
	"github.com/codeloom/codeloom/internal/store"
)

// Server is the codeloom gateway HTTP server.
type Server struct {
	httpServer *http.Server
	router     chi.Router

	verifier    auth.Verifier
	authSecret  string
	tokenTTL    time.Duration
	tasks       *generation.Registry
	runner      *generation.Runner
	conns       *preview.Registry
	broadcaster *preview.Broadcaster
	static      *preview.Static
	store       *store.Store

	host string
	port int
}

// ServerConfig holds the dependencies for building a Server. All registries
// are owned by the caller (the composition root).
type ServerConfig struct {
	Verifier    auth.Verifier
	AuthSecret  string
	TokenTTL    time.Duration
	Tasks       *generation.Registry
	Runner      *generation.Runner
	Conns       *preview.Registry
	Broadcaster *preview.Broadcaster
	Static      *preview.Static
	Store       *store.Store
	Host        string
	Port        int
}

// NewServer creates a gateway server.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		verifier:    cfg.Verifier,
		authSecret:  cfg.AuthSecret,
		tokenTTL:    cfg.TokenTTL,
		tasks:       cfg.Tasks,
		runner:      cfg.Runner,
		conns:       cfg.Conns,
		broadcaster: cfg.Broadcaster,
		static:      cfg.Static,
		store:       cfg.Store,
		host:        cfg.Host,
		port:        cfg.Port,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/auth/login", s.handleLogin)

	// Authenticated JSON API
	r.Group(func(r chi.Router) {
		r.Use(s.requireIdentity)

		r.Get("/api/auth/me", s.handleMe)

		r.Get("/api/projects", s.handleListProjects)
		r.Post("/api/projects", s.handleCreateProject)
		r.Get("/api/projects/{projectID}", s.handleGetProject)
		r.Patch("/api/projects/{projectID}", s.handleUpdateProject)
		r.Delete("/api/projects/{projectID}", s.handleDeleteProject)

		r.Get("/api/projects/{projectID}/files", s.handleListFiles)
		r.Post("/api/projects/{projectID}/files", s.handleUpsertFile)
		r.Get("/api/projects/{projectID}/files/{fileID}", s.handleGetFile)
		r.Patch("/api/projects/{projectID}/files/{fileID}", s.handleUpdateFile)
		r.Delete("/api/projects/{projectID}/files/{fileID}", s.handleDeleteFile)

		r.Post("/api/projects/{projectID}/versions", s.handleCreateVersion)
		r.Get("/api/projects/{projectID}/versions", s.handleListVersions)
		r.Post("/api/projects/{projectID}/versions/{versionNumber}/restore", s.handleRestoreVersion)
		r.Get("/api/projects/{projectID}/export", s.handleExportProject)

		r.Get("/api/chat/sessions", s.handleListChatSessions)
		r.Post("/api/chat/sessions", s.handleCreateChatSession)
		r.Get("/api/chat/sessions/{sessionID}", s.handleGetChatSession)
		r.Delete("/api/chat/sessions/{sessionID}", s.handleDeleteChatSession)
		r.Get("/api/chat/sessions/{sessionID}/messages", s.handleListChatMessages)
		r.Post("/api/chat/sessions/{sessionID}/messages", s.handleCreateChatMessage)

		r.Post("/api/generate", s.handleGenerate)

		r.Get("/preview/{projectID}", s.handlePreviewEntry)
		r.Get("/preview/{projectID}/file", s.handlePreviewFile)
	})

	// WebSocket endpoints authenticate inside the handler so rejections can
	// carry a close code.
	r.Get("/ws/generate/{taskID}", s.handleGenerateWS)
	r.Get("/ws/preview/{projectID}", s.handlePreviewWS)

	s.router = r
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: r,
	}

	return s
}

// Handler returns the server's root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("codeloom gateway listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// identityKey stores the authenticated identity in the request context.
type identityKey struct{}

// requireIdentity validates the bearer credential and stores the decoded
// identity in the request context.
func (s *Server) requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cred := credentialFromRequest(r)
		if cred == "" {
			writeError(w, http.StatusUnauthorized, "missing authentication token")
			return
		}
		identity, err := s.verifier.Verify(cred)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid authentication token")
			return
		}
		ctx := context.WithValue(r.Context(), identityKey{}, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identity returns the authenticated identity stored by requireIdentity.
func identity(r *http.Request) string {
	id, _ := r.Context().Value(identityKey{}).(string)
	return id
}

// credentialFromRequest extracts the bearer credential from the Authorization
// header, falling back to a token query parameter for clients that cannot set
// headers on upgrade requests.
func credentialFromRequest(r *http.Request) string {
	if cred := auth.BearerToken(r.Header.Get("Authorization")); cred != "" {
		return cred
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeStoreError maps store errors to HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrPathExists):
		writeError(w, http.StatusConflict, "path already exists")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
