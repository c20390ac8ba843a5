package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/codeloom/codeloom/internal/preview"
)

// handlePreviewEntry serves the project's entry document, or a placeholder
// page when the project has no recognizable entry file yet.
func (s *Server) handlePreviewEntry(w http.ResponseWriter, r *http.Request) {
	owner, projectID := identity(r), chi.URLParam(r, "projectID")

	entry, err := s.static.EntryFile(owner, projectID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if entry == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, placeholderPage, projectID)
		return
	}

	f, err := s.static.ReadFile(owner, projectID, entry)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", preview.ContentType(f.Path))
	_, _ = w.Write([]byte(f.Content))
}

const placeholderPage = `<!doctype html>
<html>
<head><title>Preview</title></head>
<body>
<h1>Nothing to preview yet</h1>
<p>Project %s has no entry file. Generate some code first.</p>
</body>
</html>
`

// handlePreviewFile serves a single project file by path for the preview
// frame's sub-resource requests.
func (s *Server) handlePreviewFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path query parameter is required")
		return
	}

	f, err := s.static.ReadFile(identity(r), chi.URLParam(r, "projectID"), path)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", preview.ContentType(f.Path))
	_, _ = w.Write([]byte(f.Content))
}

// wsPreviewConn adapts a websocket connection to the preview.Conn interface.
type wsPreviewConn struct {
	conn *websocket.Conn
}

func (c *wsPreviewConn) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// handlePreviewWS registers a live preview connection. The socket is
// write-mostly: the server pushes reload frames, and the only client message
// it answers is "ping".
func (s *Server) handlePreviewWS(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	cred := credentialFromRequest(r)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Debug("websocket accept", "error", err)
		return
	}

	if cred == "" {
		conn.Close(closeUnauthenticated, "missing authentication token")
		return
	}
	owner, err := s.verifier.Verify(cred)
	if err != nil {
		conn.Close(closeUnauthenticated, "invalid authentication token")
		return
	}

	pc := &wsPreviewConn{conn: conn}
	s.conns.Register(owner, projectID, pc)
	defer s.conns.Unregister(owner, projectID, pc)

	ctx := r.Context()
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if string(msg) == "ping" {
			if err := conn.Write(ctx, websocket.MessageText, []byte("pong")); err != nil {
				return
			}
		}
	}
}
