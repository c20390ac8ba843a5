package gateway

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/codeloom/codeloom/internal/events"
)

// Close codes sent when a streaming connection is rejected. The handshake
// has to complete before a code can reach the client, so the handler accepts
// and then closes immediately.
const (
	closeUnauthenticated websocket.StatusCode = 4401
	closeForbidden       websocket.StatusCode = 4403
)

type generateRequest struct {
	Prompt        string `json:"prompt"`
	ProjectID     string `json:"project_id,omitempty"`
	ChatSessionID string `json:"chat_session_id,omitempty"`
}

type generateResponse struct {
	TaskID       string `json:"task_id"`
	WebsocketURL string `json:"websocket_url"`
}

// handleGenerate registers a generation task and starts its runner. The
// client collects the output over the returned websocket URL.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	taskID := s.tasks.CreateTask(identity(r), req.Prompt, req.ProjectID, req.ChatSessionID)
	go s.runner.Run(taskID)

	writeJSON(w, http.StatusOK, generateResponse{
		TaskID:       taskID,
		WebsocketURL: fmt.Sprintf("%s://%s/ws/generate/%s", wsScheme(r), requestHost(r), taskID),
	})
}

func wsScheme(r *http.Request) string {
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		return "wss"
	}
	return "ws"
}

func requestHost(r *http.Request) string {
	if h := r.Header.Get("X-Forwarded-Host"); h != "" {
		return h
	}
	return r.Host
}

// handleGenerateWS streams a task's events to the client in order, closing
// normally after the terminal end event. Rejections close with 4401 when the
// credential is missing or invalid and 4403 when the task is not the
// caller's. Unknown tasks look identical to foreign ones.
func (s *Server) handleGenerateWS(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
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
	caller, err := s.verifier.Verify(cred)
	if err != nil {
		conn.Close(closeUnauthenticated, "invalid authentication token")
		return
	}
	owner, ok := s.tasks.Owner(taskID)
	if !ok || owner != caller {
		conn.Close(closeForbidden, "task is not accessible")
		return
	}

	queue, ok := s.tasks.Queue(taskID)
	if !ok {
		conn.Close(closeForbidden, "task is not accessible")
		return
	}

	// CloseRead turns the connection write-only and cancels the context
	// when the client goes away.
	ctx := conn.CloseRead(r.Context())

	for {
		ev, err := queue.Next(ctx)
		if err != nil {
			conn.Close(websocket.StatusGoingAway, "client disconnected")
			return
		}
		frame, err := events.Marshal(ev)
		if err != nil {
			slog.Error("marshal event", "task_id", taskID, "error", err)
			if ef, merr := events.Marshal(events.New(events.ErrorPayload{
				Message: "encode event", TaskID: taskID,
			})); merr == nil {
				_ = conn.Write(ctx, websocket.MessageText, ef)
			}
			conn.Close(websocket.StatusInternalError, "encode event")
			return
		}
		if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
			return
		}
		if ev.Kind == events.KindEnd {
			conn.Close(websocket.StatusNormalClosure, "stream complete")
			return
		}
	}
}
