// Package events defines the typed events streamed by the generation engine
// and pushed to preview clients.
package events

import "encoding/json"

// Kind identifies the type of a streamed event.
type Kind string

const (
	KindStatus   Kind = "status"
	KindToken    Kind = "token"
	KindFileDiff Kind = "file_diff"
	KindError    Kind = "error"
	KindEnd      Kind = "end"
	KindReload   Kind = "reload"
)

// Phase values carried by status events.
const (
	PhaseStarted   = "started"
	PhaseCompleted = "completed"
)

// Payload is implemented by all typed event payloads.
type Payload interface {
	EventKind() Kind
}

// StatusPayload reports a generation phase transition.
type StatusPayload struct {
	Phase  string `json:"phase"`
	TaskID string `json:"task_id,omitempty"`
}

func (StatusPayload) EventKind() Kind { return KindStatus }

// TokenPayload carries one streamed token. Index starts at 1 and is strictly
// increasing within a task.
type TokenPayload struct {
	Index  int    `json:"index"`
	Token  string `json:"token"`
	TaskID string `json:"task_id,omitempty"`
}

func (TokenPayload) EventKind() Kind { return KindToken }

// FileDiff describes one simulated file change.
type FileDiff struct {
	Path       string `json:"path"`
	ChangeType string `json:"change_type"`
	Patch      string `json:"patch"`
}

// FileDiffPayload carries one file change produced during generation.
type FileDiffPayload struct {
	Index  int      `json:"index"`
	Diff   FileDiff `json:"diff"`
	TaskID string   `json:"task_id,omitempty"`
}

func (FileDiffPayload) EventKind() Kind { return KindFileDiff }

// ErrorPayload carries a human-readable failure message.
type ErrorPayload struct {
	Message string `json:"message"`
	TaskID  string `json:"task_id,omitempty"`
}

func (ErrorPayload) EventKind() Kind { return KindError }

// EndPayload terminates a task's stream. Always the last event, exactly once.
type EndPayload struct {
	TaskID string `json:"task_id,omitempty"`
}

func (EndPayload) EventKind() Kind { return KindEnd }

// ReloadPayload tells preview clients to refresh.
type ReloadPayload struct {
	Reason string `json:"reason"`
}

func (ReloadPayload) EventKind() Kind { return KindReload }

// Event is one immutable unit of streamed output.
type Event struct {
	Kind    Kind
	Payload Payload
}

// New builds an Event from a typed payload.
func New(p Payload) Event {
	return Event{Kind: p.EventKind(), Payload: p}
}

// Frame is the wire shape written to clients: {"type": <kind>, "data": <payload>}.
type Frame struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Marshal serializes an event to its wire frame.
func Marshal(e Event) ([]byte, error) {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: e.Kind, Data: data})
}

// UnmarshalFrame parses a wire frame without decoding the payload.
func UnmarshalFrame(data []byte) (Frame, error) {
	var f Frame
	err := json.Unmarshal(data, &f)
	return f, err
}
