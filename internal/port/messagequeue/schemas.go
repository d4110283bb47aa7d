package messagequeue

import "github.com/Strob0t/codebridge/internal/domain/bridge"

// DiagnosticsPayload is the schema for codebridge.diagnostics.{sessionID}.
type DiagnosticsPayload struct {
	SessionID   string              `json:"session_id"`
	Backend     string              `json:"backend"`
	Version     uint64              `json:"version"`
	Diagnostics []bridge.Diagnostic `json:"diagnostics"`
}

// Session lifecycle events.
const (
	SessionOpened = "opened"
	SessionClosed = "closed"
)

// SessionEventPayload is the schema for codebridge.sessions.
type SessionEventPayload struct {
	SessionID string `json:"session_id"`
	Event     string `json:"event"`
	Backend   string `json:"backend"`
	Remote    string `json:"remote,omitempty"`
}
