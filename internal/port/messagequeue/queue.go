// Package messagequeue defines the outbound event port: the bridge mirrors
// what it sends to editors onto a message bus for external consumers.
package messagequeue

import "context"

// Publisher is the port interface for publishing events.
type Publisher interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Close shuts down the connection.
	Close() error

	// IsConnected reports whether the connection is currently up.
	IsConnected() bool
}

// Subjects published by the bridge.
const (
	SubjectPrefix      = "codebridge"
	SubjectDiagnostics = "codebridge.diagnostics" // codebridge.diagnostics.{sessionID}
	SubjectSessions    = "codebridge.sessions"    // session opened/closed events
)

// DiagnosticsSubject returns the per-session diagnostics subject.
func DiagnosticsSubject(sessionID string) string {
	return SubjectDiagnostics + "." + sessionID
}
