package messagequeue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Validate checks that data is valid JSON matching the schema of subject.
// Subjects outside the codebridge namespace are rejected.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	switch {
	case strings.HasPrefix(subject, SubjectDiagnostics+"."):
		var p DiagnosticsPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.SessionID == "" || p.SessionID != strings.TrimPrefix(subject, SubjectDiagnostics+".") {
			return fmt.Errorf("schema validation failed for %s: session_id mismatch", subject)
		}
		if p.Diagnostics == nil {
			return fmt.Errorf("schema validation failed for %s: diagnostics must be an array", subject)
		}
	case subject == SubjectSessions:
		var p SessionEventPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.Event != SessionOpened && p.Event != SessionClosed {
			return fmt.Errorf("schema validation failed for %s: unknown event %q", subject, p.Event)
		}
	case strings.HasPrefix(subject, SubjectPrefix+"."):
		// Future codebridge subjects: any valid JSON.
	default:
		return errors.New("subject outside the codebridge namespace: " + subject)
	}
	return nil
}
