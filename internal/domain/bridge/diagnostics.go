package bridge

import "github.com/Strob0t/codebridge/internal/domain/analysis"

// EditorSeverity is the front-end's marker severity scale.
type EditorSeverity int

const (
	EditorHint    EditorSeverity = 1
	EditorInfo    EditorSeverity = 2
	EditorWarning EditorSeverity = 4
	EditorError   EditorSeverity = 8
)

// Diagnostic is a marker in the editor's convention: 1-based lines and
// columns.
type Diagnostic struct {
	Message     string         `json:"message"`
	Severity    EditorSeverity `json:"severity"`
	StartLine   int            `json:"startLine"`
	StartColumn int            `json:"startColumn"`
	EndLine     int            `json:"endLine"`
	EndColumn   int            `json:"endColumn"`
}

// MapSeverity maps an engine severity onto the editor scale. The hint tier
// reports false and must not be published. Unrecognized values map to
// error.
func MapSeverity(s analysis.Severity) (EditorSeverity, bool) {
	switch s {
	case analysis.SeverityHint:
		return 0, false
	case analysis.SeverityWarning:
		return EditorWarning, true
	case analysis.SeverityInfo:
		return EditorInfo, true
	default:
		return EditorError, true
	}
}

// ToEditor filters out hint-tier diagnostics and shifts every line and
// column from 0-based to 1-based, independently for start and end. Order
// is preserved. The result is never nil.
func ToEditor(diags []analysis.Diagnostic) []Diagnostic {
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		sev, ok := MapSeverity(d.Severity)
		if !ok {
			continue
		}
		out = append(out, Diagnostic{
			Message:     d.Message,
			Severity:    sev,
			StartLine:   d.Range.Start.Line + 1,
			StartColumn: d.Range.Start.Character + 1,
			EndLine:     d.Range.End.Line + 1,
			EndColumn:   d.Range.End.Character + 1,
		})
	}
	return out
}

// HasErrors reports whether any diagnostic is error-tier.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == EditorError {
			return true
		}
	}
	return false
}
