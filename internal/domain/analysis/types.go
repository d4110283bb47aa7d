// Package analysis defines the value types exchanged with an Analysis Engine.
// They mirror Language Server Protocol concepts (0-based positions, LSP
// severity numbering) independently of any transport.
package analysis

// Position in a text buffer: 0-based line, 0-based character counted in
// UTF-16 code units.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range in a text buffer. End is exclusive.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Severity mirrors LSP DiagnosticSeverity. SeverityHint is the lowest tier:
// informational-only findings an editor normally hides.
type Severity int

const (
	SeverityError   Severity = 1
	SeverityWarning Severity = 2
	SeverityInfo    Severity = 3
	SeverityHint    Severity = 4
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Diagnostic represents a compiler/linter finding over the whole buffer.
type Diagnostic struct {
	Range    Range    `json:"range"`
	Severity Severity `json:"severity"`
	Source   string   `json:"source,omitempty"`
	Message  string   `json:"message"`
	Code     string   `json:"code,omitempty"`
}

// CompletionKind classifies a completion candidate.
type CompletionKind string

const (
	KindFunction CompletionKind = "function"
	KindMethod   CompletionKind = "method"
	KindVariable CompletionKind = "variable"
	KindConstant CompletionKind = "constant"
	KindType     CompletionKind = "type"
	KindField    CompletionKind = "field"
	KindPackage  CompletionKind = "package"
	KindKeyword  CompletionKind = "keyword"
	KindText     CompletionKind = "text"
)

// CompletionItem is the minimal projection of an engine completion.
type CompletionItem struct {
	Label      string         `json:"label"`
	InsertText string         `json:"insertText"`
	Kind       CompletionKind `json:"kind"`
}

// Parameter of a callable signature.
type Parameter struct {
	Label         string `json:"label"`
	Documentation string `json:"documentation"`
}

// Signature describes one callable candidate.
type Signature struct {
	Label         string      `json:"label"`
	Documentation string      `json:"documentation"`
	Parameters    []Parameter `json:"parameters"`
}

// SignatureHelp is the result of resolving the call enclosing a cursor.
// Signatures holds every candidate when the callee is ambiguous.
type SignatureHelp struct {
	Signatures      []Signature `json:"signatures"`
	ActiveSignature int         `json:"activeSignatureIndex"`
	ActiveParameter int         `json:"activeParameter"`
}

// Symbol is hover information for the symbol under a cursor.
type Symbol struct {
	Signature     string `json:"signature"`
	Documentation string `json:"documentation"`
}
