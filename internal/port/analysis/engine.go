// Package analysis defines the Analysis Engine port: the language-aware
// component that owns the text of one document and answers queries about it.
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Strob0t/codebridge/internal/domain/analysis"
)

// ErrStaleDiagnostics is returned by Diagnostics together with the last
// known set when the engine could not confirm that set describes the
// current text. Callers may show it but must not cache it.
var ErrStaleDiagnostics = errors.New("analysis: diagnostics may predate the current text")

// Engine is the port interface for a single-document analysis engine.
// Offsets are UTF-16 code-unit offsets into the text passed to the most
// recent ReplaceText call and are already clamped to [0, len].
//
// An Engine is owned by one session worker and is not required to be safe
// for concurrent use.
type Engine interface {
	// Name returns the backend identifier (e.g. "go", "lsp").
	Name() string

	// ReplaceText makes text the engine's current document.
	ReplaceText(ctx context.Context, text string) error

	// CompletionsAt returns completion candidates at offset, in engine order.
	CompletionsAt(ctx context.Context, offset int) ([]analysis.CompletionItem, error)

	// ResolveCallAt resolves the call enclosing offset. Nil means no
	// enclosing call or no candidate.
	ResolveCallAt(ctx context.Context, offset int) (*analysis.SignatureHelp, error)

	// SymbolAt returns hover info for the symbol at offset, or nil.
	SymbolAt(ctx context.Context, offset int) (*analysis.Symbol, error)

	// Diagnostics returns the full diagnostic set for the current document
	// in a stable order. See ErrStaleDiagnostics.
	Diagnostics(ctx context.Context) ([]analysis.Diagnostic, error)

	// Close releases engine resources (child processes, caches).
	Close(ctx context.Context) error
}

// Options configures a backend instance.
type Options struct {
	Command         []string
	LanguageID      string
	Workspace       string
	DocumentName    string
	GoImporter      string
	StartTimeout    time.Duration
	ShutdownTimeout time.Duration
	DiagnosticsWait time.Duration
	Logger          *slog.Logger
}

// Log returns the configured logger or the default one.
func (o Options) Log() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
