// Package goengine implements the built-in analysis engine: the buffer is
// parsed and type-checked as a single Go source file.
package goengine

import (
	"context"
	"go/importer"
	"go/token"
	"go/types"
	"log/slog"
	"sync"

	"github.com/Strob0t/codebridge/internal/domain/analysis"
	portanalysis "github.com/Strob0t/codebridge/internal/port/analysis"
)

// BackendName is the registry name of this engine.
const BackendName = "go"

func init() {
	portanalysis.Register(BackendName, func(_ context.Context, opts portanalysis.Options) (portanalysis.Engine, error) {
		return New(opts), nil
	})
}

// Engine analyzes one Go document. Analysis is lazy: the snapshot is rebuilt
// on the first query after ReplaceText.
type Engine struct {
	documentName string
	importerMode string
	log          *slog.Logger

	impOnce sync.Once
	imp     types.Importer

	text    string
	version uint64
	snap    *snapshot
}

// New creates a Go engine. opts.GoImporter selects "gc" (default) or
// "source" import resolution.
func New(opts portanalysis.Options) *Engine {
	mode := opts.GoImporter
	if mode != "source" {
		mode = "gc"
	}
	name := opts.DocumentName
	if name == "" {
		name = "main.go"
	}
	return &Engine{
		documentName: name,
		importerMode: mode,
		log:          opts.Log(),
	}
}

// Name implements analysis.Engine.
func (e *Engine) Name() string { return BackendName }

// ReplaceText implements analysis.Engine.
func (e *Engine) ReplaceText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.text = text
	e.version++
	return nil
}

// Diagnostics implements analysis.Engine.
func (e *Engine) Diagnostics(ctx context.Context) ([]analysis.Diagnostic, error) {
	s, err := e.current(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]analysis.Diagnostic, len(s.diags))
	copy(out, s.diags)
	return out, nil
}

// CompletionsAt implements analysis.Engine.
func (e *Engine) CompletionsAt(ctx context.Context, offset int) ([]analysis.CompletionItem, error) {
	s, err := e.current(ctx)
	if err != nil {
		return nil, err
	}
	return s.completions(s.index.ByteOffset(offset)), nil
}

// ResolveCallAt implements analysis.Engine.
func (e *Engine) ResolveCallAt(ctx context.Context, offset int) (*analysis.SignatureHelp, error) {
	s, err := e.current(ctx)
	if err != nil {
		return nil, err
	}
	return s.signatureHelp(s.index.ByteOffset(offset)), nil
}

// SymbolAt implements analysis.Engine.
func (e *Engine) SymbolAt(ctx context.Context, offset int) (*analysis.Symbol, error) {
	s, err := e.current(ctx)
	if err != nil {
		return nil, err
	}
	return s.symbolAt(s.index.ByteOffset(offset)), nil
}

// Close implements analysis.Engine.
func (e *Engine) Close(_ context.Context) error {
	e.snap = nil
	e.imp = nil
	return nil
}

func (e *Engine) current(ctx context.Context) (*snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.snap == nil || e.snap.version != e.version {
		e.snap = analyze(e.version, e.documentName, e.text, e.importer())
		e.log.Debug("go analysis done",
			"version", e.version,
			"diagnostics", len(e.snap.diags),
		)
	}
	return e.snap, nil
}

// importer is created once per engine; it caches imported packages and is
// not safe for concurrent use, which matches the engine's ownership model.
func (e *Engine) importer() types.Importer {
	e.impOnce.Do(func() {
		e.imp = importer.ForCompiler(token.NewFileSet(), e.importerMode, nil)
	})
	return e.imp
}
