package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	cbotel "github.com/Strob0t/codebridge/internal/adapter/otel"
	"github.com/Strob0t/codebridge/internal/config"
	"github.com/Strob0t/codebridge/internal/domain/analysis"
	"github.com/Strob0t/codebridge/internal/domain/bridge"
	analysisPort "github.com/Strob0t/codebridge/internal/port/analysis"
	"github.com/Strob0t/codebridge/internal/resilience"
)

// Analyzer answers single stateless queries, each on a fresh engine. It
// serves the MCP tools and the check command.
type Analyzer struct {
	newEngine EngineFactory
	breaker   *resilience.Breaker
	limiter   *resilience.Limiter
	timeout   time.Duration
	metrics   *cbotel.Metrics
	log       *slog.Logger
}

// NewAnalyzer creates an Analyzer. The breaker is shared by all calls.
func NewAnalyzer(cfg *config.Config, newEngine EngineFactory, metrics *cbotel.Metrics, log *slog.Logger) *Analyzer {
	return &Analyzer{
		newEngine: newEngine,
		breaker:   resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout),
		limiter:   resilience.NewLimiter(cfg.Engine.MaxOneShot),
		timeout:   cfg.Engine.RequestTimeout,
		metrics:   metrics,
		log:       log,
	}
}

// Diagnostics returns the published diagnostic set for code.
func (a *Analyzer) Diagnostics(ctx context.Context, code string) ([]bridge.Diagnostic, error) {
	var raw []analysis.Diagnostic
	err := a.with(ctx, code, "diagnostics", func(ctx context.Context, e analysisPort.Engine, _ *bridge.TextIndex) error {
		var err error
		raw, err = e.Diagnostics(ctx)
		if errors.Is(err, analysisPort.ErrStaleDiagnostics) {
			// A fresh engine has no older text, so the last set is all there is.
			a.log.Warn("engine published no diagnostics in time")
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return bridge.ToEditor(raw), nil
}

// Completions returns completion labels at position.
func (a *Analyzer) Completions(ctx context.Context, code string, position int) ([]string, error) {
	var items []analysis.CompletionItem
	err := a.with(ctx, code, "completions", func(ctx context.Context, e analysisPort.Engine, ix *bridge.TextIndex) error {
		var err error
		items, err = e.CompletionsAt(ctx, ix.Clamp(position))
		return err
	})
	if err != nil {
		return nil, err
	}
	return bridge.Labels(items), nil
}

// SignatureHelp resolves the call enclosing position. Nil means none.
func (a *Analyzer) SignatureHelp(ctx context.Context, code string, position int) (*analysis.SignatureHelp, error) {
	var help *analysis.SignatureHelp
	err := a.with(ctx, code, "signature_help", func(ctx context.Context, e analysisPort.Engine, ix *bridge.TextIndex) error {
		var err error
		help, err = e.ResolveCallAt(ctx, ix.Clamp(position))
		return err
	})
	if err != nil {
		return nil, err
	}
	return help, nil
}

// Hover returns the symbol at position, or nil.
func (a *Analyzer) Hover(ctx context.Context, code string, position int) (*analysis.Symbol, error) {
	var sym *analysis.Symbol
	err := a.with(ctx, code, "hover", func(ctx context.Context, e analysisPort.Engine, ix *bridge.TextIndex) error {
		var err error
		sym, err = e.SymbolAt(ctx, ix.Clamp(position))
		return err
	})
	if err != nil {
		return nil, err
	}
	return sym, nil
}

func (a *Analyzer) with(ctx context.Context, code, op string, fn func(context.Context, analysisPort.Engine, *bridge.TextIndex) error) error {
	return a.limiter.Run(ctx, func() error {
		return a.query(ctx, code, op, fn)
	})
}

func (a *Analyzer) query(ctx context.Context, code, op string, fn func(context.Context, analysisPort.Engine, *bridge.TextIndex) error) error {
	engine, err := a.newEngine(ctx)
	if err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	g := &guardedEngine{
		engine:  engine,
		breaker: a.breaker,
		timeout: a.timeout,
		metrics: a.metrics,
		log:     a.log,
	}
	defer g.close(context.WithoutCancel(ctx))

	if err := g.replace(ctx, code); err != nil {
		return fmt.Errorf("replace text: %w", err)
	}
	ix := bridge.NewTextIndex(code)
	if err := g.call(ctx, op, func(ctx context.Context) error {
		return fn(ctx, engine, ix)
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
