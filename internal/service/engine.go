package service

import (
	"context"
	"log/slog"
	"time"

	cbotel "github.com/Strob0t/codebridge/internal/adapter/otel"
	"github.com/Strob0t/codebridge/internal/config"
	"github.com/Strob0t/codebridge/internal/port/analysis"
	"github.com/Strob0t/codebridge/internal/resilience"
)

// EngineFactory creates a fresh engine for one session or one-shot call.
type EngineFactory func(ctx context.Context) (analysis.Engine, error)

// NewEngineFactory returns a factory for the configured backend.
func NewEngineFactory(cfg config.Engine, log *slog.Logger) EngineFactory {
	opts := analysis.Options{
		Command:         cfg.Command,
		LanguageID:      cfg.LanguageID,
		Workspace:       cfg.Workspace,
		DocumentName:    cfg.DocumentName,
		GoImporter:      cfg.GoImporter,
		StartTimeout:    cfg.StartTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		DiagnosticsWait: cfg.DiagnosticsWait,
		Logger:          log.With("engine", cfg.Backend),
	}
	return func(ctx context.Context) (analysis.Engine, error) {
		return analysis.New(ctx, cfg.Backend, opts)
	}
}

// guardedEngine runs every engine call through a circuit breaker (which
// also recovers panics), an optional deadline and the duration metric.
type guardedEngine struct {
	engine  analysis.Engine
	breaker *resilience.Breaker
	timeout time.Duration
	metrics *cbotel.Metrics
	log     *slog.Logger

	// stale is set while the engine may not hold the latest text because
	// the last ReplaceText failed.
	stale bool
}

// replace hands text to the engine and records whether it took it.
func (g *guardedEngine) replace(ctx context.Context, text string) error {
	err := g.call(ctx, "replace_text", func(ctx context.Context) error {
		return g.engine.ReplaceText(ctx, text)
	})
	g.stale = err != nil
	return err
}

func (g *guardedEngine) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	err := g.breaker.Execute(func() error { return fn(ctx) })
	g.metrics.EngineCall(ctx, op, time.Since(start), err)
	if err != nil {
		g.log.Warn("engine call failed", "op", op, "engine", g.engine.Name(), "error", err)
	}
	return err
}

func (g *guardedEngine) close(ctx context.Context) {
	if err := g.engine.Close(ctx); err != nil {
		g.log.Warn("engine close failed", "engine", g.engine.Name(), "error", err)
	}
}
