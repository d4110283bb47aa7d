package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	cbotel "github.com/Strob0t/codebridge/internal/adapter/otel"
	"github.com/Strob0t/codebridge/internal/domain/analysis"
	"github.com/Strob0t/codebridge/internal/domain/bridge"
	analysisPort "github.com/Strob0t/codebridge/internal/port/analysis"
	"github.com/Strob0t/codebridge/internal/port/cache"
	"github.com/Strob0t/codebridge/internal/port/messagequeue"
)

// diagnosticsPublisher pulls the engine's diagnostics for the current
// buffer, maps them to the editor convention and pushes the full set.
type diagnosticsPublisher struct {
	sessionID string
	backend   string
	engine    *guardedEngine
	buf       *bridge.Buffer
	send      func(ctx context.Context, r bridge.Response) error

	cache    cache.Cache // optional
	cacheTTL time.Duration
	mirror   messagequeue.Publisher // optional

	metrics *cbotel.Metrics
	log     *slog.Logger
}

// publish sends one diagnosticsPush for the buffer's current text.
func (p *diagnosticsPublisher) publish(ctx context.Context) error {
	text := p.buf.Text()
	key := cacheKey(p.backend, text)

	var diags []bridge.Diagnostic
	cached := false
	if p.engine.stale {
		diags = bridge.ToEditor(nil)
	} else if diags, cached = p.cached(ctx, key); !cached {
		var current bool
		diags, current = p.compute(ctx)
		if current {
			p.store(ctx, key, diags)
		}
	}

	if err := p.send(ctx, bridge.DiagnosticsPush(diags)); err != nil {
		return err
	}
	p.metrics.DiagnosticsPush(ctx, cached)
	p.log.Debug("diagnostics pushed", "count", len(diags), "version", p.buf.Version(), "cached", cached)

	p.mirrorPush(ctx, diags)
	return nil
}

// compute asks the engine for diagnostics. current is false when the set
// is empty because of a failure or may predate the buffer text; such sets
// are pushed but never cached.
func (p *diagnosticsPublisher) compute(ctx context.Context) (diags []bridge.Diagnostic, current bool) {
	var raw []analysis.Diagnostic
	stale := false
	err := p.engine.call(ctx, "diagnostics", func(ctx context.Context) error {
		var err error
		raw, err = p.engine.engine.Diagnostics(ctx)
		if errors.Is(err, analysisPort.ErrStaleDiagnostics) {
			stale = true
			return nil
		}
		return err
	})
	if err != nil {
		return bridge.ToEditor(nil), false
	}
	if stale {
		p.log.Debug("diagnostics not confirmed for current text", "version", p.buf.Version())
	}
	return bridge.ToEditor(raw), !stale
}

func (p *diagnosticsPublisher) cached(ctx context.Context, key string) ([]bridge.Diagnostic, bool) {
	if p.cache == nil {
		return nil, false
	}
	data, ok, err := p.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var diags []bridge.Diagnostic
	if err := json.Unmarshal(data, &diags); err != nil {
		p.log.Warn("discarding corrupt cached diagnostics", "error", err)
		_ = p.cache.Delete(ctx, key)
		return nil, false
	}
	return diags, true
}

func (p *diagnosticsPublisher) store(ctx context.Context, key string, diags []bridge.Diagnostic) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(diags)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, key, data, p.cacheTTL); err != nil {
		p.log.Warn("diagnostics cache set failed", "error", err)
	}
}

func (p *diagnosticsPublisher) mirrorPush(ctx context.Context, diags []bridge.Diagnostic) {
	if p.mirror == nil {
		return
	}
	data, err := json.Marshal(messagequeue.DiagnosticsPayload{
		SessionID:   p.sessionID,
		Backend:     p.backend,
		Version:     p.buf.Version(),
		Diagnostics: diags,
	})
	if err != nil {
		return
	}
	if err := p.mirror.Publish(ctx, messagequeue.DiagnosticsSubject(p.sessionID), data); err != nil {
		p.log.Warn("diagnostics mirror failed", "error", err)
	}
}

// cacheKey identifies a diagnostic set: results depend only on the backend
// and the text.
func cacheKey(backend, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "diagnostics:" + backend + ":" + hex.EncodeToString(sum[:])
}
