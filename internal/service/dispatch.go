package service

import (
	"context"
	"log/slog"

	cbotel "github.com/Strob0t/codebridge/internal/adapter/otel"
	"github.com/Strob0t/codebridge/internal/domain/analysis"
	"github.com/Strob0t/codebridge/internal/domain/bridge"
)

// dispatcher applies requests to one session's buffer and engine. It is
// only ever used from the session worker goroutine.
type dispatcher struct {
	buf       *bridge.Buffer
	engine    *guardedEngine
	publisher *diagnosticsPublisher
	send      func(ctx context.Context, r bridge.Response) error

	// schedule is called after an update instead of publishing directly
	// when diagnostics are debounced.
	schedule func()

	metrics *cbotel.Metrics
	log     *slog.Logger
}

func (d *dispatcher) dispatch(ctx context.Context, req bridge.Request) error {
	switch r := req.(type) {
	case bridge.Unknown:
		d.metrics.MessageDropped(ctx, "malformed")
		d.log.Debug("dropping malformed message", "kind", r.RawKind, "reason", r.Reason)
		return nil
	case bridge.Update:
		return d.update(ctx, r)
	case bridge.Completion:
		return d.completion(ctx, r)
	case bridge.SignatureHelp:
		return d.signatureHelp(ctx, r)
	case bridge.Hover:
		return d.hover(ctx, r)
	default:
		d.log.Error("unhandled request type", "kind", req.Kind())
		return nil
	}
}

// replace makes code the current text. On error the engine still holds an
// older text and must not be queried.
func (d *dispatcher) replace(ctx context.Context, code string) error {
	version := d.buf.Replace(code)
	if err := d.engine.replace(ctx, code); err != nil {
		return err
	}
	d.log.Debug("buffer replaced", "version", version)
	return nil
}

// offset replaces the text and clamps position to it. ok is false when the
// engine did not accept the text.
func (d *dispatcher) offset(ctx context.Context, code string, position int) (off int, ok bool) {
	if err := d.replace(ctx, code); err != nil {
		return 0, false
	}
	return d.buf.Index().Clamp(position), true
}

func (d *dispatcher) update(ctx context.Context, r bridge.Update) error {
	// A failed replace is published as an empty set.
	_ = d.replace(ctx, r.Code)
	if d.schedule != nil {
		d.schedule()
		return nil
	}
	return d.publisher.publish(ctx)
}

func (d *dispatcher) completion(ctx context.Context, r bridge.Completion) error {
	off, ok := d.offset(ctx, r.Code, r.Position)
	if !ok {
		return d.send(ctx, bridge.CompletionResult(nil, r.CorrelationID))
	}

	var items []analysis.CompletionItem
	err := d.engine.call(ctx, "completions", func(ctx context.Context) error {
		var err error
		items, err = d.engine.engine.CompletionsAt(ctx, off)
		return err
	})
	if err != nil {
		items = nil
	}
	return d.send(ctx, bridge.CompletionResult(bridge.Labels(items), r.CorrelationID))
}

func (d *dispatcher) signatureHelp(ctx context.Context, r bridge.SignatureHelp) error {
	off, ok := d.offset(ctx, r.Code, r.Position)
	if !ok {
		return d.send(ctx, bridge.SignatureResult(nil, r.CorrelationID))
	}

	var help *analysis.SignatureHelp
	err := d.engine.call(ctx, "signature_help", func(ctx context.Context) error {
		var err error
		help, err = d.engine.engine.ResolveCallAt(ctx, off)
		return err
	})
	if err != nil {
		help = nil
	}
	return d.send(ctx, bridge.SignatureResult(help, r.CorrelationID))
}

func (d *dispatcher) hover(ctx context.Context, r bridge.Hover) error {
	off, ok := d.offset(ctx, r.Code, r.Position)
	if !ok {
		return d.send(ctx, bridge.HoverResult(nil, r.CorrelationID))
	}

	var sym *analysis.Symbol
	err := d.engine.call(ctx, "hover", func(ctx context.Context) error {
		var err error
		sym, err = d.engine.engine.SymbolAt(ctx, off)
		return err
	})
	if err != nil {
		sym = nil
	}
	return d.send(ctx, bridge.HoverResult(sym, r.CorrelationID))
}
