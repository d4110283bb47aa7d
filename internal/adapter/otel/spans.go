package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "codebridge"

// StartSessionSpan starts the span covering one editor session.
func StartSessionSpan(ctx context.Context, sessionID, backend string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "session",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("engine.backend", backend),
		),
	)
}

// StartRequestSpan starts a span for one dispatched editor request.
func StartRequestSpan(ctx context.Context, kind string, correlationID *int64) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("request.kind", kind)}
	if correlationID != nil {
		attrs = append(attrs, attribute.Int64("request.correlation_id", *correlationID))
	}
	return otel.Tracer(tracerName).Start(ctx, "request."+kind, trace.WithAttributes(attrs...))
}

// StartToolSpan starts a span for an MCP tool call.
func StartToolSpan(ctx context.Context, tool string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "mcp.tool",
		trace.WithAttributes(attribute.String("mcp.tool", tool)),
	)
}

// EndSpan records err (if any) on span and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
