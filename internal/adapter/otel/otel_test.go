package otel

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Strob0t/codebridge/internal/config"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, agg metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := agg.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("aggregation %T is not an int64 sum", agg)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsRecord(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetricsFrom(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	m.SessionOpened(ctx)
	m.SessionOpened(ctx)
	m.SessionClosed(ctx)
	m.MessageReceived(ctx, "hover")
	m.MessageReceived(ctx, "update")
	m.MessageDropped(ctx, "unknown kind")
	m.DiagnosticsPush(ctx, false)
	m.EngineCall(ctx, "hover", 5*time.Millisecond, errors.New("boom"))

	got := collect(t, reader)
	checks := map[string]int64{
		"codebridge.sessions.opened":    2,
		"codebridge.sessions.closed":    1,
		"codebridge.sessions.active":    1,
		"codebridge.messages.received":  2,
		"codebridge.messages.dropped":   1,
		"codebridge.diagnostics.pushed": 1,
	}
	for name, want := range checks {
		agg, ok := got[name]
		if !ok {
			t.Errorf("metric %s not recorded", name)
			continue
		}
		if v := sumOf(t, agg); v != want {
			t.Errorf("%s = %d, want %d", name, v, want)
		}
	}
	if _, ok := got["codebridge.engine.duration_seconds"].(metricdata.Histogram[float64]); !ok {
		t.Error("engine duration histogram not recorded")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.SessionOpened(ctx)
	m.MessageReceived(ctx, "hover")
	m.EngineCall(ctx, "hover", time.Millisecond, nil)
}

func TestRequestSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	id := int64(10)
	_, span := StartRequestSpan(context.Background(), "hover", &id)
	EndSpan(span, errors.New("engine failed"))

	ended := rec.Ended()
	if len(ended) != 1 || ended[0].Name() != "request.hover" {
		t.Fatalf("spans = %v", ended)
	}
	var found bool
	for _, kv := range ended[0].Attributes() {
		if string(kv.Key) == "request.correlation_id" && kv.Value.AsInt64() == 10 {
			found = true
		}
	}
	if !found {
		t.Error("correlation id attribute missing")
	}
	if len(ended[0].Events()) == 0 {
		t.Error("error event not recorded")
	}
}

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.Otel{Enabled: false})
	if err != nil {
		t.Fatal(err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
}
