package observe

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// withTestTracer installs an SDK tracer provider with an in-memory exporter
// as the global provider for the duration of the test.
func withTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(orig) })
	return exp
}

// captureLogs routes the default logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(orig) })
	return &buf
}

func TestStartSpan_RecordsOperationName(t *testing.T) {
	exp := withTestTracer(t)

	ctx, span := StartSpan(context.Background(), "correct.Correct")
	cid := CorrelationID(ctx)
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "correct.Correct" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "correct.Correct")
	}
	if cid != spans[0].SpanContext.TraceID().String() {
		t.Errorf("CorrelationID = %q, want the span's trace ID", cid)
	}
}

func TestCorrelationID(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID(background) = %q, want empty", got)
	}

	withTestTracer(t)
	ctx, span := StartSpan(context.Background(), "corpus.Snapshot")
	defer span.End()

	cid := CorrelationID(ctx)
	if len(cid) != 32 {
		t.Fatalf("correlation ID %q length = %d, want 32 hex chars", cid, len(cid))
	}
	if strings.Trim(cid, "0123456789abcdef") != "" {
		t.Errorf("correlation ID %q contains non-hex characters", cid)
	}
}

func TestLogger_AttachesCorrelationID(t *testing.T) {
	withTestTracer(t)
	buf := captureLogs(t)

	ctx, span := StartSpan(context.Background(), "correct.Correct")
	defer span.End()

	Logger(ctx).Info("correction applied")

	out := buf.String()
	if !strings.Contains(out, "correlation_id="+CorrelationID(ctx)) {
		t.Errorf("log line missing correlation_id, got: %s", out)
	}
}

func TestLogger_PlainWithoutSpan(t *testing.T) {
	buf := captureLogs(t)

	Logger(context.Background()).Info("startup")

	if out := buf.String(); strings.Contains(out, "correlation_id") {
		t.Errorf("log line should carry no correlation_id, got: %s", out)
	}
}
