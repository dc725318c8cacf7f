package observe

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Instrument wraps next with the observability every correction API route
// carries: incoming W3C trace context is honoured, a server span named after
// the route is opened, the X-Correlation-ID response header is set, the
// request duration lands on [Metrics.HTTPRequestDuration], and one
// completion line is logged.
//
// route is the ServeMux pattern the handler is registered under
// ("POST /v1/correct"). Using the pattern rather than the raw URL keeps the
// metric's cardinality fixed no matter what paths clients probe.
func Instrument(route string, m *Metrics, next http.Handler) http.Handler {
	prop := propagation.TraceContext{}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := StartSpan(ctx, route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRoute(route),
				semconv.URLPath(r.URL.Path),
			),
		)
		defer span.End()

		if cid := CorrelationID(ctx); cid != "" {
			w.Header().Set("X-Correlation-ID", cid)
		}

		reply := &replyWriter{ResponseWriter: w}
		next.ServeHTTP(reply, r.WithContext(ctx))

		status := reply.status()
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}

		elapsed := time.Since(start)
		m.HTTPRequestDuration.Record(ctx, elapsed.Seconds(),
			metric.WithAttributes(attribute.String("route", route)))

		Logger(ctx).LogAttrs(ctx, slog.LevelInfo, "request served",
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("elapsed", elapsed),
		)
	})
}

// replyWriter captures the status code sent downstream, counting a first
// Write without an explicit WriteHeader as the implicit 200.
type replyWriter struct {
	http.ResponseWriter
	code int
}

func (w *replyWriter) WriteHeader(code int) {
	if w.code == 0 {
		w.code = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *replyWriter) Write(p []byte) (int, error) {
	if w.code == 0 {
		w.code = http.StatusOK
	}
	return w.ResponseWriter.Write(p)
}

func (w *replyWriter) status() int {
	if w.code == 0 {
		return http.StatusOK
	}
	return w.code
}
