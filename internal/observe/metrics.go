// Package observe provides application-wide observability primitives for
// retell: OpenTelemetry metrics, tracing, structured logging helpers, and
// per-route HTTP instrumentation that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// scopeName is the instrumentation scope for all retell metrics and spans.
const scopeName = "github.com/retellabs/retell"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// CorrectionDuration tracks the latency of a full correction call,
	// including the corpus scan and the merge.
	CorrectionDuration metric.Float64Histogram

	// CorrectionsApplied counts hypotheses that were corrected against a
	// reference. Use with attribute.String("corpus", ...).
	CorrectionsApplied metric.Int64Counter

	// CorrectionsRejected counts hypotheses returned unchanged. Use with
	// attribute.String("reason", ...): "threshold", "empty_corpus", or
	// "empty_hypothesis".
	CorrectionsRejected metric.Int64Counter

	// CandidatesScanned counts reference sentences whose full alignment
	// matrix was computed during corpus scans.
	CandidatesScanned metric.Int64Counter

	// CandidatesPruned counts reference sentences skipped by the
	// length-difference lower bound before any matrix work.
	CandidatesPruned metric.Int64Counter

	// VocabularySnaps counts out-of-vocabulary tokens replaced by the
	// optional similarity snap stage.
	VocabularySnaps metric.Int64Counter

	// CorpusSentences tracks the number of reference sentences currently
	// loaded.
	CorpusSentences metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time per route
	// pattern. Use with attribute.String("route", ...).
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// CPU-bound correction calls on sentence-length input.
var latencyBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(scopeName)
	var err error
	met := &Metrics{}

	if met.CorrectionDuration, err = m.Float64Histogram("retell.correction.duration",
		metric.WithDescription("Latency of a full correction call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.CorrectionsApplied, err = m.Int64Counter("retell.corrections.applied",
		metric.WithDescription("Hypotheses corrected against a reference, by corpus."),
	); err != nil {
		return nil, err
	}
	if met.CorrectionsRejected, err = m.Int64Counter("retell.corrections.rejected",
		metric.WithDescription("Hypotheses returned unchanged, by reason."),
	); err != nil {
		return nil, err
	}
	if met.CandidatesScanned, err = m.Int64Counter("retell.candidates.scanned",
		metric.WithDescription("Reference sentences fully aligned during corpus scans."),
	); err != nil {
		return nil, err
	}
	if met.CandidatesPruned, err = m.Int64Counter("retell.candidates.pruned",
		metric.WithDescription("Reference sentences skipped by the length lower bound."),
	); err != nil {
		return nil, err
	}
	if met.VocabularySnaps, err = m.Int64Counter("retell.vocabulary.snaps",
		metric.WithDescription("OOV tokens replaced by the similarity snap stage."),
	); err != nil {
		return nil, err
	}

	if met.CorpusSentences, err = m.Int64UpDownCounter("retell.corpus.sentences",
		metric.WithDescription("Number of reference sentences currently loaded."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("retell.http.request.duration",
		metric.WithDescription("HTTP request latency by route."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordRejection increments the rejected-corrections counter with the
// standard reason attribute.
func (m *Metrics) RecordRejection(ctx context.Context, reason string) {
	m.CorrectionsRejected.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}
