package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/retellabs/retell/internal/corpus"
	"github.com/retellabs/retell/internal/correct"
	"github.com/retellabs/retell/internal/health"
	"github.com/retellabs/retell/internal/observe"
	"github.com/retellabs/retell/internal/server"
	"github.com/retellabs/retell/pkg/wordseq"
)

// newTestServer wires a full server around a small in-memory corpus.
func newTestServer(t *testing.T, checkers ...health.Checker) http.Handler {
	t.Helper()

	norm, err := wordseq.New()
	if err != nil {
		t.Fatalf("wordseq.New: %v", err)
	}
	corp := corpus.Build(corpus.Snapshot{
		Name:      "test",
		Sentences: []string{"i like cats", "the meeting is at noon"},
	}, norm)
	vocab := corpus.NewVocabulary([]string{"i", "cats"})

	corrector, err := correct.New(norm, corp, vocab)
	if err != nil {
		t.Fatalf("correct.New: %v", err)
	}

	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	return server.New("127.0.0.1:0", corrector, metrics, checkers...).Handler()
}

func postCorrect(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/v1/correct", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleCorrect_AppliesCorrection(t *testing.T) {
	h := newTestServer(t)

	rec := postCorrect(t, h, `{"hypothesis": "i lik cats"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body)
	}

	var result correct.Result
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Corrected != "i like cats" {
		t.Errorf("corrected = %q, want %q", result.Corrected, "i like cats")
	}
	if !result.Applied {
		t.Error("applied = false, want true")
	}
	if result.Original != "i lik cats" {
		t.Errorf("original = %q, want the request hypothesis", result.Original)
	}
}

func TestHandleCorrect_NoMatchReturnsHypothesis(t *testing.T) {
	h := newTestServer(t)

	rec := postCorrect(t, h, `{"hypothesis": "zz qq ww"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var result correct.Result
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Applied {
		t.Error("applied = true, want false for an unmatched hypothesis")
	}
	if result.Corrected != "zz qq ww" {
		t.Errorf("corrected = %q, want hypothesis unchanged", result.Corrected)
	}
}

func TestHandleCorrect_BadJSON(t *testing.T) {
	h := newTestServer(t)

	rec := postCorrect(t, h, `{"hypothesis": `)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var resp struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == "" {
		t.Error("error message is empty")
	}
}

func TestHandleCorrect_MethodNotAllowed(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest("GET", "/v1/correct", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestServer(t, health.Checker{
		Name:  "corpus",
		Check: func(_ context.Context) error { return nil },
	})

	for _, path := range []string{"/healthz", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest("GET", path, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}
		})
	}
}

func TestCorrelationIDHeaderSet(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	origTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(origTP) })

	h := newTestServer(t)

	rec := postCorrect(t, h, `{"hypothesis": "i like cats"}`)
	if got := rec.Header().Get("X-Correlation-ID"); got == "" {
		t.Error("X-Correlation-ID header missing from response")
	}
}
