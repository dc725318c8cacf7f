package observe

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const correctRoute = "POST /v1/correct"

// correctStub mimics the correction endpoint: a JSON hypothesis in, a JSON
// result out, 400 on a body that does not decode.
func correctStub(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hypothesis string `json:"hypothesis"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"corrected": req.Hypothesis})
}

func postHypothesis(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/v1/correct", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestInstrument_SpanNamedAfterRoute(t *testing.T) {
	exp := withTestTracer(t)
	m, _ := newTestMetrics(t)

	h := Instrument(correctRoute, m, http.HandlerFunc(correctStub))
	postHypothesis(t, h, `{"hypothesis": "i lik cats"}`)

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != correctRoute {
		t.Errorf("span name = %q, want the route pattern %q", spans[0].Name, correctRoute)
	}
}

func TestInstrument_CorrelationIDHeader(t *testing.T) {
	withTestTracer(t)
	m, _ := newTestMetrics(t)

	var inHandler string
	h := Instrument(correctRoute, m, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inHandler = CorrelationID(r.Context())
		correctStub(w, r)
	}))
	rec := postHypothesis(t, h, `{"hypothesis": "i lik cats"}`)

	header := rec.Header().Get("X-Correlation-ID")
	if len(header) != 32 {
		t.Fatalf("X-Correlation-ID %q length = %d, want 32", header, len(header))
	}
	if inHandler != header {
		t.Errorf("handler saw correlation ID %q, response header carries %q", inHandler, header)
	}
}

func TestInstrument_HonoursIncomingTraceContext(t *testing.T) {
	withTestTracer(t)
	m, _ := newTestMetrics(t)

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	h := Instrument(correctRoute, m, http.HandlerFunc(correctStub))

	req := httptest.NewRequest("POST", "/v1/correct", strings.NewReader(`{"hypothesis": "x"}`))
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Correlation-ID"); got != traceID {
		t.Errorf("X-Correlation-ID = %q, want the upstream trace ID %q", got, traceID)
	}
}

func TestInstrument_RecordsRouteDuration(t *testing.T) {
	withTestTracer(t)
	m, reader := newTestMetrics(t)

	h := Instrument(correctRoute, m, http.HandlerFunc(correctStub))
	postHypothesis(t, h, `{"hypothesis": "i lik cats"}`)
	postHypothesis(t, h, `not json`)

	rm := collect(t, reader)
	met := findMetric(rm, "retell.http.request.duration")
	if met == nil {
		t.Fatal("retell.http.request.duration not recorded")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) != 1 {
		t.Fatalf("got %d data points, want 1 (both requests share the route attribute)", len(hist.DataPoints))
	}
	dp := hist.DataPoints[0]
	if dp.Count != 2 {
		t.Errorf("sample count = %d, want 2", dp.Count)
	}
	route, ok := dp.Attributes.Value("route")
	if !ok || route.AsString() != correctRoute {
		t.Errorf("route attribute = %v, want %q", route, correctRoute)
	}
}

func TestInstrument_CapturesStatusCode(t *testing.T) {
	exp := withTestTracer(t)
	m, _ := newTestMetrics(t)

	h := Instrument(correctRoute, m, http.HandlerFunc(correctStub))
	rec := postHypothesis(t, h, `not json`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	found := false
	for _, a := range spans[0].Attributes {
		if string(a.Key) == "http.response.status_code" && a.Value.AsInt64() == http.StatusBadRequest {
			found = true
		}
	}
	if !found {
		t.Error("span missing http.response.status_code attribute")
	}
}

func TestInstrument_ImplicitOKStatus(t *testing.T) {
	exp := withTestTracer(t)
	m, _ := newTestMetrics(t)

	// The handler writes a body without calling WriteHeader.
	h := Instrument(correctRoute, m, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"corrected":""}`))
	}))
	postHypothesis(t, h, `{"hypothesis": ""}`)

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	for _, a := range spans[0].Attributes {
		if string(a.Key) == "http.response.status_code" && a.Value.AsInt64() != http.StatusOK {
			t.Errorf("status attribute = %d, want %d", a.Value.AsInt64(), http.StatusOK)
		}
	}
}

func TestInstrument_LogsCompletion(t *testing.T) {
	withTestTracer(t)
	m, _ := newTestMetrics(t)
	buf := captureLogs(t)

	h := Instrument(correctRoute, m, http.HandlerFunc(correctStub))
	postHypothesis(t, h, `{"hypothesis": "i lik cats"}`)

	out := buf.String()
	for _, want := range []string{"request served", "route=", "status=200", "correlation_id="} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q, got: %s", want, out)
		}
	}
}
