package mgmt

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"NetFocus/internal/config"
	"NetFocus/internal/engine/impl/ratemon"
	"NetFocus/internal/metrics"
	"NetFocus/internal/model"
)

func buildHandler(t *testing.T) *APIHandler {
	t.Helper()
	var monitors []model.Monitor
	for _, def := range []config.MonitorDef{
		{Name: "flood", Threshold: 100, Inputs: []config.InputDef{{Field: "src", Delta: 1}}},
		{Name: "scan", Threshold: 50, Inputs: []config.InputDef{{Field: "dst", Delta: 1}}},
	} {
		m, err := ratemon.NewTrafficMonitor(def)
		if err != nil {
			t.Fatalf("NewTrafficMonitor: %v", err)
		}
		monitors = append(monitors, m)
	}
	return NewAPIHandler(monitors, metrics.New())
}

func TestListMonitors(t *testing.T) {
	h := buildHandler(t)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/monitors", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var summaries []monitorSummary
	if err := json.NewDecoder(rec.Body).Decode(&summaries); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d monitors, want 2", len(summaries))
	}
	if summaries[0].Name != "flood" || summaries[0].Threshold != 100 {
		t.Errorf("summaries[0] = %+v", summaries[0])
	}
	if summaries[1].Name != "scan" {
		t.Errorf("summaries[1] = %+v", summaries[1])
	}
}

func TestLookReturnsClusterDump(t *testing.T) {
	h := buildHandler(t)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/monitors/flood/look", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	if len(lines) != 256 {
		t.Errorf("dump has %d lines, want 256", len(lines))
	}
}

func TestUnknownMonitorIs404(t *testing.T) {
	h := buildHandler(t)

	for _, req := range []*http.Request{
		httptest.NewRequest("GET", "/api/v1/monitors/nope/look", nil),
		httptest.NewRequest("GET", "/api/v1/monitors/nope/thresh", nil),
		httptest.NewRequest("POST", "/api/v1/monitors/nope/reset", nil),
	} {
		rec := httptest.NewRecorder()
		h.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: status = %d, want 404", req.Method, req.URL.Path, rec.Code)
		}
	}
}

func TestThresholdRoundTrip(t *testing.T) {
	h := buildHandler(t)

	// 1. Update the threshold
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/api/v1/monitors/flood/thresh", strings.NewReader(`{"threshold": 500}`))
	h.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	// 2. Read it back
	rec = httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/monitors/flood/thresh", nil))
	var resp threshPayload
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Threshold != 500 {
		t.Errorf("threshold = %d, want 500", resp.Threshold)
	}

	// 3. Negative thresholds are rejected
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("PUT", "/api/v1/monitors/flood/thresh", strings.NewReader(`{"threshold": -1}`))
	h.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative PUT status = %d, want 400", rec.Code)
	}
}

func TestResetWithBaseline(t *testing.T) {
	h := buildHandler(t)

	// 1. Reset with an explicit baseline
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/monitors/flood/reset", strings.NewReader(`{"baseline": 7}`))
	h.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST status = %d: %s", rec.Code, rec.Body.String())
	}

	// 2. The dump reads the baseline back
	rec = httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/monitors/flood/look", nil))
	if !strings.Contains(rec.Body.String(), "0.*.*.* 7") {
		t.Error("dump does not reflect the baseline")
	}

	// 3. An empty body defaults to baseline zero
	rec = httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/monitors/flood/reset", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("empty POST status = %d", rec.Code)
	}

	// 4. An overflowing baseline is a client error
	rec = httptest.NewRecorder()
	body := strings.NewReader(`{"baseline": ` + jsonInt64(int64(math.MaxInt32)+1) + `}`)
	h.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/monitors/flood/reset", body))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("overflow POST status = %d, want 400", rec.Code)
	}
}

func TestSinceReportsPeriodAge(t *testing.T) {
	h := buildHandler(t)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/monitors/scan/since", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp sincePayload
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.SinceSeconds < 0 || resp.SinceSeconds > time.Minute.Seconds() {
		t.Errorf("since_seconds = %f", resp.SinceSeconds)
	}
}

func TestMetricsRoute(t *testing.T) {
	h := buildHandler(t)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "netfocus_") {
		t.Error("metrics output is missing netfocus collectors")
	}
}

func jsonInt64(v int64) string {
	data, _ := json.Marshal(v)
	return string(data)
}
