package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestObserveRequestAggregates(t *testing.T) {
	recorder := New()
	recorder.ObserveRequest("get", "/api/catalog", http.StatusOK, 25*time.Millisecond)
	recorder.ObserveRequest("GET", "/api/catalog", http.StatusOK, 75*time.Millisecond)

	var buf strings.Builder
	recorder.Write(&buf)
	output := buf.String()

	if !strings.Contains(output, `reelroom_http_requests_total{method="GET",path="/api/catalog",status="200"} 2`) {
		t.Fatalf("expected aggregated request count, got:\n%s", output)
	}
	if !strings.Contains(output, `reelroom_http_request_duration_seconds_count{method="GET",path="/api/catalog",status="200"} 2`) {
		t.Fatalf("expected duration observation count, got:\n%s", output)
	}
}

func TestPlaybackGaugeNeverNegative(t *testing.T) {
	recorder := New()
	recorder.PlaybackStopped()
	if got := recorder.ActivePlaybacks(); got != 0 {
		t.Fatalf("expected gauge to stay at 0, got %d", got)
	}

	recorder.PlaybackStarted()
	recorder.PlaybackStarted()
	recorder.PlaybackStopped()
	if got := recorder.ActivePlaybacks(); got != 1 {
		t.Fatalf("expected gauge 1, got %d", got)
	}
}

func TestPlaybackGaugeConcurrent(t *testing.T) {
	recorder := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recorder.PlaybackStarted()
			recorder.PlaybackStopped()
		}()
	}
	wg.Wait()
	if got := recorder.ActivePlaybacks(); got != 0 {
		t.Fatalf("expected gauge to settle at 0, got %d", got)
	}
}

func TestStreamedBytesIgnoresNonPositive(t *testing.T) {
	recorder := New()
	recorder.AddStreamedBytes(-10)
	recorder.AddStreamedBytes(0)
	recorder.AddStreamedBytes(4096)
	if got := recorder.StreamedBytes(); got != 4096 {
		t.Fatalf("expected 4096 streamed bytes, got %d", got)
	}
}

func TestRangeDecisionAndProgressCounters(t *testing.T) {
	recorder := New()
	recorder.ObserveRangeDecision("Partial")
	recorder.ObserveRangeDecision("partial")
	recorder.ObserveRangeDecision("unsatisfiable")
	recorder.ObserveProgressUpdate("ok")
	recorder.ObserveProgressUpdate("")

	decisions := recorder.RangeDecisionCounts()
	if decisions["partial"] != 2 {
		t.Fatalf("expected 2 partial decisions, got %d", decisions["partial"])
	}
	if decisions["unsatisfiable"] != 1 {
		t.Fatalf("expected 1 unsatisfiable decision, got %d", decisions["unsatisfiable"])
	}

	progress := recorder.ProgressCounts()
	if progress["ok"] != 1 || progress["unknown"] != 1 {
		t.Fatalf("unexpected progress counters: %v", progress)
	}
}

func TestStoreHealthMapping(t *testing.T) {
	recorder := New()
	recorder.SetStoreHealth("Postgres", "OK")
	recorder.SetStoreHealth("redis", "degraded")

	var buf strings.Builder
	recorder.Write(&buf)
	output := buf.String()

	if !strings.Contains(output, `reelroom_store_health{store="postgres",status="ok"} 1`) {
		t.Fatalf("expected healthy postgres gauge, got:\n%s", output)
	}
	if !strings.Contains(output, `reelroom_store_health{store="redis",status="degraded"} -1`) {
		t.Fatalf("expected degraded redis gauge, got:\n%s", output)
	}
}

func TestHandlerWritesPrometheusText(t *testing.T) {
	recorder := New()
	recorder.ObserveRequest(http.MethodGet, "/healthz", http.StatusOK, time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); got != "text/plain; version=0.0.4" {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(rec.Body.String(), "reelroom_http_requests_total") {
		t.Fatalf("expected exposition output, got:\n%s", rec.Body.String())
	}
}

func TestNormalizePathCollapsesIdentifiers(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"/api/videos/sintel-trailer.mp4", "/api/videos/:id"},
		{"/api/watch-progress/abc12345", "/api/:id/:id"},
		{"/healthz", "/healthz"},
		{"", "/"},
	}
	for _, tc := range cases {
		if got := normalizePath(tc.input); got != tc.expected {
			t.Fatalf("normalizePath(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestResetClearsState(t *testing.T) {
	recorder := New()
	recorder.PlaybackStarted()
	recorder.AddStreamedBytes(100)
	recorder.ObserveRangeDecision("full")
	recorder.Reset()

	if recorder.ActivePlaybacks() != 0 || recorder.StreamedBytes() != 0 {
		t.Fatalf("expected gauges reset to zero")
	}
	if len(recorder.RangeDecisionCounts()) != 0 {
		t.Fatalf("expected counters cleared")
	}
}
