package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPMiddlewareRecordsStatus(t *testing.T) {
	recorder := New()
	handler := HTTPMiddleware(recorder, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/catalog", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var buf strings.Builder
	recorder.Write(&buf)
	if !strings.Contains(buf.String(), `reelroom_http_requests_total{method="GET",path="/api/catalog",status="404"} 1`) {
		t.Fatalf("expected 404 observation, got:\n%s", buf.String())
	}
}

func TestHTTPMiddlewareDefaultsStatusToOK(t *testing.T) {
	recorder := New()
	handler := HTTPMiddleware(recorder, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var buf strings.Builder
	recorder.Write(&buf)
	if !strings.Contains(buf.String(), `status="200"} 1`) {
		t.Fatalf("expected implicit 200 observation, got:\n%s", buf.String())
	}
}

func TestResponseRecorderPreservesFlusher(t *testing.T) {
	rec := httptest.NewRecorder()
	rr := NewResponseRecorder(rec)
	rr.Flush()
	if !rec.Flushed {
		t.Fatalf("expected flush to reach underlying writer")
	}
}
