package media

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reelroom/internal/models"
	"reelroom/internal/observability/metrics"
)

func testItem(size int64) models.MediaItem {
	return models.MediaItem{
		ID:          "clip.mp4",
		Title:       "Clip",
		SizeBytes:   size,
		ContentType: "video/mp4",
		ModifiedAt:  time.Now().UTC(),
	}
}

func testContent(size int64) []byte {
	content := make([]byte, size)
	for i := range content {
		content[i] = byte(i % 251)
	}
	return content
}

func serveRange(t *testing.T, content []byte, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()
	streamer := &Streamer{Recorder: metrics.New()}
	req := httptest.NewRequest(http.MethodGet, "/api/videos/clip.mp4", nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	rec := httptest.NewRecorder()
	streamer.Serve(rec, req, testItem(int64(len(content))), bytes.NewReader(content))
	return rec
}

func TestServeFullContent(t *testing.T) {
	content := testContent(1000)
	rec := serveRange(t, content, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Length"); got != "1000" {
		t.Fatalf("expected Content-Length 1000, got %q", got)
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Fatalf("expected Accept-Ranges bytes, got %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Fatalf("expected video/mp4, got %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), content) {
		t.Fatalf("expected full body, got %d bytes", rec.Body.Len())
	}
}

func TestServePartialContent(t *testing.T) {
	content := testContent(1000)
	rec := serveRange(t, content, "bytes=500-599")

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("expected 206, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 500-599/1000" {
		t.Fatalf("unexpected Content-Range %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "100" {
		t.Fatalf("expected Content-Length 100, got %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Fatalf("expected Cache-Control no-cache, got %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), content[500:600]) {
		t.Fatalf("expected bytes 500-599, got %d bytes", rec.Body.Len())
	}
}

func TestServeUnsatisfiableRange(t *testing.T) {
	content := testContent(1000)
	rec := serveRange(t, content, "bytes=900-1500")

	if rec.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("expected 416, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes */1000" {
		t.Fatalf("unexpected Content-Range %q", got)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %d bytes", rec.Body.Len())
	}
}

func TestServeMalformedRangeDegradesToFullContent(t *testing.T) {
	content := testContent(64)
	rec := serveRange(t, content, "bytes=oops")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fallback, got %d", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), content) {
		t.Fatalf("expected full body on malformed range")
	}
}

func TestServeAdjacentPartialsConcatenate(t *testing.T) {
	content := testContent(1000)
	first := serveRange(t, content, "bytes=0-399")
	second := serveRange(t, content, "bytes=400-999")

	if first.Code != http.StatusPartialContent || second.Code != http.StatusPartialContent {
		t.Fatalf("expected two 206 responses, got %d and %d", first.Code, second.Code)
	}
	combined := append(append([]byte{}, first.Body.Bytes()...), second.Body.Bytes()...)
	if !bytes.Equal(combined, content) {
		t.Fatalf("expected concatenated partials to reproduce the file, got %d bytes", len(combined))
	}
}

func TestServeSmallBufferPreservesByteOrder(t *testing.T) {
	content := testContent(1000)
	streamer := &Streamer{BufferSize: 7, Recorder: metrics.New()}
	req := httptest.NewRequest(http.MethodGet, "/api/videos/clip.mp4", nil)
	req.Header.Set("Range", "bytes=13-977")
	rec := httptest.NewRecorder()
	streamer.Serve(rec, req, testItem(int64(len(content))), bytes.NewReader(content))

	if !bytes.Equal(rec.Body.Bytes(), content[13:978]) {
		t.Fatalf("expected in-order interval with tiny buffer")
	}
}

func TestServeHeadOmitsBody(t *testing.T) {
	content := testContent(128)
	streamer := &Streamer{Recorder: metrics.New()}
	req := httptest.NewRequest(http.MethodHead, "/api/videos/clip.mp4", nil)
	req.Header.Set("Range", "bytes=0-63")
	rec := httptest.NewRecorder()
	streamer.Serve(rec, req, testItem(int64(len(content))), bytes.NewReader(content))

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("expected 206, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Length"); got != "64" {
		t.Fatalf("expected Content-Length 64, got %q", got)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body for HEAD, got %d bytes", rec.Body.Len())
	}
}

func TestServeStopsWhenClientDisconnects(t *testing.T) {
	content := testContent(1 << 20)
	streamer := &Streamer{BufferSize: 1024, Recorder: metrics.New()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/videos/clip.mp4", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	streamer.Serve(rec, req, testItem(int64(len(content))), bytes.NewReader(content))

	if rec.Body.Len() == len(content) {
		t.Fatalf("expected stream to stop early after cancellation")
	}
}

func TestServeRecordsStreamingMetrics(t *testing.T) {
	recorder := metrics.New()
	content := testContent(512)
	streamer := &Streamer{Recorder: recorder}
	req := httptest.NewRequest(http.MethodGet, "/api/videos/clip.mp4", nil)
	req.Header.Set("Range", "bytes=0-255")
	rec := httptest.NewRecorder()
	streamer.Serve(rec, req, testItem(int64(len(content))), bytes.NewReader(content))

	if got := recorder.StreamedBytes(); got != 256 {
		t.Fatalf("expected 256 streamed bytes, got %d", got)
	}
	if got := recorder.ActivePlaybacks(); got != 0 {
		t.Fatalf("expected playback gauge back at 0, got %d", got)
	}
	decisions := recorder.RangeDecisionCounts()
	if decisions["partial"] != 1 {
		t.Fatalf("expected one partial decision, got %v", decisions)
	}
}

func TestServeEveryAdjacentSplitReassembles(t *testing.T) {
	content := testContent(100)
	for split := 1; split < len(content); split += 17 {
		first := serveRange(t, content, fmt.Sprintf("bytes=0-%d", split-1))
		second := serveRange(t, content, fmt.Sprintf("bytes=%d-99", split))
		combined := append(append([]byte{}, first.Body.Bytes()...), second.Body.Bytes()...)
		if !bytes.Equal(combined, content) {
			t.Fatalf("split at %d did not reassemble the file", split)
		}
	}
}
