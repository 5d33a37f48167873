package media

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"syscall"

	"reelroom/internal/observability/logging"
	"reelroom/internal/observability/metrics"

	"reelroom/internal/models"
)

// DefaultStreamBufferSize bounds per-connection copy buffers so memory use is
// independent of file size.
const DefaultStreamBufferSize = 256 << 10

// Streamer writes media responses with HTTP Range semantics. Bytes are
// forwarded incrementally through a bounded buffer and the copy loop observes
// request-context cancellation so a departed client releases its file handle
// promptly.
type Streamer struct {
	// BufferSize caps the copy buffer. Defaults to DefaultStreamBufferSize.
	BufferSize int
	Recorder   *metrics.Recorder
	Logger     *slog.Logger
}

// Serve classifies the request's Range header against the item size and
// writes the response: 200 with the whole file, 206 with the requested
// interval, or 416 with a total-size hint. content must read the item's bytes
// from offset zero.
func (s *Streamer) Serve(w http.ResponseWriter, r *http.Request, item models.MediaItem, content io.ReadSeeker) {
	recorder := s.Recorder
	if recorder == nil {
		recorder = metrics.Default()
	}

	decision := ParseRange(r.Header.Get("Range"), item.SizeBytes)
	recorder.ObserveRangeDecision(decision.String())

	if decision.Kind == Unsatisfiable {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", item.SizeBytes))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	start := int64(0)
	length := item.SizeBytes
	if decision.Kind == PartialContent {
		start = decision.Start
		length = decision.ChunkSize()
	}

	if _, err := content.Seek(start, io.SeekStart); err != nil {
		s.log(r).Error("failed to seek media content", "item", item.ID, "offset", start, "error", err)
		http.Error(w, "failed to read media", http.StatusInternalServerError)
		return
	}

	contentType := item.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	if decision.Kind == PartialContent {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", decision.Start, decision.End, item.SizeBytes))
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if r.Method == http.MethodHead {
		return
	}

	recorder.PlaybackStarted()
	defer recorder.PlaybackStopped()

	s.copyBody(w, r, recorder, item, length, content)
}

func (s *Streamer) copyBody(w http.ResponseWriter, r *http.Request, recorder *metrics.Recorder, item models.MediaItem, length int64, content io.Reader) {
	bufSize := s.BufferSize
	if bufSize <= 0 {
		bufSize = DefaultStreamBufferSize
	}
	rc := http.NewResponseController(w)
	buf := make([]byte, bufSize)

	var written int64
	for written < length {
		select {
		case <-r.Context().Done():
			s.log(r).Debug("client disconnected mid-stream", "item", item.ID, "written", written)
			return
		default:
		}

		toRead := int64(len(buf))
		if remaining := length - written; remaining < toRead {
			toRead = remaining
		}
		n, readErr := content.Read(buf[:toRead])
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				if !clientGone(err) {
					s.log(r).Warn("failed to write media bytes", "item", item.ID, "error", err)
				}
				return
			}
			_ = rc.Flush()
			written += int64(n)
			recorder.AddStreamedBytes(int64(n))
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				s.log(r).Warn("failed to read media bytes", "item", item.ID, "error", readErr)
			}
			return
		}
	}
}

func (s *Streamer) log(r *http.Request) *slog.Logger {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return logging.WithContext(r.Context(), logger)
}

func clientGone(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}
