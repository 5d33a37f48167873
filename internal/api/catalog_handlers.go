package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"reelroom/internal/models"
	"reelroom/internal/observability/logging"
	"reelroom/internal/storage"
)

type catalogItem struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	ThumbnailURL  string `json:"thumbnailUrl,omitempty"`
	SizeBytes     int64  `json:"sizeBytes"`
	ContentType   string `json:"contentType"`
	ModifiedAt    string `json:"modifiedAt"`
	ResumeSeconds int64  `json:"resumeSeconds"`
}

type catalogResponse struct {
	Items       []catalogItem `json:"items"`
	GeneratedAt string        `json:"generatedAt"`
}

// Catalog lists the playable library joined with the caller's stored watch
// progress, so clients can render resume points without extra round trips.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	items, err := h.Library.Scan(r.Context())
	if err != nil {
		h.logFor(r).Error("catalog scan failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("failed to list catalog"))
		return
	}

	progress, err := h.Store.ListWatchProgress(user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, errors.New("progress store unavailable"))
			return
		}
		h.logFor(r).Error("failed to load watch progress", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("failed to load watch progress"))
		return
	}

	response := catalogResponse{
		Items:       make([]catalogItem, 0, len(items)),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	for _, item := range items {
		response.Items = append(response.Items, newCatalogItem(item, progress[item.ID]))
	}
	writeJSON(w, http.StatusOK, response)
}

func newCatalogItem(item models.MediaItem, resumeSeconds int64) catalogItem {
	return catalogItem{
		ID:            item.ID,
		Title:         item.Title,
		ThumbnailURL:  item.ThumbnailURL,
		SizeBytes:     item.SizeBytes,
		ContentType:   item.ContentType,
		ModifiedAt:    item.ModifiedAt.UTC().Format(time.RFC3339Nano),
		ResumeSeconds: resumeSeconds,
	}
}

func (h *Handler) logFor(r *http.Request) *slog.Logger {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return logging.WithContext(r.Context(), logger)
}
