package api

import (
	"errors"
	"net/http"
	"strings"

	"reelroom/internal/media"
	"reelroom/internal/observability/logging"
)

// Video streams a single library item with Range support. The item ID is the
// final path segment; anything that does not resolve inside the library root
// is a 404.
func (h *Handler) Video(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	itemID := strings.TrimPrefix(r.URL.Path, "/api/videos/")
	if itemID == "" || strings.Contains(itemID, "/") {
		writeError(w, http.StatusNotFound, errors.New("video not found"))
		return
	}

	file, item, err := h.Library.Open(itemID)
	if err != nil {
		if errors.Is(err, media.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("video not found"))
			return
		}
		h.logFor(r).Error("failed to open media item", "item_id", itemID, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("failed to open video"))
		return
	}
	defer file.Close()

	ctx := logging.ContextWithItemID(r.Context(), item.ID)
	h.logFor(r.WithContext(ctx)).Info("serving media item",
		"item_id", item.ID,
		"user_id", user.ID,
		"size_bytes", item.SizeBytes,
		"range", r.Header.Get("Range"),
	)

	h.streamer().Serve(w, r.WithContext(ctx), item, file)
}
