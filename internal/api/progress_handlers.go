package api

import (
	"errors"
	"net/http"
	"strings"

	"reelroom/internal/storage"
)

type progressUpdateRequest struct {
	ItemID          string `json:"itemId"`
	PositionSeconds *int64 `json:"positionSeconds"`
}

// UpdateWatchProgress stores the caller's playback position for one item.
// Position zero is a legitimate value (restart from the beginning), so the
// field is required rather than defaulted.
func (h *Handler) UpdateWatchProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	var req progressUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.recorder().ObserveProgressUpdate("invalid")
		writeError(w, http.StatusBadRequest, errors.New("invalid progress payload"))
		return
	}
	req.ItemID = strings.TrimSpace(req.ItemID)
	if req.ItemID == "" || req.PositionSeconds == nil {
		h.recorder().ObserveProgressUpdate("invalid")
		writeError(w, http.StatusBadRequest, errors.New("itemId and positionSeconds are required"))
		return
	}

	if err := h.Store.UpsertWatchProgress(user.ID, req.ItemID, *req.PositionSeconds); err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidProgress):
			h.recorder().ObserveProgressUpdate("invalid")
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, storage.ErrUnavailable):
			h.recorder().ObserveProgressUpdate("unavailable")
			writeError(w, http.StatusServiceUnavailable, errors.New("progress store unavailable"))
		default:
			h.recorder().ObserveProgressUpdate("error")
			h.logFor(r).Error("failed to store watch progress",
				"user_id", user.ID, "item_id", req.ItemID, "error", err)
			writeError(w, http.StatusInternalServerError, errors.New("failed to store watch progress"))
		}
		return
	}

	h.recorder().ObserveProgressUpdate("ok")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GetWatchProgress reports the stored position for one item, defaulting to
// zero when the caller never watched it.
func (h *Handler) GetWatchProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	itemID := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/api/watch-progress/"))
	if itemID == "" || strings.Contains(itemID, "/") {
		writeError(w, http.StatusNotFound, errors.New("unknown item"))
		return
	}

	position, err := h.Store.GetWatchProgress(user.ID, itemID)
	if err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, errors.New("progress store unavailable"))
			return
		}
		h.logFor(r).Error("failed to load watch progress",
			"user_id", user.ID, "item_id", itemID, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("failed to load watch progress"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"itemId":          itemID,
		"positionSeconds": position,
	})
}

// ListWatchProgress returns every stored position for the caller.
func (h *Handler) ListWatchProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	progress, err := h.Store.ListWatchProgress(user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, errors.New("progress store unavailable"))
			return
		}
		h.logFor(r).Error("failed to list watch progress", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("failed to list watch progress"))
		return
	}
	if progress == nil {
		progress = map[string]int64{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"progress": progress})
}
