package api

import (
	"log/slog"
	"net/http"
	"time"

	"reelroom/internal/auth"
	"reelroom/internal/media"
	"reelroom/internal/observability/metrics"
	"reelroom/internal/storage"
)

// Handler carries the collaborators every endpoint needs.
type Handler struct {
	Store               storage.Repository
	Sessions            *auth.SessionManager
	Library             *media.Library
	Streamer            *media.Streamer
	Recorder            *metrics.Recorder
	SessionCookiePolicy SessionCookiePolicy
	// DisableSignup turns off self-service account creation; accounts are
	// then provisioned with the bootstrap tool only.
	DisableSignup bool
	Logger        *slog.Logger
}

// NewHandler wires the handler with sensible defaults for optional pieces.
func NewHandler(store storage.Repository, sessions *auth.SessionManager, library *media.Library) *Handler {
	if sessions == nil {
		sessions = auth.NewSessionManager(24 * time.Hour)
	}
	return &Handler{Store: store, Sessions: sessions, Library: library}
}

func (h *Handler) sessionManager() *auth.SessionManager {
	if h.Sessions == nil {
		h.Sessions = auth.NewSessionManager(24 * time.Hour)
	}
	return h.Sessions
}

func (h *Handler) recorder() *metrics.Recorder {
	if h.Recorder == nil {
		return metrics.Default()
	}
	return h.Recorder
}

func (h *Handler) streamer() *media.Streamer {
	if h.Streamer == nil {
		h.Streamer = &media.Streamer{Recorder: h.Recorder, Logger: h.Logger}
	}
	return h.Streamer
}

// Health reports datastore and session-store reachability. It stays
// unauthenticated so load balancers can probe it.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	services := map[string]string{}

	if h.Store != nil {
		if err := h.Store.Ping(r.Context()); err != nil {
			services["datastore"] = "degraded"
			status = "degraded"
		} else {
			services["datastore"] = "ok"
		}
	}
	if err := h.sessionManager().Ping(r.Context()); err != nil {
		services["sessions"] = "degraded"
		status = "degraded"
	} else {
		services["sessions"] = "ok"
	}

	for name, state := range services {
		h.recorder().SetStoreHealth(name, state)
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":   status,
		"services": services,
	})
}
