package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"reelroom/internal/models"
	"reelroom/internal/storage"
)

type signupRequest struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	SelfSignup  bool   `json:"selfSignup"`
	CreatedAt   string `json:"createdAt"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expiresAt"`
	User      userResponse `json:"user"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		SelfSignup:  user.SelfSignup,
		CreatedAt:   user.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Signup registers a new account and opens a session for it.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	if h.DisableSignup {
		writeError(w, http.StatusForbidden, errors.New("self-service signup is disabled"))
		return
	}

	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid signup payload"))
		return
	}

	user, err := h.Store.CreateUser(storage.CreateUserParams{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Password:    req.Password,
		SelfSignup:  true,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrEmailInUse):
			writeError(w, http.StatusConflict, err)
		case errors.Is(err, storage.ErrUnavailable):
			writeError(w, http.StatusServiceUnavailable, errors.New("account store unavailable"))
		default:
			writeError(w, http.StatusBadRequest, err)
		}
		return
	}

	h.recorder().ObserveAuthEvent("signup")
	h.openSession(w, r, user, http.StatusCreated)
}

// Login verifies credentials and opens a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid login payload"))
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, errors.New("email and password are required"))
		return
	}

	user, err := h.Store.AuthenticateUser(req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidCredentials), errors.Is(err, storage.ErrPasswordLoginUnsupported):
			h.recorder().ObserveAuthEvent("login_failure")
			writeError(w, http.StatusUnauthorized, errors.New("invalid email or password"))
		case errors.Is(err, storage.ErrUnavailable):
			writeError(w, http.StatusServiceUnavailable, errors.New("account store unavailable"))
		default:
			writeError(w, http.StatusBadRequest, err)
		}
		return
	}

	h.recorder().ObserveAuthEvent("login_success")
	h.openSession(w, r, user, http.StatusOK)
}

func (h *Handler) openSession(w http.ResponseWriter, r *http.Request, user models.User, status int) {
	token, expiresAt, err := h.sessionManager().Create(user.ID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("failed to open session"))
		return
	}
	h.setSessionCookie(w, r, token, expiresAt)
	writeJSON(w, status, authResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339Nano),
		User:      newUserResponse(user),
	})
}

// Session returns the current session's user on GET and revokes the session on
// DELETE.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": newUserResponse(user)})
	case http.MethodDelete:
		token := ExtractToken(r)
		if token != "" {
			if err := h.sessionManager().Revoke(token); err != nil {
				writeError(w, http.StatusServiceUnavailable, errors.New("failed to revoke session"))
				return
			}
		}
		h.recorder().ObserveAuthEvent("logout")
		h.ClearSessionCookie(w, r)
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}
