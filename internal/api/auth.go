package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"reelroom/internal/models"
)

type contextKey string

const userContextKey contextKey = "reelroom.user"

// ContextWithUser attaches the authenticated user to the request context.
func ContextWithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user from the request context.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// ExtractToken pulls the session token from the Authorization header or, when
// absent, from the session cookie.
func ExtractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token
			}
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

// AuthenticateRequest resolves the request's session token to a user without
// writing a response. It returns false when no valid session is attached.
func (h *Handler) AuthenticateRequest(r *http.Request) (models.User, bool, error) {
	token := ExtractToken(r)
	if token == "" {
		return models.User{}, false, nil
	}
	userID, _, ok, err := h.sessionManager().Validate(token)
	if err != nil {
		return models.User{}, false, err
	}
	if !ok {
		return models.User{}, false, nil
	}
	user, found := h.Store.GetUser(userID)
	if !found {
		return models.User{}, false, nil
	}
	return user, true, nil
}

// requireAuthenticatedUser fetches the user from the context, falling back to
// validating the request's token directly. It writes the 401 itself when the
// request carries no usable session.
func (h *Handler) requireAuthenticatedUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	if user, ok := UserFromContext(r.Context()); ok {
		return user, true
	}
	user, ok, err := h.AuthenticateRequest(r)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("session validation unavailable"))
		return models.User{}, false
	}
	if !ok {
		h.recorder().ObserveAuthEvent("unauthorized")
		writeError(w, http.StatusUnauthorized, errors.New("authentication required"))
		return models.User{}, false
	}
	return user, true
}
