package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"reelroom/internal/observability/logging"
)

type idGenerator func() string

func requestIDMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return requestIDMiddlewareWithGenerator(logger, uuid.NewString, next)
}

// requestIDMiddlewareWithGenerator honours an inbound X-Request-Id so proxies
// can correlate logs, otherwise mints a fresh identifier. The enriched logger
// is parked on the context for downstream handlers.
func requestIDMiddlewareWithGenerator(logger *slog.Logger, generator idGenerator, next http.Handler) http.Handler {
	if generator == nil {
		generator = uuid.NewString
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if requestID == "" {
			requestID = generator()
		}

		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		if ctxLogger := logging.WithContext(ctx, logger); ctxLogger != nil {
			ctx = logging.ContextWithLogger(ctx, ctxLogger)
		}

		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
