package middleware

import (
	"log/slog"
	"net/http"

	"github.com/moni-del/dragon-d/pkg/logger"
)

// RequestLogger builds a request-scoped logger enriched with correlation_id,
// user_id, session_id and trace ids, and stores it with logger.NewContext.
//
// Mount it after RequestLogging (which sets correlation_id) and Tracing
// (which starts the span). Auth re-enriches the stored logger once the
// caller's identity is known.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if userID := UserIDFromContext(ctx); userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}
			if sessionID := SessionIDFromContext(ctx); sessionID != "" {
				ctx = logger.WithSessionID(ctx, sessionID)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
