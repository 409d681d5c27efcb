package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/thejonthinator/frysen/api/responses"
	"github.com/thejonthinator/frysen/pkg/logger"
)

const maxRequestIDLen = 128

// RequestID echoes a caller supplied id or mints one, and threads it through
// the log context.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(responses.RequestIDHeader)
			if reqID == "" || len(reqID) > maxRequestIDLen {
				reqID = uuid.NewString()
			}

			w.Header().Set(responses.RequestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
