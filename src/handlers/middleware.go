package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/username/purchasesync/backend/src/logger"
)

// RequestIDMiddleware tags every request with an id, echoes it back in
// X-Request-ID and logs the request once served.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		next.ServeHTTP(w, r)

		logger.L.Info("Request served",
			"requestID", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remoteAddr", r.RemoteAddr,
			"durationMs", time.Since(start).Milliseconds())
	})
}
