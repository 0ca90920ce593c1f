package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit limits each client IP to requestsPerMinute, answering with JSON.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return limitByIP(requestsPerMinute, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "rate limit exceeded",
			"code":  "rate_limit",
		})
	})
}

// TextRateLimit is RateLimit for endpoints whose callers expect plain text.
func TextRateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return limitByIP(requestsPerMinute, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("Too many requests"))
	})
}

func limitByIP(requestsPerMinute int, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(onLimit),
	)
}
