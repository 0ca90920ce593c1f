package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cassiomorais/summitpay/internal/repository/postgres"
	"github.com/rs/zerolog"
)

const (
	maxIdempotencyBodySize = 1 << 20
	IdempotencyHeader      = "Idempotency-Key"
)

// IdempotencyStore keeps responses for replay.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*postgres.IdempotencyEntry, error)
	Set(ctx context.Context, entry *postgres.IdempotencyEntry) error
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Keys are scoped to the authenticated client. 5xx responses are not stored
// so the caller can retry. A key reused with a different method, path or body
// is rejected with 422.
func Idempotency(store IdempotencyStore, ttl time.Duration, logger zerolog.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(IdempotencyHeader)
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := header
			if clientID, ok := GetClientID(r.Context()); ok {
				key = clientID + ":" + header
			}

			hash, err := fingerprint(r)
			if err != nil {
				writeIdempotencyError(w, http.StatusBadRequest, "Failed to read request body")
				return
			}

			entry, err := store.Get(r.Context(), key)
			if err != nil {
				logger.Warn().Err(err).Str("idempotency_key", header).Msg("Idempotency lookup failed")
			}
			if err == nil && entry != nil {
				if entry.RequestHash != "" && entry.RequestHash != hash {
					writeIdempotencyError(w, http.StatusUnprocessableEntity, "Idempotency-Key was already used for a different request")
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotency-Replayed", "true")
				w.WriteHeader(entry.ResponseStatus)
				w.Write([]byte(entry.ResponseBody))
				return
			}

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode >= 500 || rec.bodyTruncated {
				return
			}
			now := time.Now()
			if err := store.Set(r.Context(), &postgres.IdempotencyEntry{
				Key:            key,
				RequestHash:    hash,
				ResponseBody:   rec.body.String(),
				ResponseStatus: rec.statusCode,
				CreatedAt:      now,
				ExpiresAt:      now.Add(ttl),
			}); err != nil {
				logger.Warn().Err(err).Str("idempotency_key", header).Msg("Failed to store idempotent response")
			}
		})
	}
}

// fingerprint hashes method, path and body, then restores the body for the
// next handler.
func fingerprint(r *http.Request) (string, error) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, maxIdempotencyBodySize))
		if err != nil {
			return "", err
		}
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte{0})
	h.Write([]byte(r.URL.Path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeIdempotencyError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode    int
	body          *bytes.Buffer
	bodyTruncated bool
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.bodyTruncated {
		if r.body.Len()+len(b) > maxIdempotencyBodySize {
			r.bodyTruncated = true
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}
