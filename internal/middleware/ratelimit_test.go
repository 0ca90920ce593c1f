package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func hit(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/payment/summit/webhook", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestTextRateLimit(t *testing.T) {
	h := TextRateLimit(2)(okHandler)

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1234").Code)

	limited := hit(h, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "Too many requests", limited.Body.String())

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.2:1234").Code)
}

func TestRateLimit_JSON(t *testing.T) {
	h := RateLimit(1)(okHandler)

	hit(h, "10.0.0.3:1234")
	limited := hit(h, "10.0.0.3:1234")

	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "application/json", limited.Header().Get("Content-Type"))
	assert.Contains(t, limited.Body.String(), `"code":"rate_limit"`)
}

func TestRateLimit_Disabled(t *testing.T) {
	h := RateLimit(0)(okHandler)

	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "10.0.0.4:1234").Code)
	}
}

func TestNoStore(t *testing.T) {
	w := httptest.NewRecorder()
	NoStore()(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestSecurityHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	SecurityHeaders()(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}
