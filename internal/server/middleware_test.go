package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_CORSMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		corsOrigin     string
		method         string
		expectedCORS   string
		shouldCallNext bool
	}{
		{"GET request with CORS headers", "*", "GET", "*", true},
		{"POST request with specific origin", "https://example.com", "POST", "https://example.com", true},
		{"OPTIONS request (preflight)", "*", "OPTIONS", "*", false},
		{"empty CORS origin", "", "GET", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := &Server{corsOrigin: tt.corsOrigin}

			nextCalled := false
			corsHandler := server.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			})

			w := httptest.NewRecorder()
			corsHandler(w, httptest.NewRequest(tt.method, "/test", nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.expectedCORS, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
			assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Rectify-Method")
			assert.Equal(t, tt.shouldCallNext, nextCalled)
		})
	}
}

func TestServer_CORSMiddleware_CapturesStatus(t *testing.T) {
	server := &Server{corsOrigin: "*"}
	var captured *responseWriter
	handler := server.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = w.(*responseWriter)
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodPost, "/test", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	require.NotNil(t, captured)
	assert.Equal(t, http.StatusTeapot, captured.statusCode)
}

func TestRequestIDMiddleware(t *testing.T) {
	server := &Server{}
	var seen string
	handler := server.requestIDMiddleware(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	})

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/", nil))

		_, err := uuid.Parse(seen)
		require.NoError(t, err)
		assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, " abc-123 ")
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	})

	assert.Empty(t, RequestID(context.Background()))
}

func TestTimeoutMiddleware(t *testing.T) {
	var deadline time.Time
	var ok bool
	next := func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}

	(&Server{timeoutSec: 5}).timeoutMiddleware(next)(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(5*time.Second), deadline, time.Second)

	(&Server{}).timeoutMiddleware(next)(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
}

func TestRateLimitMiddleware(t *testing.T) {
	server := &Server{rateLimiter: NewRateLimiter(Limits{RequestsPerMinute: 1})}
	calls := 0
	handler := server.rateLimitMiddleware(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/rectify", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		return r
	}

	w := httptest.NewRecorder()
	handler(w, req())
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler(w, req())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "minute", w.Header().Get("X-RateLimit-Type"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
	assert.Equal(t, 1, calls)

	// another client is unaffected
	r := req()
	r.RemoteAddr = "10.0.0.2:1234"
	w = httptest.NewRecorder()
	handler(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	called := false
	(&Server{}).rateLimitMiddleware(func(http.ResponseWriter, *http.Request) { called = true })(
		httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestHandleRateLimitError_Quota(t *testing.T) {
	w := httptest.NewRecorder()
	resets := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	(&Server{}).handleRateLimitError(w, &QuotaExceededError{Type: "data", Limit: 100, Used: 90, Resets: resets})

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "data", w.Header().Get("X-Quota-Type"))
	assert.Equal(t, "100", w.Header().Get("X-Quota-Limit"))
	assert.Equal(t, "90", w.Header().Get("X-Quota-Used"))
	assert.Equal(t, resets.Format(http.TimeFormat), w.Header().Get("X-Quota-Resets"))
	assert.Contains(t, w.Body.String(), "quota_exceeded")
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		remote   string
		expected string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2"}, "3.3.3.3:80", "1.1.1.1"},
		{"forwarded single", map[string]string{"X-Forwarded-For": " 1.1.1.1 "}, "3.3.3.3:80", "1.1.1.1"},
		{"real ip", map[string]string{"X-Real-IP": "4.4.4.4"}, "3.3.3.3:80", "4.4.4.4"},
		{"remote addr", nil, "3.3.3.3:80", "3.3.3.3"},
		{"remote without port", nil, "3.3.3.3", "3.3.3.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, getClientIP(r))
		})
	}
}
