package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestRateLimiter(t *testing.T) {
	tests := []struct {
		name         string
		ip           string
		expectStatus int
		numRequests  int
		sleep        time.Duration
		burst        int
		limit        rate.Limit
	}{
		{
			name:         "within rate limit",
			ip:           "192.168.1.1",
			expectStatus: http.StatusOK,
			numRequests:  20,
			limit:        rate.Every(time.Millisecond),
			burst:        20,
			sleep:        time.Millisecond,
		},
		{
			name:         "exceed rate limit per second",
			ip:           "192.168.1.1",
			expectStatus: http.StatusTooManyRequests,
			numRequests:  65,
			limit:        rate.Every(time.Millisecond),
			burst:        60,
			sleep:        0,
		},
		{
			name:         "ok within limit as limits refresh",
			ip:           "192.168.1.1",
			expectStatus: http.StatusOK,
			numRequests:  10,
			limit:        rate.Every(time.Millisecond),
			burst:        1,
			sleep:        time.Millisecond,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rl := NewRateLimiter(slog.Default(), IPAddressKeyFunc, tc.limit, tc.burst)

			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("test"))
			})
			handler := rl.Limit(testHandler)

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = tc.ip

			var rec *httptest.ResponseRecorder
			for i := 0; i < tc.numRequests; i++ {
				rec = httptest.NewRecorder()
				handler.ServeHTTP(rec, req)
				time.Sleep(tc.sleep)
			}

			assert.Equal(t, tc.expectStatus, rec.Code)
		})
	}
}

func TestRateLimiterSkipper(t *testing.T) {
	rl := NewRateLimiter(slog.Default(), IPAddressKeyFunc, rate.Limit(0), 0,
		WithSkipper(func(r *http.Request) bool { return r.URL.Path == "/healthz" }))

	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/limited", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
