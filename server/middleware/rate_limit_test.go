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

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func TestRateLimiter(t *testing.T) {
	tests := []struct {
		name         string
		remoteAddr   string
		expectStatus int
		numRequests  int
		sleep        time.Duration
		burst        int
		limit        rate.Limit
	}{
		{
			name:         "within burst",
			remoteAddr:   "192.168.1.1:5000",
			expectStatus: http.StatusOK,
			numRequests:  20,
			limit:        rate.Every(time.Hour),
			burst:        20,
		},
		{
			name:         "burst exhausted",
			remoteAddr:   "192.168.1.1:5000",
			expectStatus: http.StatusTooManyRequests,
			numRequests:  21,
			limit:        rate.Every(time.Hour),
			burst:        20,
		},
		{
			name:         "refills between requests",
			remoteAddr:   "10.0.0.7:1234",
			expectStatus: http.StatusOK,
			numRequests:  5,
			limit:        rate.Every(time.Millisecond),
			burst:        1,
			sleep:        5 * time.Millisecond,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rl := NewRateLimiter(slog.Default(), IPAddressKeyFunc, tc.limit, tc.burst)
			t.Cleanup(rl.Close)
			handler := rl.Limit(okHandler())

			var rec *httptest.ResponseRecorder
			for i := 0; i < tc.numRequests; i++ {
				req := httptest.NewRequest(http.MethodGet, "/api/v1/repos", nil)
				req.RemoteAddr = tc.remoteAddr
				rec = httptest.NewRecorder()
				handler.ServeHTTP(rec, req)
				time.Sleep(tc.sleep)
			}
			assert.Equal(t, tc.expectStatus, rec.Code)
		})
	}
}

func TestRateLimiterKeysByHost(t *testing.T) {
	rl := NewRateLimiter(slog.Default(), IPAddressKeyFunc, rate.Every(time.Hour), 1)
	t.Cleanup(rl.Close)
	handler := rl.Limit(okHandler())

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, send("10.1.1.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.1.1.1:2000"))
	assert.Equal(t, http.StatusOK, send("10.1.1.2:1000"))
}

func TestRateLimiterSkipper(t *testing.T) {
	rl := NewRateLimiter(slog.Default(), IPAddressKeyFunc, rate.Every(time.Hour), 1, WithSkipper(SkipPaths("/healthz")))
	t.Cleanup(rl.Close)
	handler := rl.Limit(okHandler())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
