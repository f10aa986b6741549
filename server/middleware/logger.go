package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// RequestObserver receives one call per served request.
type RequestObserver interface {
	ObserveRequest(route string, status int, elapsed time.Duration)
}

type routeKey struct{}

// SetRoute records the matched route pattern for the request being logged.
func SetRoute(ctx context.Context, pattern string) {
	if slot, ok := ctx.Value(routeKey{}).(*string); ok {
		*slot = pattern
	}
}

// WithLogger logs each request once it completes and reports it to observer,
// which may be nil.
func WithLogger(logger *slog.Logger, observer RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := wrap(w)
			route := "unmatched"
			next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), routeKey{}, &route)))
			elapsed := time.Since(start)

			level := slog.LevelInfo
			if rw.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", rw.status,
				"duration", elapsed,
				"request_id", RequestID(r.Context()),
			)
			if observer != nil {
				observer.ObserveRequest(route, rw.status, elapsed)
			}
		})
	}
}
