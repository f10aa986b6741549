package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// WithAPIToken rejects requests whose bearer token does not match token.
// An empty token disables the check. Requests matched by skip pass through.
func WithAPIToken(token string, logger *slog.Logger, skip Skipper) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip != nil && skip(r) {
				next.ServeHTTP(w, r)
				return
			}
			got := ExtractBearerToken(r.Header.Get("Authorization"))
			if got == "" {
				http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				logger.WarnContext(r.Context(), "invalid api token", "remote_addr", r.RemoteAddr, "request_id", RequestID(r.Context()))
				http.Error(w, "invalid api token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
