package http

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit rejects requests above the configured rate with 429. One global
// limiter is enough: seat contention is handled downstream by the ledger.
func RateLimit(log *slog.Logger, rps float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Warn("rate limit exceeded", "remote", r.RemoteAddr, "path", r.URL.Path)
				writeJSON(w, http.StatusTooManyRequests, errorResp{Error: "rate_limited", Message: "try again shortly"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
