package http

import (
	"net/http"

	"golang.org/x/time/rate"
)

// throttle applies a token-bucket limit across all requests. The surface
// serves precomputed tables, so a single shared limiter is enough.
func throttle(rps float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
