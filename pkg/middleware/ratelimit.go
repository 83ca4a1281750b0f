package middleware

import (
	"net/http"
	"time"

	"github.com/diagnosis/smartgate/pkg/response"
	"github.com/go-chi/httprate"
)

// RateLimitByIP limits requests per client per minute. clientIP decides who
// the client is; True-Client-IP and X-Real-IP are never consulted. A
// non-positive limit disables the check.
func RateLimitByIP(perMinute int, clientIP ClientIPFunc) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return clientIP(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			response.RateLimit(w, "Too many check-ins from this address, please wait a minute")
		}),
	)
}
