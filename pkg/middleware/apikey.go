package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/diagnosis/smartgate/pkg/response"
)

// RequireAPIKey accepts the key from the X-API-Key header or the api_key
// query parameter. With no configured keys every request is rejected.
func RequireAPIKey(keys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				apiKey = r.URL.Query().Get("api_key")
			}
			if apiKey == "" {
				response.Unauthorized(w, "API key required")
				return
			}

			for _, key := range keys {
				if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Unauthorized(w, "Invalid API key")
		})
	}
}
