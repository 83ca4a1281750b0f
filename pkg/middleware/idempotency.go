package middleware

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/diagnosis/smartgate/pkg/logger"
	"github.com/diagnosis/smartgate/pkg/response"
)

const (
	idempotencyTTL = 24 * time.Hour
	// A claim left by a crashed request frees the key after this long.
	idempotencyPendingTTL = 2 * time.Minute
)

// IdempotencyStore keeps one response per hashed key. Claim must be atomic:
// of two concurrent callers with the same key exactly one gets true.
type IdempotencyStore interface {
	Claim(ctx context.Context, keyHash string, ttl time.Duration) (claimed bool, err error)
	Lookup(ctx context.Context, keyHash string) (status int, body []byte, done bool, err error)
	Complete(ctx context.Context, keyHash string, status int, body []byte, ttl time.Duration) error
	Release(ctx context.Context, keyHash string) error
}

// Idempotency runs a POST at most once per Idempotency-Key and client. A
// repeat after success replays the stored response; a repeat while the first
// request is still running gets 409. Failed requests release the key so the
// client can retry.
func Idempotency(store IdempotencyStore, clientIP ClientIPFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}

			sum := sha256.Sum256([]byte(r.URL.Path + "\x00" + clientIP(r) + "\x00" + key))
			keyHash := fmt.Sprintf("%x", sum)
			ctx := r.Context()

			claimed, err := store.Claim(ctx, keyHash, idempotencyPendingTTL)
			if err != nil {
				logger.WarnContext(ctx, "Idempotency claim failed, running request unguarded", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if !claimed {
				status, body, done, err := store.Lookup(ctx, keyHash)
				switch {
				case err != nil:
					logger.WarnContext(ctx, "Idempotency lookup failed", "error", err)
					response.InternalError(w, "Could not check Idempotency-Key")
				case done:
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("Idempotent-Replayed", "true")
					w.WriteHeader(status)
					w.Write(body)
				default:
					response.WriteError(w, http.StatusConflict, "A request with this Idempotency-Key is already in progress", "IDEMPOTENCY_CONFLICT")
				}
				return
			}

			recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(recorder, r)

			// The client may have gone away; the outcome still has to be recorded.
			storeCtx := context.WithoutCancel(ctx)
			if recorder.statusCode >= 200 && recorder.statusCode < 300 {
				if err := store.Complete(storeCtx, keyHash, recorder.statusCode, recorder.body, idempotencyTTL); err != nil {
					logger.WarnContext(ctx, "Failed to store idempotent response", "error", err)
				}
				return
			}
			if err := store.Release(storeCtx, keyHash); err != nil {
				logger.WarnContext(ctx, "Failed to release idempotency key", "error", err)
			}
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       []byte
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(body []byte) (int, error) {
	r.body = append(r.body, body...)
	return r.ResponseWriter.Write(body)
}
