package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/diagnosis/smartgate/pkg/logger"
	"github.com/diagnosis/smartgate/pkg/response"
	"github.com/diagnosis/smartgate/services/notify/internal/relay"
)

const maxPayloadBytes = 64 << 10

type Handlers struct {
	relay *relay.Relay
	now   func() time.Time
}

func New(r *relay.Relay) *Handlers {
	return &Handlers{relay: r, now: time.Now}
}

// NotifyTelegram accepts an entry payload in any known shape and relays it
// to the chat.
func (h *Handlers) NotifyTelegram(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		response.BadRequest(w, "Could not read request body")
		return
	}

	event, err := relay.Normalize(body, h.now())
	if err != nil {
		response.BadRequest(w, "Invalid JSON payload")
		return
	}
	logger.DebugContext(r.Context(), "Relay payload received", "shapes", relay.Shapes(body))

	if !h.relay.Configured() {
		logger.ErrorContext(r.Context(), "Telegram configuration missing")
		response.JSON(w, http.StatusInternalServerError, map[string]string{"error": "Telegram configuration missing"})
		return
	}

	result, err := h.relay.Deliver(r.Context(), event)
	if err != nil {
		if errors.Is(err, relay.ErrNotConfigured) {
			response.JSON(w, http.StatusInternalServerError, map[string]string{"error": "Telegram configuration missing"})
			return
		}
		logger.ErrorContext(r.Context(), "Entry notification failed", "name", event.Name, "error", err)
		response.WriteErrorWithDetails(w, http.StatusBadGateway, "Failed to send Telegram message", response.CodeBadGateway, err.Error())
		return
	}

	logger.InfoContext(r.Context(), "Entry notification sent", "name", event.Name, "photo_delivered", result.PhotoDelivered)
	response.JSON(w, http.StatusOK, result)
}

// Preflight answers browser OPTIONS requests from any origin.
func Preflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type, x-api-key, x-request-id")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// AllowAnyOrigin sets the permissive CORS header on relay responses.
func AllowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}
