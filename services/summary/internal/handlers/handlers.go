package handlers

import (
	"errors"
	"net/http"

	"github.com/diagnosis/smartgate/pkg/logger"
	"github.com/diagnosis/smartgate/pkg/response"
	"github.com/diagnosis/smartgate/services/summary/internal/domain"
	"github.com/diagnosis/smartgate/services/summary/internal/service"
	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	summaries service.SummaryService
	live      *service.LiveTally
}

func New(summaries service.SummaryService, live *service.LiveTally) *Handlers {
	return &Handlers{summaries: summaries, live: live}
}

// Trigger sends a summary on demand, outside the cron schedule.
func (h *Handlers) Trigger(w http.ResponseWriter, r *http.Request) {
	period, ok := domain.ParsePeriod(chi.URLParam(r, "period"))
	if !ok {
		response.BadRequest(w, "Period must be daily, weekly or monthly")
		return
	}

	report, err := h.summaries.Send(r.Context(), period)
	if err != nil {
		if errors.Is(err, service.ErrChatNotConfigured) {
			response.InternalError(w, "Telegram configuration missing")
			return
		}
		logger.ErrorContext(r.Context(), "Manual summary failed", "period", period, "error", err)
		response.WriteErrorWithDetails(w, http.StatusBadGateway, "Failed to send summary", response.CodeBadGateway, err.Error())
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"period": report.Period,
		"counts": report.Counts,
	})
}

func (h *Handlers) Live(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.live.Snapshot())
}
