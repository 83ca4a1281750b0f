package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/diagnosis/smartgate/pkg/response"
	"github.com/diagnosis/smartgate/services/gate/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ListEntries serves both the guard and admin dashboards.
func (h *Handlers) ListEntries(w http.ResponseWriter, r *http.Request) {
	filter, ok := domain.ParseEntryFilter(r.URL.Query().Get("filter"))
	if !ok {
		response.BadRequest(w, "Invalid filter parameter")
		return
	}
	limit, offset := parsePagination(r)

	entries, err := h.entryService.ListEntries(r.Context(), filter, r.URL.Query().Get("q"), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"limit":   limit,
		"offset":  offset,
	})
}

func (h *Handlers) ExportEntries(w http.ResponseWriter, r *http.Request) {
	filter, ok := domain.ParseEntryFilter(r.URL.Query().Get("filter"))
	if !ok {
		response.BadRequest(w, "Invalid filter parameter")
		return
	}

	filename, data, err := h.entryService.ExportCSV(r.Context(), filter, r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.entryService.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, stats)
}

func (h *Handlers) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "Invalid entry ID")
		return
	}

	if err := h.entryService.DeleteEntry(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
