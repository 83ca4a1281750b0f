package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/diagnosis/smartgate/pkg/response"
	"github.com/diagnosis/smartgate/services/gate/internal/domain"
	"github.com/google/uuid"
)

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, resp)
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, err := uuid.Parse(claims.Sub)
	if err != nil {
		response.Unauthorized(w, "Invalid token subject")
		return
	}

	profile, err := h.authService.Me(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, profile)
}
