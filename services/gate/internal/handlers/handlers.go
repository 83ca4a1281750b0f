package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/diagnosis/smartgate/pkg/auth"
	"github.com/diagnosis/smartgate/pkg/config"
	"github.com/diagnosis/smartgate/pkg/logger"
	"github.com/diagnosis/smartgate/pkg/response"
	"github.com/diagnosis/smartgate/services/gate/internal/domain"
	"github.com/diagnosis/smartgate/services/gate/internal/media"
	"github.com/diagnosis/smartgate/services/gate/internal/service"
)

type claimsKey struct{}

type Handlers struct {
	checkInService service.CheckInService
	entryService   service.EntryService
	authService    service.AuthService
	config         *config.Config
}

func New(checkIns service.CheckInService, entries service.EntryService, authService service.AuthService, cfg *config.Config) *Handlers {
	return &Handlers{
		checkInService: checkIns,
		entryService:   entries,
		authService:    authService,
		config:         cfg,
	}
}

// RequireRole admits staff tokens carrying exactly the given role. An empty
// role admits any valid staff token. Browsers get a redirect instead of JSON.
func (h *Handlers) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				deny(w, r, http.StatusUnauthorized, "Missing or invalid authorization header", "/login")
				return
			}

			claims, err := auth.Parse(strings.TrimPrefix(authHeader, "Bearer "), h.config.Auth.JWTSecret)
			if err != nil {
				deny(w, r, http.StatusUnauthorized, "Invalid or expired token", "/login")
				return
			}

			if role != "" && claims.Role != role {
				logger.WarnContext(r.Context(), "Role check failed", "profile_id", claims.Sub, "role", claims.Role, "required", role)
				deny(w, r, http.StatusForbidden, "Insufficient permissions", "/")
				return
			}

			ctx := context.WithValue(r.Context(), logger.ProfileIDKey, claims.Sub)
			ctx = context.WithValue(ctx, claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, status int, message, redirect string) {
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, redirect, http.StatusSeeOther)
		return
	}
	code := response.CodeUnauthorized
	if status == http.StatusForbidden {
		code = response.CodeForbidden
	}
	response.Write(w, status, response.ErrorResponse{Error: message, Code: code, Redirect: redirect})
}

func getClaims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(claimsKey{}).(*auth.Claims); ok {
		return claims
	}
	return nil
}

// writeServiceError maps service errors onto the JSON error envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		response.FieldError(w, verr.Field, verr.Message)
	case errors.Is(err, media.ErrUploadFailed):
		response.WriteError(w, http.StatusBadGateway, "Photo upload failed, please try again", response.CodeUploadFailed)
	case errors.Is(err, service.ErrPersistFailed):
		response.InternalError(w, "Failed to save entry")
	case errors.Is(err, service.ErrEntryNotFound):
		response.NotFound(w, "Entry not found")
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(w, "Invalid email or password")
	default:
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		response.InternalError(w, "Internal server error")
	}
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}

// formBool accepts the values browsers and scripts send for a checkbox.
func formBool(r *http.Request, key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.FormValue(key))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
