package response

import (
	"encoding/json"
	"net/http"

	"github.com/diagnosis/smartgate/pkg/logger"
)

// ErrorResponse is the JSON error envelope shared by every service.
type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Details  string `json:"details,omitempty"`
	Field    string `json:"field,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeUploadFailed  = "UPLOAD_FAILED"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeRateLimit     = "RATE_LIMIT_EXCEEDED"
	CodeInternalError = "INTERNAL_ERROR"
	CodeBadGateway    = "BAD_GATEWAY"
)

func JSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func Write(w http.ResponseWriter, statusCode int, resp ErrorResponse) {
	JSON(w, statusCode, resp)
}

func WriteError(w http.ResponseWriter, statusCode int, message, code string) {
	Write(w, statusCode, ErrorResponse{Error: message, Code: code})
}

func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, message, code, details string) {
	Write(w, statusCode, ErrorResponse{Error: message, Code: code, Details: details})
}

// FieldError reports a validation failure tied to one form field.
func FieldError(w http.ResponseWriter, field, message string) {
	Write(w, http.StatusBadRequest, ErrorResponse{Error: message, Code: CodeInvalidInput, Field: field})
}

func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, CodeForbidden)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}

func RateLimit(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message, CodeRateLimit)
}
