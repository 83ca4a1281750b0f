package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/diagnosis/smartgate/pkg/logger"
	mw "github.com/diagnosis/smartgate/pkg/middleware"
	"github.com/diagnosis/smartgate/pkg/response"
	"github.com/diagnosis/smartgate/services/gateway/internal/proxy"
)

const apiPrefix = "/v1"

type Handlers struct {
	gate         *proxy.ServiceProxy
	notify       *proxy.ServiceProxy
	summary      *proxy.ServiceProxy
	maxBodyBytes int64
}

func New(gate, notify, summary *proxy.ServiceProxy, maxBodyBytes int64) *Handlers {
	return &Handlers{
		gate:         gate,
		notify:       notify,
		summary:      summary,
		maxBodyBytes: maxBodyBytes,
	}
}

func (h *Handlers) Gate(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.gate)
}

func (h *Handlers) Notify(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.notify)
}

func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.summary)
}

// proxyRequest buffers the body, so multipart uploads are forwarded intact,
// and strips the /v1 prefix before calling the service.
func (h *Handlers) proxyRequest(w http.ResponseWriter, r *http.Request, serviceProxy *proxy.ServiceProxy) {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large", response.CodeInvalidInput)
			return
		}
		response.BadRequest(w, "Failed to read request body")
		return
	}

	headers := make(http.Header)
	for key, values := range r.Header {
		if shouldCopyHeader(key) {
			headers[key] = values
		}
	}
	if ip := mw.RemoteIP(r); ip != "" {
		headers.Set("X-Forwarded-For", ip)
	}

	path := strings.TrimPrefix(r.URL.Path, apiPrefix)
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	resp, err := serviceProxy.ProxyRequest(r.Context(), r.Method, path, body, headers)
	if err != nil {
		logger.ErrorContext(r.Context(), "Service proxy error", "service", serviceProxy.Name(), "path", path, "error", err)
		response.WriteError(w, http.StatusServiceUnavailable, "Service unavailable", response.CodeBadGateway)
		return
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		if !shouldCopyHeader(key) || strings.HasPrefix(strings.ToLower(key), "access-control-") {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}

	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.ErrorContext(r.Context(), "Failed to copy response body", "error", err)
	}
}

var droppedHeaders = map[string]bool{
	"host":                true,
	"connection":          true,
	"upgrade":             true,
	"proxy-connection":    true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailers":            true,
	"transfer-encoding":   true,
	"keep-alive":          true,
	"content-length":      true,
	// The gateway is the edge: client-supplied forwarding headers are
	// dropped and X-Forwarded-For is rewritten from the peer address.
	"x-forwarded-for":  true,
	"x-real-ip":        true,
	"true-client-ip":   true,
	"forwarded":        true,
	"x-forwarded-host": true,
}

func shouldCopyHeader(key string) bool {
	return !droppedHeaders[strings.ToLower(key)]
}
