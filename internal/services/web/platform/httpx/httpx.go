// Package httpx provides HTTP response and middleware helpers used by the
// web service.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"strings"

	apperrors "github.com/keepsakehq/keepsake/internal/platform/errors"
)

// Middleware wraps an HTTP handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middleware in declaration order.
func Chain(handler http.Handler, middleware ...Middleware) http.Handler {
	if handler == nil {
		handler = http.NotFoundHandler()
	}
	wrapped := handler
	for idx := len(middleware) - 1; idx >= 0; idx-- {
		if middleware[idx] == nil {
			continue
		}
		wrapped = middleware[idx](wrapped)
	}
	return wrapped
}

// RecoverPanic converts panics into HTTP 500 responses.
func RecoverPanic() Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					path := "-"
					method := "-"
					if r != nil {
						path = strings.TrimSpace(r.URL.Path)
						method = strings.TrimSpace(r.Method)
					}
					log.Printf(
						"panic recovered method=%s path=%s panic=%v stack=%s",
						method,
						path,
						recovered,
						strings.TrimSpace(string(debug.Stack())),
					)
					w.WriteHeader(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WriteJSON writes a JSON response with the provided status code.
func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return fmt.Errorf("response writer is required")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError renders a domain error as its mapped HTTP status with a JSON
// body carrying the machine-readable code. Errors without a domain code
// render as opaque 500s so internal detail never leaks to clients.
func WriteError(w http.ResponseWriter, err error) {
	if w == nil {
		return
	}
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		_ = WriteJSON(w, domainErr.Code.HTTPStatus(), errorBody{Error: errorDetail{
			Code:    string(domainErr.Code),
			Message: domainErr.Message,
		}})
		return
	}
	log.Printf("internal error: %v", err)
	_ = WriteJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{
		Code:    string(apperrors.CodeUnknown),
		Message: "internal error",
	}})
}

// WriteBadRequest renders a 400 with a request-shaped error code.
func WriteBadRequest(w http.ResponseWriter, message string) {
	_ = WriteJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
		Code:    "REQUEST_INVALID",
		Message: message,
	}})
}

// DecodeJSON decodes a bounded JSON request body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	if r == nil || r.Body == nil {
		return fmt.Errorf("request body is required")
	}
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decode json body: %w", err)
	}
	return nil
}
