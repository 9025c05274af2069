package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//   - Mapped to the HTTP status their domain error type calls for
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. The domain error type decides the status code
//  4. core.MapError supplies the user-facing message and support code
//  5. Technical error + context is logged with the request ID

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/crumbworks/sheetforge/internal/core"
	"github.com/crumbworks/sheetforge/internal/logging"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse is the JSON structure for API error responses. Issues is
// populated for validation failures so a client can fix the whole
// document in one round trip.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Action  string                 `json:"action,omitempty"`
	Code    string                 `json:"code"`
	Issues  []core.ValidationIssue `json:"issues,omitempty"`
	Address string                 `json:"address,omitempty"`
	Sheet   string                 `json:"sheet,omitempty"`
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	var (
		valErr  *core.ValidationError
		procErr *core.ProcessingError
		qryErr  *core.QueryError
	)
	switch {
	case errors.As(err, &valErr):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTemplateNotFound), errors.Is(err, core.ErrReportNotFound):
		return http.StatusNotFound
	case errors.As(err, &procErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &qryErr):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrTooManyCompositions):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the technical error and writes the JSON error
// response for it.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	logger.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	resp := ErrorResponse{
		Error:  userMsg.Message,
		Action: userMsg.Action,
		Code:   userMsg.Code,
	}

	var valErr *core.ValidationError
	if errors.As(err, &valErr) {
		resp.Issues = valErr.Issues
	}
	var procErr *core.ProcessingError
	if errors.As(err, &procErr) {
		resp.Sheet = procErr.Sheet
		resp.Address = procErr.Address
	}

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "30")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		logger.Error("error response encode failed", "error", encErr)
	}
}
