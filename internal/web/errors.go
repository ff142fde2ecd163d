package web

// errors.go turns service errors into responses. Every error is logged with
// its technical text and the request id; clients get the coded user
// message from core.MapError, as JSON for /api routes and as a page
// otherwise.

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/datadonation/internal/core"
	"github.com/JonMunkholm/datadonation/internal/donation"
	"github.com/JonMunkholm/datadonation/internal/logging"
	"github.com/JonMunkholm/datadonation/internal/profile"
	"github.com/JonMunkholm/datadonation/internal/review"
	"github.com/JonMunkholm/datadonation/internal/web/templates"
	"github.com/JonMunkholm/datadonation/internal/workbook"
)

// ErrorResponse is the JSON body of API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var errBadRequest = errors.New("invalid request body")

// statusFor picks the HTTP status of a service error.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrFileTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrNoFile), errors.Is(err, workbook.ErrCannotLoad),
		errors.Is(err, profile.ErrUnknownProfile), errors.Is(err, review.ErrUnknownSheet),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, review.ErrSessionNotFound), errors.Is(err, donation.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	if wantsJSON(r) {
		writeJSON(w, status, ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
		return
	}
	s.render(w, r, status, templates.ErrorPage(s.copy, templates.ErrorParams{
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}))
}

// wantsJSON reports whether the client expects a JSON error.
func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
