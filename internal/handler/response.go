package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every JSON error response has the same shape:
//   {"error": "validation_error", "message": "password must be at least 6 characters"}
//
// BROWSER NAVIGATIONS:
// A request that is not a JSON API call (a browser following a link or
// submitting a plain form) gets a 303 redirect to the client-rendered error
// page instead, carrying the same information as query parameters:
//   /error?type=not_found&code=404&message=...

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sakif/paper-digest/internal/apperror"
)

// ErrorPagePath is the client-rendered page non-JSON errors redirect to.
const ErrorPagePath = "/error"

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status must be set BEFORE the body is written; once Encode
// writes, header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// classify maps a domain error to an HTTP status, a machine-readable type and
// a client-safe message.
//
// errors.Is walks the whole chain, so
//
//	fmt.Errorf("service/auth: %w", apperror.Conflict(...))
//
// still maps to 409. Anything without an AppError is a generic 500; the raw
// error may contain SQL or file paths and never reaches the client.
func classify(err error) (status int, errorType, message string) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, "internal_error", "An internal error occurred"
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error", appErr.Message
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", appErr.Message
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found", appErr.Message
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict", appErr.Message
	}
	return http.StatusInternalServerError, "internal_error", "An internal error occurred"
}

// writeError sends err to the client: as JSON for API callers, as a redirect
// to the error page for browser navigations.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, errorType, message := classify(err)

	if !wantsJSON(r) {
		redirectToErrorPage(w, r, status, errorType, message)
		return
	}

	writeJSON(w, status, ErrorResponse{Error: errorType, Message: message})
}

// wantsJSON reports whether r expects a JSON body back. API paths always do;
// elsewhere the Accept and Content-Type headers decide.
func wantsJSON(r *http.Request) bool {
	p := r.URL.Path
	for _, prefix := range []string{"/api/", "/sessions/"} {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	if p == "/session" || p == "/health" {
		return true
	}

	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func redirectToErrorPage(w http.ResponseWriter, r *http.Request, status int, errorType, message string) {
	q := url.Values{}
	q.Set("type", errorType)
	q.Set("code", strconv.Itoa(status))
	q.Set("message", message)
	http.Redirect(w, r, ErrorPagePath+"?"+q.Encode(), http.StatusSeeOther)
}
