package handler

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sakif/paper-digest/internal/apperror"
)

// HandleNotFound answers unknown routes: JSON 404 for API callers, a
// redirect to the error page for browsers.
func HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, &apperror.AppError{
		Err:     apperror.ErrNotFound,
		Message: "no page at " + r.URL.Path,
	})
}

// HandleMethodNotAllowed answers a known path hit with the wrong method.
func HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	status := http.StatusMethodNotAllowed
	message := r.Method + " is not allowed on " + r.URL.Path

	if !wantsJSON(r) {
		redirectToErrorPage(w, r, status, "method_not_allowed", message)
		return
	}
	writeJSON(w, status, ErrorResponse{Error: "method_not_allowed", Message: message})
}

// ErrorPage serves the page non-JSON errors redirect to. It serves
// error.html from staticDir when present and a plain-text fallback
// otherwise, so a redirect always lands on something.
func ErrorPage(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if staticDir != "" {
			page := filepath.Join(staticDir, "error.html")
			if info, err := os.Stat(page); err == nil && !info.IsDir() {
				http.ServeFile(w, r, page)
				return
			}
		}

		q := r.URL.Query()
		code, err := strconv.Atoi(q.Get("code"))
		if err != nil || code < 400 || code > 599 {
			code = http.StatusInternalServerError
		}
		message := q.Get("message")
		if message == "" {
			message = http.StatusText(code)
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(code)
		_, _ = fmt.Fprintf(w, "Error %d: %s\n", code, message)
	}
}
