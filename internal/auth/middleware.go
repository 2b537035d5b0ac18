package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/paper-digest/internal/apperror"
	"github.com/sakif/paper-digest/internal/model"
)

// CookieName is the HttpOnly cookie that carries the session token.
const CookieName = "session"

// unauthorizedBody is the uniform response for every rejected request.
// It never says whether the token was missing, malformed, expired or revoked.
const unauthorizedBody = `{"error":"unauthorized","message":"authentication required"}`

// internalErrorBody answers when the session could not be checked at all,
// for instance because the session store is down.
const internalErrorBody = `{"error":"internal_error","message":"An internal error occurred"}`

// contextKey is unexported so no other package can read or shadow the value.
type contextKey string

const sessionKey contextKey = "session"

// Authenticator resolves a raw token to a live session.
// service.AuthService satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Session, error)
}

// RequireAuth rejects requests without a live session with 401 and stores
// the session in the request context otherwise. An Authenticator error that
// does not wrap apperror.ErrUnauthorized is an outage and answers 500.
//
// The token is read from the "session" cookie, or from an
// "Authorization: Bearer <token>" header for non-browser clients.
func RequireAuth(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				writeUnauthorized(w)
				return
			}

			session, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, apperror.ErrUnauthorized) {
					writeUnauthorized(w)
				} else {
					writeBody(w, http.StatusInternalServerError, internalErrorBody)
				}
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session stored by RequireAuth.
func SessionFromContext(ctx context.Context) (*model.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*model.Session)
	return s, ok && s != nil
}

// WithSession returns a copy of ctx carrying s. Handlers under RequireAuth
// never need it; tests use it to call handlers directly.
func WithSession(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// TokenFromRequest extracts the session token from the cookie or the
// Authorization header. Returns "" when neither is present.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter) {
	writeBody(w, http.StatusUnauthorized, unauthorizedBody)
}

func writeBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
