package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/paper-digest/internal/apperror"
	"github.com/sakif/paper-digest/internal/auth"
	"github.com/sakif/paper-digest/internal/model"
	"github.com/sakif/paper-digest/internal/service"
)

// AfterAuthRedirect is where the client goes after signup or login.
const AfterAuthRedirect = "/"

const maxCredentialsBody = 64 << 10

// SessionHandler serves signup, login, logout and the current-session lookup.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignup → create an account, set the session cookie
//   - HandleLogin  → check credentials, set the session cookie
//   - HandleLogout → delete the session, clear the cookie
//   - HandleMe     → return the identity of the current session
//
// The business rules (normalization, password policy, uniform login
// failures) live in service.AuthService; this layer only speaks HTTP.
type SessionHandler struct {
	auth         *service.AuthService
	secureCookie bool
	logger       *slog.Logger
}

// NewSessionHandler creates a SessionHandler. secureCookie should be true
// whenever the app is served over HTTPS.
func NewSessionHandler(authService *service.AuthService, secureCookie bool, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		auth:         authService,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	User     model.Identity `json:"user"`
	Redirect string         `json:"redirect"`
}

// HandleSignup creates a user and logs it in.
//
// HTTP: POST /sessions/signup
// Body: {"name": "...", "email": "...", "password": "..."}
// 201 on success, 400 on invalid input, 409 when the email is taken.
func (h *SessionHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.auth.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.logFailure("signup failed", err)
		writeError(w, r, err)
		return
	}

	h.setSessionCookie(w, res.Token, res.Session.ExpiresAt)
	writeJSON(w, http.StatusCreated, AuthResponse{User: res.User, Redirect: AfterAuthRedirect})
}

// HandleLogin establishes a session for existing credentials.
//
// HTTP: POST /sessions/login
// Body: {"email": "...", "password": "..."}
// A wrong password and an unknown email both answer 401 with the same body.
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logFailure("login failed", err)
		writeError(w, r, err)
		return
	}

	h.setSessionCookie(w, res.Token, res.Session.ExpiresAt)
	writeJSON(w, http.StatusOK, AuthResponse{User: res.User, Redirect: AfterAuthRedirect})
}

// HandleLogout deletes the caller's session and clears the cookie.
//
// HTTP: POST /sessions/logout
// Auth: Required
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthorized("authentication required"))
		return
	}

	if err := h.auth.Logout(r.Context(), sess.ID); err != nil {
		h.logger.Error("logout failed",
			slog.String("sessionID", sess.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // tells the browser to delete the cookie immediately
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleMe returns the identity bound to the current session, read back
// from the credential store by user ID.
//
// HTTP: GET /session
// Auth: Required
func (h *SessionHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthorized("authentication required"))
		return
	}

	user, err := h.auth.CurrentUser(r.Context(), sess)
	if err != nil {
		if !errors.Is(err, apperror.ErrUnauthorized) {
			h.logger.Error("loading current user failed",
				slog.String("userID", sess.User.ID),
				slog.String("error", err.Error()),
			)
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]model.Identity{"user": user})
}

func (h *SessionHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxCredentialsBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("invalid credentials body", slog.String("error", err.Error()))
		writeError(w, r, apperror.ValidationFailed("", "request body must be a JSON object"))
		return false
	}
	return true
}

// setSessionCookie stores the signed session token in an HttpOnly cookie.
// HttpOnly keeps it away from JavaScript; SameSite=Lax keeps it off
// cross-site POSTs.
func (h *SessionHandler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// logFailure logs expected client errors at Info and everything else at
// Error.
func (h *SessionHandler) logFailure(msg string, err error) {
	status, _, _ := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, slog.String("error", err.Error()))
		return
	}
	h.logger.Info(msg, slog.Int("status", status), slog.String("reason", err.Error()))
}
