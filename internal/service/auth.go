// AuthService sits between the HTTP handlers and the storage/auth utilities:
//
//	SessionHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                      ↘ session.Store (live sessions)
//	                      ↘ TokenService (signed cookie token)
//
// KEY RESPONSIBILITIES:
//   - Validate and normalize signup/login input
//   - Create users and establish sessions
//   - Resolve a cookie token to a live session for the auth middleware
//
// A session exists in two places: the signed token the browser holds (which
// names the session ID) and the session.Store record (which holds the
// identity and expiry). Logout deletes the record, so a stolen token stops
// working immediately even though its signature is still valid.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/sakif/paper-digest/internal/apperror"
	"github.com/sakif/paper-digest/internal/auth"
	"github.com/sakif/paper-digest/internal/model"
	"github.com/sakif/paper-digest/internal/repository"
	"github.com/sakif/paper-digest/internal/session"
)

const (
	MinPasswordLength = 6

	// DefaultSessionTTL bounds every session; there is no refresh.
	DefaultSessionTTL = 24 * time.Hour
)

// invalidCredentials is returned for an unknown email and for a wrong
// password alike.
const invalidCredentials = "invalid email or password"

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - sessions   session.Store              → live session records
//   - tokens     *auth.TokenService         → sign/validate session tokens
//   - passwords  *auth.PasswordService      → hash/verify passwords
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	sessions  session.Store
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	ttl       time.Duration
	logger    *slog.Logger

	// dummyHash is compared against on the unknown-email login path so that
	// path costs the same as a wrong password.
	dummyHash string

	now func() time.Time
}

// NewAuthService wires an AuthService. A ttl ≤ 0 selects DefaultSessionTTL.
func NewAuthService(
	users repository.UserRepository,
	sessions session.Store,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	ttl time.Duration,
	logger *slog.Logger,
) (*AuthService, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	dummy, err := passwords.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("service/auth: preparing dummy hash: %w", err)
	}

	return &AuthService{
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		passwords: passwords,
		ttl:       ttl,
		logger:    logger,
		dummyHash: dummy,
		now:       time.Now,
	}, nil
}

// AuthResult bundles the identity, the stored session and the signed token
// so the handler can set the cookie and respond in one step.
type AuthResult struct {
	User    model.Identity
	Session *model.Session
	Token   string
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates a user and establishes a session for it.
//
// VALIDATION:
//   - email: trimmed and lower-cased, must be non-empty and contain "@"
//   - password: at least MinPasswordLength characters, at most
//     auth.MaxPasswordBytes bytes
//   - name: trimmed, defaults to the part of the email before "@"
//
// A normalized email that is already registered is a ConflictError.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)

	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "email address is invalid")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at most %d bytes", auth.MaxPasswordBytes))
	}
	if name == "" {
		name = email[:strings.Index(email, "@")]
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.Conflict("an account with this email already exists")
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user signed up", slog.String("userID", user.ID))

	return s.establish(ctx, user)
}

// Login verifies credentials and establishes a session.
//
// An unknown email and a wrong password produce the same Unauthorized error,
// and both paths run one hash comparison.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("", "email and password are required")
	}
	if len(password) > auth.MaxPasswordBytes {
		// Signup never accepts such a password, so it cannot match.
		return nil, apperror.Unauthorized(invalidCredentials)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/auth: looking up user: %w", err)
		}
		_ = s.passwords.Verify(s.dummyHash, password)
		return nil, apperror.Unauthorized(invalidCredentials)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("login rejected", slog.String("userID", user.ID))
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return s.establish(ctx, user)
}

// establish stores a fresh session for user and signs a token naming it.
func (s *AuthService) establish(ctx context.Context, user *model.User) (*AuthResult, error) {
	now := s.now().UTC()
	sess := &model.Session{
		ID:        uuid.NewString(),
		User:      user.Identity(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("service/auth: saving session: %w", err)
	}

	token, err := s.tokens.Generate(user.ID, sess.ID, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("service/auth: signing session token: %w", err)
	}

	return &AuthResult{User: sess.User, Session: sess, Token: token}, nil
}

// Logout deletes the session. Deleting a session that is already gone is
// not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("service/auth: deleting session: %w", err)
	}
	s.logger.Info("session ended", slog.String("sessionID", sessionID))
	return nil
}

// Authenticate resolves a token to its live session. A bad, revoked or
// expired token is the same Unauthorized error whatever the cause. A session
// store that cannot be reached is not the client's fault: that error is
// returned wrapped, without ErrUnauthorized, so the caller answers 500 and
// the client keeps its cookie.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.Session, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperror.Unauthorized("authentication required")
	}

	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, apperror.Unauthorized("authentication required")
		}
		s.logger.Error("session lookup failed",
			slog.String("sessionID", claims.SessionID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/auth: looking up session: %w", err)
	}

	if sess.User.ID != claims.UserID || sess.Expired(s.now()) {
		return nil, apperror.Unauthorized("authentication required")
	}

	return sess, nil
}

// CurrentUser hydrates the identity behind sess from the credential store.
// A session whose user no longer resolves is treated as unauthenticated.
func (s *AuthService) CurrentUser(ctx context.Context, sess *model.Session) (model.Identity, error) {
	user, err := s.users.GetUserByID(ctx, sess.User.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return model.Identity{}, apperror.Unauthorized("authentication required")
		}
		return model.Identity{}, fmt.Errorf("service/auth: loading user: %w", err)
	}
	return user.Identity(), nil
}
