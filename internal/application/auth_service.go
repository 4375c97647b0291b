package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/lab-booking/internal/persistence"
)

// SessionRepository captures the persistence interactions for sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error)
	GetSession(ctx context.Context, token string) (persistence.Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// AuthService issues and verifies opaque session tokens backed by argon2id
// password hashes. Tokens expire after a fixed TTL and can be revoked.
type AuthService struct {
	users       UserRepository
	sessions    SessionRepository
	logger      *slog.Logger
	idGenerator func() string
	now         func() time.Time
	sessionTTL  time.Duration
}

// NewAuthService wires dependencies for authentication operations.
func NewAuthService(users UserRepository, sessions SessionRepository, logger *slog.Logger, idGenerator func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 12 * time.Hour
	}
	return &AuthService{
		users:       users,
		sessions:    sessions,
		logger:      defaultLogger(logger),
		idGenerator: idGenerator,
		now:         now,
		sessionTTL:  sessionTTL,
	}
}

// Login verifies credentials and issues a fresh session. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (LoginResult, error) {
	if s == nil || s.users == nil || s.sessions == nil {
		return LoginResult{}, fmt.Errorf("auth service not configured")
	}
	logger := serviceLogger(ctx, s.logger, "auth", "login")

	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" || params.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			logger.WarnContext(ctx, "login failed", "error_kind", "invalid_credentials")
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, mapRepoError(err)
	}

	if err := VerifyPassword(user.PasswordHash, params.Password); err != nil {
		logger.WarnContext(ctx, "login failed", "user_id", user.ID, "error_kind", ErrorKind(ErrInvalidCredentials))
		return LoginResult{}, ErrInvalidCredentials
	}

	now := s.now()
	session := persistence.Session{
		ID:        s.idGenerator(),
		UserID:    user.ID,
		Token:     s.idGenerator(),
		ExpiresAt: now.Add(s.sessionTTL),
	}
	stored, err := s.sessions.CreateSession(ctx, session)
	if err != nil {
		return LoginResult{}, mapRepoError(err)
	}

	logger.InfoContext(ctx, "login succeeded", "user_id", user.ID)
	return LoginResult{
		User:    fromStoredUser(user),
		Session: fromStoredSession(stored),
	}, nil
}

// Authenticate resolves a session token into the acting principal.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Principal, error) {
	if s == nil || s.users == nil || s.sessions == nil {
		return Principal{}, fmt.Errorf("auth service not configured")
	}
	if token == "" {
		return Principal{}, ErrInvalidCredentials
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, mapRepoError(err)
	}
	if session.RevokedAt != nil {
		return Principal{}, ErrSessionRevoked
	}
	if !s.now().Before(session.ExpiresAt) {
		return Principal{}, ErrSessionExpired
	}

	user, err := s.users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, mapRepoError(err)
	}
	return Principal{UserID: user.ID, IsValidator: user.IsValidator}, nil
}

// Logout revokes the presented session. Revoking an unknown token is not
// an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s == nil || s.sessions == nil {
		return fmt.Errorf("auth service not configured")
	}
	if token == "" {
		return nil
	}
	if _, err := s.sessions.RevokeSession(ctx, token, s.now()); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil
		}
		return mapRepoError(err)
	}
	return nil
}

// PurgeExpiredSessions removes sessions past their expiry. Intended for a
// periodic housekeeping call from the composition root.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) error {
	if s == nil || s.sessions == nil {
		return fmt.Errorf("auth service not configured")
	}
	return mapRepoError(s.sessions.DeleteExpiredSessions(ctx, s.now()))
}

func fromStoredSession(record persistence.Session) Session {
	return Session{
		ID:        record.ID,
		UserID:    record.UserID,
		Token:     record.Token,
		ExpiresAt: record.ExpiresAt,
		RevokedAt: record.RevokedAt,
	}
}
