package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/lab-booking/internal/persistence"
)

type userRepoStub struct {
	users map[string]persistence.User
}

func newUserRepoStub(users ...persistence.User) *userRepoStub {
	stub := &userRepoStub{users: make(map[string]persistence.User)}
	for _, user := range users {
		stub.users[user.ID] = user
	}
	return stub
}

func (s *userRepoStub) CreateUser(ctx context.Context, user persistence.User) error {
	if _, ok := s.users[user.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.users[user.ID] = user
	return nil
}

func (s *userRepoStub) UpdateUser(ctx context.Context, user persistence.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.users[user.ID] = user
	return nil
}

func (s *userRepoStub) GetUser(ctx context.Context, id string) (persistence.User, error) {
	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (s *userRepoStub) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (s *userRepoStub) ListUsers(ctx context.Context) ([]persistence.User, error) {
	out := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userRepoStub) DeleteUser(ctx context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

type sessionRepoStub struct {
	sessions map[string]persistence.Session
}

func newSessionRepoStub() *sessionRepoStub {
	return &sessionRepoStub{sessions: make(map[string]persistence.Session)}
}

func (s *sessionRepoStub) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	s.sessions[session.Token] = session
	return session, nil
}

func (s *sessionRepoStub) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (s *sessionRepoStub) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	if session.RevokedAt == nil {
		session.RevokedAt = &revokedAt
		s.sessions[token] = session
	}
	return session, nil
}

func (s *sessionRepoStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	for token, session := range s.sessions {
		if session.ExpiresAt.Before(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}

func seedUser(t *testing.T, email, password string, validator bool) persistence.User {
	t.Helper()
	hash, err := CreatePasswordHash(password, DefaultArgon2idParams)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return persistence.User{
		ID:           "user-" + email,
		Email:        email,
		DisplayName:  email,
		PasswordHash: hash,
		IsValidator:  validator,
	}
}

func TestAuthService_Login_IssuesSession(t *testing.T) {
	t.Parallel()

	users := newUserRepoStub(seedUser(t, "owner@lab.example", "correct horse", false))
	sessions := newSessionRepoStub()
	svc := NewAuthService(users, sessions, nil, sequentialIDs("auth"), fixedClock(t), time.Hour)

	result, err := svc.Login(context.Background(), LoginParams{Email: "Owner@lab.example", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.Session.Token == "" {
		t.Fatal("expected a session token")
	}
	if !result.Session.ExpiresAt.Equal(fixedClock(t)().Add(time.Hour)) {
		t.Fatalf("expected one hour TTL, got %v", result.Session.ExpiresAt)
	}
}

func TestAuthService_Login_RejectsBadCredentials(t *testing.T) {
	t.Parallel()

	users := newUserRepoStub(seedUser(t, "owner@lab.example", "correct horse", false))
	svc := NewAuthService(users, newSessionRepoStub(), nil, sequentialIDs("auth"), fixedClock(t), time.Hour)

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "owner@lab.example", password: "battery staple"},
		{name: "unknown email", email: "ghost@lab.example", password: "correct horse"},
		{name: "empty password", email: "owner@lab.example", password: ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.Login(context.Background(), LoginParams{Email: tc.email, Password: tc.password})
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestAuthService_Authenticate_ResolvesPrincipal(t *testing.T) {
	t.Parallel()

	user := seedUser(t, "operator@lab.example", "correct horse", true)
	users := newUserRepoStub(user)
	sessions := newSessionRepoStub()
	svc := NewAuthService(users, sessions, nil, sequentialIDs("auth"), fixedClock(t), time.Hour)

	result, err := svc.Login(context.Background(), LoginParams{Email: user.Email, Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	principal, err := svc.Authenticate(context.Background(), result.Session.Token)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if principal.UserID != user.ID || !principal.IsValidator {
		t.Fatalf("unexpected principal %+v", principal)
	}
}

func TestAuthService_Authenticate_ExpiredAndRevoked(t *testing.T) {
	t.Parallel()

	user := seedUser(t, "owner@lab.example", "correct horse", false)
	users := newUserRepoStub(user)
	sessions := newSessionRepoStub()
	now := fixedClock(t)

	expired := persistence.Session{ID: "s-1", UserID: user.ID, Token: "expired-token", ExpiresAt: now().Add(-time.Minute)}
	if _, err := sessions.CreateSession(context.Background(), expired); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	revokedAt := now().Add(-time.Minute)
	revoked := persistence.Session{ID: "s-2", UserID: user.ID, Token: "revoked-token", ExpiresAt: now().Add(time.Hour), RevokedAt: &revokedAt}
	if _, err := sessions.CreateSession(context.Background(), revoked); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	svc := NewAuthService(users, sessions, nil, sequentialIDs("auth"), now, time.Hour)

	if _, err := svc.Authenticate(context.Background(), "expired-token"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "revoked-token"); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "unknown-token"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Logout_RevokesSession(t *testing.T) {
	t.Parallel()

	user := seedUser(t, "owner@lab.example", "correct horse", false)
	users := newUserRepoStub(user)
	sessions := newSessionRepoStub()
	svc := NewAuthService(users, sessions, nil, sequentialIDs("auth"), fixedClock(t), time.Hour)

	result, err := svc.Login(context.Background(), LoginParams{Email: user.Email, Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if err := svc.Logout(context.Background(), result.Session.Token); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), result.Session.Token); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked after logout, got %v", err)
	}

	if err := svc.Logout(context.Background(), "unknown-token"); err != nil {
		t.Fatalf("expected unknown token logout to be a no-op, got %v", err)
	}
}
