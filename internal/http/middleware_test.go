package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/lab-booking/internal/application"
)

type sessionValidatorStub struct {
	principal application.Principal
	err       error
	token     string
}

func (s *sessionValidatorStub) Authenticate(ctx context.Context, token string) (application.Principal, error) {
	s.token = token
	if s.err != nil {
		return application.Principal{}, s.err
	}
	return s.principal, nil
}

func TestRequireSession_RejectsMissingToken(t *testing.T) {
	t.Parallel()

	middleware := RequireSession(&sessionValidatorStub{}, nil)
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a session")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireSession_RejectsInvalidSessions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
	}{
		{name: "unknown token", err: application.ErrInvalidCredentials},
		{name: "expired", err: application.ErrSessionExpired},
		{name: "revoked", err: application.ErrSessionRevoked},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			middleware := RequireSession(&sessionValidatorStub{err: tc.err}, nil)
			handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run with an invalid session")
			}))

			req := httptest.NewRequest(http.MethodGet, "/events", nil)
			req.Header.Set("Authorization", "Bearer token-1")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestRequireSession_StoresPrincipal(t *testing.T) {
	t.Parallel()

	stub := &sessionValidatorStub{principal: application.Principal{UserID: "user-1", IsValidator: true}}
	middleware := RequireSession(stub, nil)

	var seen application.Principal
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "cookie-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected handler to run, got %d", rec.Code)
	}
	if stub.token != "cookie-token" {
		t.Fatalf("expected cookie token to be forwarded, got %q", stub.token)
	}
	if seen.UserID != "user-1" || !seen.IsValidator {
		t.Fatalf("unexpected principal %+v", seen)
	}
}

func TestRequireSession_PrefersAuthorizationHeader(t *testing.T) {
	t.Parallel()

	stub := &sessionValidatorStub{principal: application.Principal{UserID: "user-1"}}
	handler := RequireSession(stub, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "cookie-token"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if stub.token != "header-token" {
		t.Fatalf("expected the bearer token to win, got %q", stub.token)
	}
}

func TestRequestLogger_PropagatesScopedLogger(t *testing.T) {
	t.Parallel()

	var sawLogger bool
	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLogger = LoggerFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !sawLogger {
		t.Fatal("expected a request scoped logger in the context")
	}
}
