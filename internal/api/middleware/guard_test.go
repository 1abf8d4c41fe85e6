package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/futurefundi/portal/internal/core/domain"
	"github.com/futurefundi/portal/internal/core/ports"
	"github.com/futurefundi/portal/internal/core/session"
)

const testCookie = "portal_session"

// stubVerifier accepts exactly the tokens it knows.
type stubVerifier map[string]domain.Role

func (v stubVerifier) VerifyAccess(token string) (*ports.AccessClaims, error) {
	role, ok := v[token]
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	return &ports.AccessClaims{UserID: "u-1", Role: role}, nil
}

type stubAuth struct {
	refreshFn func(ctx context.Context, refresh string) (*ports.AuthResult, error)
}

func (s *stubAuth) Login(context.Context, string, string) (*ports.AuthResult, error) {
	return nil, domain.ErrInvalidCredentials
}
func (s *stubAuth) Register(context.Context, ports.RegisterInput) (*ports.AuthResult, error) {
	return nil, domain.ErrInvalidCredentials
}
func (s *stubAuth) Refresh(ctx context.Context, refresh string) (*ports.AuthResult, error) {
	if s.refreshFn == nil {
		return nil, domain.ErrTokenInvalid
	}
	return s.refreshFn(ctx, refresh)
}
func (s *stubAuth) Logout(context.Context, string) error { return nil }
func (s *stubAuth) Profile(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}
func (s *stubAuth) UpdateProfile(context.Context, string, ports.ProfileUpdate) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

type recordingSink struct {
	events []domain.AuthEvent
}

func (r *recordingSink) Enqueue(e domain.AuthEvent) { r.events = append(r.events, e) }

type guardFixture struct {
	e       *echo.Echo
	manager *session.Manager
	sink    *recordingSink
}

func newGuardFixture(verifier stubVerifier, auth *stubAuth) guardFixture {
	e := echo.New()
	manager := session.NewManager(session.NewMemoryBackend(0), zerolog.Nop(), nil)
	sink := &recordingSink{}

	guard := Guard(GuardConfig{Verifier: verifier, Auth: auth, Audit: sink, Log: zerolog.Nop()})
	e.GET("/*", func(c echo.Context) error {
		subject, ok := SubjectFrom(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.String(http.StatusOK, string(subject.Role))
	}, Session(manager, SessionConfig{CookieName: testCookie}), guard)

	return guardFixture{e: e, manager: manager, sink: sink}
}

// loggedIn prepares a session and returns its id.
func (f guardFixture) loggedIn(t *testing.T, access string, user domain.User) string {
	t.Helper()
	store, _ := f.manager.Open(context.Background(), "")
	store.Login(context.Background(), access, "refresh-1", user)
	return store.ID()
}

func (f guardFixture) get(path, sessionID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: sessionID})
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestGuard_UnauthenticatedRedirectsToLogin(t *testing.T) {
	f := newGuardFixture(stubVerifier{}, &stubAuth{})

	rec := f.get("/leader", "")

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/login?next=%2Fleader" {
		t.Fatalf("unexpected location %q", loc)
	}
	if len(f.sink.events) != 1 || f.sink.events[0].Kind != domain.EventRedirectLogin {
		t.Fatalf("expected redirect_login audit event, got %+v", f.sink.events)
	}
}

func TestGuard_WrongRoleRedirectsHome(t *testing.T) {
	f := newGuardFixture(stubVerifier{"tok": domain.RoleTeacher}, &stubAuth{})
	sid := f.loggedIn(t, "tok", domain.User{ID: "u-1", Role: domain.RoleTeacher})

	rec := f.get("/parent", sid)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/teacher" {
		t.Fatalf("unexpected location %q", loc)
	}
	if f.sink.events[0].UserID != "u-1" || f.sink.events[0].Path != "/parent" {
		t.Fatalf("audit event missing context: %+v", f.sink.events[0])
	}
}

func TestGuard_AdminRendersStudentArea(t *testing.T) {
	f := newGuardFixture(stubVerifier{"tok": domain.RoleAdmin}, &stubAuth{})
	sid := f.loggedIn(t, "tok", domain.User{ID: "u-1", Role: domain.RoleAdmin})

	rec := f.get("/student", sid)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "admin" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if len(f.sink.events) != 0 {
		t.Fatalf("render must not be audited, got %+v", f.sink.events)
	}
}

func TestGuard_ExpiredTokenIsRefreshed(t *testing.T) {
	auth := &stubAuth{refreshFn: func(_ context.Context, refresh string) (*ports.AuthResult, error) {
		if refresh != "refresh-1" {
			t.Fatalf("unexpected refresh token %q", refresh)
		}
		return &ports.AuthResult{
			AccessToken:  "fresh",
			RefreshToken: refresh,
			User:         &domain.User{ID: "u-1", Role: domain.RoleLeader},
		}, nil
	}}
	f := newGuardFixture(stubVerifier{"fresh": domain.RoleLeader}, auth)
	sid := f.loggedIn(t, "stale", domain.User{ID: "u-1", Role: domain.RoleLeader})

	rec := f.get("/leader/reports", sid)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after refresh, got %d", rec.Code)
	}
	store, _ := f.manager.Open(context.Background(), sid)
	if got := store.Snapshot().AccessToken; got != "fresh" {
		t.Fatalf("expected refreshed token in session, got %q", got)
	}
}

func TestGuard_FailedRefreshLogsOut(t *testing.T) {
	f := newGuardFixture(stubVerifier{}, &stubAuth{})
	sid := f.loggedIn(t, "stale", domain.User{ID: "u-1", Role: domain.RoleLeader})

	rec := f.get("/leader", sid)

	if rec.Code != http.StatusFound || rec.Header().Get(echo.HeaderLocation) != "/login?next=%2Fleader" {
		t.Fatalf("expected login redirect, got %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
	store, _ := f.manager.Open(context.Background(), sid)
	if store.IsAuthenticated() {
		t.Fatalf("session should be logged out")
	}
	if f.sink.events[0].Kind != domain.EventSessionExpired {
		t.Fatalf("expected session_expired first, got %+v", f.sink.events)
	}
}

func TestGuard_TeacherMustSelectSchool(t *testing.T) {
	f := newGuardFixture(stubVerifier{"tok": domain.RoleTeacher}, &stubAuth{})
	teacher := domain.User{
		ID:             "u-1",
		Role:           domain.RoleTeacher,
		TeacherSchools: []domain.School{{ID: "a"}, {ID: "b"}},
	}
	sid := f.loggedIn(t, "tok", teacher)

	rec := f.get("/teacher/classes", sid)
	if rec.Header().Get(echo.HeaderLocation) != "/teacher/select-school" {
		t.Fatalf("expected school selection redirect, got %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}

	rec = f.get("/teacher/select-school", sid)
	if rec.Code != http.StatusOK {
		t.Fatalf("selection page must render, got %d", rec.Code)
	}

	store, _ := f.manager.Open(context.Background(), sid)
	store.SelectSchool(context.Background(), "b")
	rec = f.get("/teacher/classes", sid)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after selection, got %d", rec.Code)
	}
}
