package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/futurefundi/portal/internal/api/middleware"
	"github.com/futurefundi/portal/internal/core/domain"
	"github.com/futurefundi/portal/internal/core/ports"
	"github.com/futurefundi/portal/internal/core/service"
	"github.com/futurefundi/portal/internal/core/session"
)

type memUsers struct {
	byName map[string]*domain.User
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	if u, ok := m.byName[username]; ok {
		c := *u
		return &c, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range m.byName {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	if _, ok := m.byName[u.Username]; ok {
		return nil, domain.ErrUserExists
	}
	c := *u
	c.ID = "id-" + u.Username
	m.byName[u.Username] = &c
	return &c, nil
}

func (m *memUsers) UpdateProfile(ctx context.Context, id string, _ ports.ProfileUpdate) (*domain.User, error) {
	return m.FindByID(ctx, id)
}

type noSchools struct{}

func (noSchools) FindByCode(context.Context, string) (*domain.School, error) {
	return nil, domain.ErrInvalidSchoolCode
}

type memBlacklist map[string]bool

func (b memBlacklist) Revoke(_ context.Context, id string, _ time.Time) error {
	b[id] = true
	return nil
}

func (b memBlacklist) IsRevoked(_ context.Context, id string) (bool, error) {
	return b[id], nil
}

type client struct {
	t      *testing.T
	srv    http.Handler
	cookie *http.Cookie
}

func (c *client) do(method, target, body string, header ...string) *httptest.ResponseRecorder {
	c.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.srv.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "portal_session" {
			c.cookie = ck
		}
	}
	return rec
}

func newTestServer(t *testing.T) (*client, *service.TokenIssuer) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	users := &memUsers{byName: map[string]*domain.User{
		"lee":  {ID: "1", Username: "lee", PasswordHash: string(hash), Role: domain.RoleLeader, IsActive: true},
		"root": {ID: "2", Username: "root", PasswordHash: string(hash), Role: domain.RoleAdmin, IsActive: true},
	}}
	tokens := service.NewTokenIssuer("secret", "portal", time.Minute, time.Hour)
	auth := service.NewAuthService(users, noSchools{}, memBlacklist{}, tokens)

	reg := prometheus.NewRegistry()
	e := NewRouter(Deps{
		Log:            zerolog.Nop(),
		Auth:           auth,
		Verifier:       tokens,
		Sessions:       session.NewManager(session.NewMemoryBackend(0), zerolog.Nop(), nil),
		Cookie:         middleware.SessionConfig{CookieName: "portal_session"},
		LoginRateLimit: 100,
		Registerer:     reg,
		Gatherer:       reg,
	})
	return &client{t: t, srv: e}, tokens
}

func TestRouter_LoginReplayAndLogout(t *testing.T) {
	c, _ := newTestServer(t)

	rec := c.do(http.MethodGet, "/leader", "")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login?next=%2Fleader" {
		t.Fatalf("expected login redirect, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if c.cookie == nil {
		t.Fatalf("expected a session cookie")
	}

	rec = c.do(http.MethodPost, "/auth/token", `{"username":"lee","password":"pw","next":"/leader"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var tok struct {
		RedirectTo string `json:"redirect_to"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &tok)
	if tok.RedirectTo != "/leader" {
		t.Fatalf("expected replay to /leader, got %q", tok.RedirectTo)
	}

	if rec = c.do(http.MethodGet, "/leader", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected leader view, got %d", rec.Code)
	}
	if rec = c.do(http.MethodGet, "/parent/kids", ""); rec.Code != http.StatusFound || rec.Header().Get("Location") != "/leader" {
		t.Fatalf("expected redirect home, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	if rec = c.do(http.MethodPost, "/auth/logout", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", rec.Code)
	}
	if rec = c.do(http.MethodPost, "/auth/logout", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("second logout: expected 204, got %d", rec.Code)
	}
	if rec = c.do(http.MethodGet, "/leader", ""); rec.Code != http.StatusFound {
		t.Fatalf("expected redirect after logout, got %d", rec.Code)
	}
}

func TestRouter_ErrorEnvelope(t *testing.T) {
	c, _ := newTestServer(t)

	rec := c.do(http.MethodPost, "/auth/token", `{"username":"lee","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"error":"invalid credentials"}` {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestRouter_BearerRoutes(t *testing.T) {
	c, tokens := newTestServer(t)

	admin, _ := tokens.IssueAccess(&domain.User{ID: "2", Role: domain.RoleAdmin})
	leader, _ := tokens.IssueAccess(&domain.User{ID: "1", Role: domain.RoleLeader})

	if rec := c.do(http.MethodGet, "/api/roles", "", "Authorization", "Bearer "+admin); rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", rec.Code)
	}
	if rec := c.do(http.MethodGet, "/api/roles", "", "Authorization", "Bearer "+leader); rec.Code != http.StatusForbidden {
		t.Fatalf("leader: expected 403, got %d", rec.Code)
	}
	if rec := c.do(http.MethodGet, "/api/roles", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", rec.Code)
	}

	rec := c.do(http.MethodGet, "/user/dashboard", "", "Authorization", "Bearer "+leader)
	if !strings.Contains(rec.Body.String(), `"dashboard_url":"/leader"`) {
		t.Fatalf("unexpected dashboard body %s", rec.Body.String())
	}
}

func TestRouter_OpsEndpoints(t *testing.T) {
	c, _ := newTestServer(t)

	for _, path := range []string{"/health", "/health/ready", "/metrics"} {
		if rec := c.do(http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestRouter_LoginIssuesFreshSessionID(t *testing.T) {
	c, _ := newTestServer(t)
	planted := &http.Cookie{Name: "portal_session", Value: "11111111-2222-4333-8444-555555555555"}
	c.cookie = planted

	rec := c.do(http.MethodPost, "/auth/token", `{"username":"lee","password":"pw"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if c.cookie == nil || c.cookie.Value == planted.Value {
		t.Fatalf("session id was not replaced on login")
	}
	if rec = c.do(http.MethodGet, "/leader", ""); rec.Code != http.StatusOK {
		t.Fatalf("victim: expected leader view, got %d", rec.Code)
	}

	other := &client{t: t, srv: c.srv, cookie: planted}
	if rec = other.do(http.MethodGet, "/leader", ""); rec.Code != http.StatusFound {
		t.Fatalf("planted id must not be signed in, got %d", rec.Code)
	}
}
