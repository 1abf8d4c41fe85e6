package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/futurefundi/portal/internal/api/metrics"
	"github.com/futurefundi/portal/internal/core/access"
	"github.com/futurefundi/portal/internal/core/domain"
	"github.com/futurefundi/portal/internal/core/ports"
	"github.com/futurefundi/portal/internal/core/session"
)

const ctxSubjectKey = "subject"

// GuardConfig wires the route guard to token verification, refresh and the
// audit trail. Audit may be nil.
type GuardConfig struct {
	Verifier ports.TokenVerifier
	Auth     ports.AuthService
	Audit    ports.AuditSink
	Log      zerolog.Logger
}

// Guard gates protected views. It must run after Session. Every request is
// evaluated afresh: the session's access token is verified, refreshed once
// if it has expired, and the resulting subject is checked against the
// access policy. Non-render decisions answer with a 302.
func Guard(cfg GuardConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			store := SessionFrom(c)
			if store == nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "session unavailable")
			}

			subject, snap := cfg.authenticate(c, store)
			decision := access.Decide(subject, c.Request().URL.Path)

			roleLabel := "anonymous"
			if subject.Authenticated {
				roleLabel = string(subject.Role)
			}
			metrics.GuardDecisionsTotal.WithLabelValues(decision.Outcome.String(), roleLabel).Inc()

			if decision.Outcome == access.Render {
				c.Set(ctxSubjectKey, subject)
				return next(c)
			}

			cfg.Log.Debug().
				Str("session_id", store.ID()).
				Str("path", c.Request().URL.Path).
				Str("outcome", decision.Outcome.String()).
				Str("location", decision.Location).
				Msg("guard redirect")

			ev := auditEvent(c, store.ID(), redirectKind(decision.Outcome), snap.User)
			ev.Path = c.Request().URL.Path
			ev.Location = decision.Location
			emit(cfg.Audit, ev)

			return c.Redirect(http.StatusFound, decision.Location)
		}
	}
}

// SubjectFrom returns the subject the guard rendered for.
func SubjectFrom(c echo.Context) (access.Subject, bool) {
	s, ok := c.Get(ctxSubjectKey).(access.Subject)
	return s, ok
}

func (cfg GuardConfig) authenticate(c echo.Context, store *session.Store) (access.Subject, session.Snapshot) {
	ctx := c.Request().Context()
	snap := store.Snapshot()
	if !snap.IsAuthenticated {
		return access.Subject{}, snap
	}

	claims, err := cfg.Verifier.VerifyAccess(snap.AccessToken)
	if err != nil {
		claims, err = cfg.refresh(ctx, store, snap)
		if err != nil {
			cfg.Log.Info().Err(err).Str("session_id", store.ID()).Msg("session expired")
			emit(cfg.Audit, auditEvent(c, store.ID(), domain.EventSessionExpired, snap.User))
			store.Logout(ctx)
			return access.Subject{}, store.Snapshot()
		}
		snap = store.Snapshot()
	}

	subject := access.Subject{
		Authenticated:  true,
		Role:           claims.Role,
		SelectedSchool: store.SelectedSchool(),
	}
	if snap.User != nil {
		subject.Role = snap.User.Role
		subject.Schools = snap.User.TeacherSchools
	}
	return subject, snap
}

func (cfg GuardConfig) refresh(ctx context.Context, store *session.Store, snap session.Snapshot) (*ports.AccessClaims, error) {
	if snap.RefreshToken == "" || cfg.Auth == nil {
		return nil, domain.ErrTokenInvalid
	}
	res, err := cfg.Auth.Refresh(ctx, snap.RefreshToken)
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues(string(domain.EventRefresh), "error").Inc()
		return nil, err
	}
	metrics.AuthEventsTotal.WithLabelValues(string(domain.EventRefresh), "ok").Inc()

	user := res.User
	if user == nil {
		user = snap.User
	}
	if user != nil {
		store.Login(ctx, res.AccessToken, res.RefreshToken, *user)
	}
	return cfg.Verifier.VerifyAccess(res.AccessToken)
}

func redirectKind(o access.Outcome) domain.AuthEventKind {
	switch o {
	case access.RedirectLogin:
		return domain.EventRedirectLogin
	case access.RedirectSchoolSelect:
		return domain.EventRedirectSchool
	default:
		return domain.EventRedirectHome
	}
}

func auditEvent(c echo.Context, sessionID string, kind domain.AuthEventKind, user *domain.User) domain.AuthEvent {
	ev := domain.AuthEvent{
		Kind:      kind,
		SessionID: sessionID,
		RemoteIP:  c.RealIP(),
	}
	if user != nil {
		ev.UserID = user.ID
		ev.Username = user.Username
		ev.Role = user.Role
	}
	return ev
}

func emit(sink ports.AuditSink, ev domain.AuthEvent) {
	if sink != nil {
		sink.Enqueue(ev)
	}
}
