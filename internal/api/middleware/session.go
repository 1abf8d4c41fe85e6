package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/futurefundi/portal/internal/api/metrics"
	"github.com/futurefundi/portal/internal/core/session"
)

const (
	ctxSessionKey    = "session"
	ctxSessionsKey   = "session_manager"
	defaultSIDCookie = "portal_session"
)

// SessionConfig controls the session cookie.
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

type sessionRuntime struct {
	manager *session.Manager
	cfg     SessionConfig
}

// Session opens the caller's session store from the session cookie and
// makes it available to later handlers via SessionFrom. A missing,
// malformed or unknown cookie starts a new session under a server-minted id.
func Session(manager *session.Manager, cfg SessionConfig) echo.MiddlewareFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = defaultSIDCookie
	}
	rt := &sessionRuntime{manager: manager, cfg: cfg}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var id string
			if cookie, err := c.Cookie(cfg.CookieName); err == nil {
				id = cookie.Value
			}

			store, isNew := manager.Open(c.Request().Context(), id)
			// Re-issued on every request so the cookie slides with the
			// storage TTL.
			if isNew || cfg.TTL > 0 {
				rt.setCookie(c, store.ID())
			}
			if isNew {
				metrics.SessionsCreatedTotal.Inc()
			}

			c.Set(ctxSessionKey, store)
			c.Set(ctxSessionsKey, rt)
			return next(c)
		}
	}
}

// SessionFrom returns the store opened by Session, or nil when the
// middleware did not run.
func SessionFrom(c echo.Context) *session.Store {
	store, _ := c.Get(ctxSessionKey).(*session.Store)
	return store
}

// RotateSession moves the caller's session to a new id, replaces the
// session cookie and returns the new store. Call it whenever the identity
// behind the session changes. It returns nil when Session did not run.
func RotateSession(c echo.Context) *session.Store {
	store := SessionFrom(c)
	rt, _ := c.Get(ctxSessionsKey).(*sessionRuntime)
	if store == nil || rt == nil {
		return store
	}

	rotated := rt.manager.Rotate(c.Request().Context(), store)
	rt.setCookie(c, rotated.ID())
	c.Set(ctxSessionKey, rotated)
	return rotated
}

// setCookie writes the session cookie, dropping any earlier one for the
// same name from the response.
func (rt *sessionRuntime) setCookie(c echo.Context, id string) {
	h := c.Response().Header()
	prefix := rt.cfg.CookieName + "="
	var kept []string
	for _, v := range h.Values(echo.HeaderSetCookie) {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	h.Del(echo.HeaderSetCookie)
	for _, v := range kept {
		h.Add(echo.HeaderSetCookie, v)
	}

	c.SetCookie(&http.Cookie{
		Name:     rt.cfg.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(rt.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   rt.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
