package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/futurefundi/portal/internal/api/middleware"
	"github.com/futurefundi/portal/internal/core/domain"
	"github.com/futurefundi/portal/internal/core/ports"
	"github.com/futurefundi/portal/internal/core/session"
)

// ctxSession returns the session store opened by the Session middleware.
// Its absence is a wiring bug, reported as a plain error so the central
// handler logs it and answers 500.
func ctxSession(c echo.Context) (*session.Store, error) {
	store := middleware.SessionFrom(c)
	if store == nil {
		return nil, errNoSession
	}
	return store, nil
}

// ctxClaims extracts the claims injected by the Auth middleware.
func ctxClaims(c echo.Context) (*ports.AccessClaims, error) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	return claims, nil
}

// emit builds an audit event for the current request and hands it to sink.
func emit(c echo.Context, sink ports.AuditSink, sessionID string, kind domain.AuthEventKind, user *domain.User) {
	if sink == nil {
		return
	}
	ev := domain.AuthEvent{
		Kind:      kind,
		SessionID: sessionID,
		RemoteIP:  c.RealIP(),
		Path:      c.Request().URL.Path,
	}
	if user != nil {
		ev.UserID = user.ID
		ev.Username = user.Username
		ev.Role = user.Role
	}
	sink.Enqueue(ev)
}
