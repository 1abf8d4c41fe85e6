package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/futurefundi/portal/internal/api/metrics"
	"github.com/futurefundi/portal/internal/api/middleware"
	"github.com/futurefundi/portal/internal/core/access"
	"github.com/futurefundi/portal/internal/core/domain"
	"github.com/futurefundi/portal/internal/core/ports"
)

var errNoSession = errors.New("session middleware not installed")

// AuthHandler exchanges credentials for tokens and records them in the
// caller's session.
type AuthHandler struct {
	authService ports.AuthService
	audit       ports.AuditSink
	log         zerolog.Logger
}

func NewAuthHandler(authService ports.AuthService, audit ports.AuditSink, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, audit: audit, log: log}
}

// Login authenticates a user, stores the tokens in the session and says
// where the browser should go next.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/token [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	store, err := ctxSession(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	res, err := h.authService.Login(ctx, req.Username, req.Password)
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues(string(domain.EventLogin), "error").Inc()
		// Unknown usernames are indistinguishable from wrong passwords.
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidCredentials
		}
		return err
	}

	store = middleware.RotateSession(c)
	store.Login(ctx, res.AccessToken, res.RefreshToken, *res.User)
	metrics.AuthEventsTotal.WithLabelValues(string(domain.EventLogin), "ok").Inc()
	emit(c, h.audit, store.ID(), domain.EventLogin, res.User)

	return c.JSON(http.StatusOK, tokenResponse{
		Access:     res.AccessToken,
		Refresh:    res.RefreshToken,
		User:       res.User,
		RedirectTo: access.ReplayTarget(res.User.Role, req.Next),
	})
}

// Register creates a parent account and signs it in.
//
// @Summary      Register a parent account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	store, err := ctxSession(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	res, err := h.authService.Register(ctx, ports.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		SchoolCode:      req.SchoolCode,
	})
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues(string(domain.EventRegister), "error").Inc()
		return err
	}

	store = middleware.RotateSession(c)
	store.Login(ctx, res.AccessToken, res.RefreshToken, *res.User)
	metrics.AuthEventsTotal.WithLabelValues(string(domain.EventRegister), "ok").Inc()
	emit(c, h.audit, store.ID(), domain.EventRegister, res.User)

	return c.JSON(http.StatusCreated, tokenResponse{
		Access:     res.AccessToken,
		Refresh:    res.RefreshToken,
		User:       res.User,
		RedirectTo: access.DashboardRoute(string(res.User.Role)),
	})
}

// Refresh trades a refresh token for a new access token. The body's token
// wins; otherwise the session's is used.
//
// @Summary      Refresh the access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  false  "Refresh token"
// @Success      200   {object}  accessResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/token/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	store, err := ctxSession(c)
	if err != nil {
		return err
	}

	refresh := req.Refresh
	if refresh == "" {
		refresh = store.Snapshot().RefreshToken
	}
	if refresh == "" {
		return domain.ErrTokenInvalid
	}

	ctx := c.Request().Context()
	res, err := h.authService.Refresh(ctx, refresh)
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues(string(domain.EventRefresh), "error").Inc()
		return err
	}

	store.Login(ctx, res.AccessToken, res.RefreshToken, *res.User)
	metrics.AuthEventsTotal.WithLabelValues(string(domain.EventRefresh), "ok").Inc()
	emit(c, h.audit, store.ID(), domain.EventRefresh, res.User)

	return c.JSON(http.StatusOK, accessResponse{Access: res.AccessToken})
}

// Logout revokes the refresh token and clears the session. It always
// succeeds: a failed revocation is logged and the session is cleared anyway.
//
// @Summary      Logout
// @Tags         auth
// @Accept       json
// @Param        body  body  logoutRequest  false  "Refresh token to revoke"
// @Success      204
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutRequest
	_ = c.Bind(&req)
	store, err := ctxSession(c)
	if err != nil {
		return err
	}

	snap := store.Snapshot()
	refresh := req.Refresh
	if refresh == "" {
		refresh = snap.RefreshToken
	}

	ctx := c.Request().Context()
	if refresh != "" {
		if err := h.authService.Logout(ctx, refresh); err != nil {
			h.log.Warn().Err(err).Str("session_id", store.ID()).Msg("refresh token revocation failed")
		}
	}

	store.Logout(ctx)
	metrics.AuthEventsTotal.WithLabelValues(string(domain.EventLogout), "ok").Inc()
	if snap.IsAuthenticated {
		emit(c, h.audit, store.ID(), domain.EventLogout, snap.User)
	}
	return c.NoContent(http.StatusNoContent)
}
