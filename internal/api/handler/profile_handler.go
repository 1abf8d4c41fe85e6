package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/futurefundi/portal/internal/api/metrics"
	"github.com/futurefundi/portal/internal/core/access"
	"github.com/futurefundi/portal/internal/core/domain"
	"github.com/futurefundi/portal/internal/core/ports"
)

// ProfileHandler serves the signed-in user's own profile and dashboard
// pointers.
type ProfileHandler struct {
	authService ports.AuthService
	audit       ports.AuditSink
}

func NewProfileHandler(authService ports.AuthService, audit ports.AuditSink) *ProfileHandler {
	return &ProfileHandler{authService: authService, audit: audit}
}

// Get returns the stored profile and refreshes the session's user snapshot.
//
// @Summary      Current user's profile
// @Tags         user
// @Produce      json
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorResponse
// @Router       /user/profile [get]
func (h *ProfileHandler) Get(c echo.Context) error {
	store, err := ctxSession(c)
	if err != nil {
		return err
	}
	snap := store.Snapshot()
	if !snap.IsAuthenticated || snap.User == nil {
		return domain.ErrUnauthenticated
	}

	ctx := c.Request().Context()
	user, err := h.authService.Profile(ctx, snap.User.ID)
	if err != nil {
		return err
	}
	store.SetUser(ctx, *user)
	return c.JSON(http.StatusOK, user)
}

// Update changes the editable profile fields and the session's user snapshot.
//
// @Summary      Update current user's profile
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        body  body      profileRequest  true  "Fields to change"
// @Success      200   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /user/profile [patch]
func (h *ProfileHandler) Update(c echo.Context) error {
	var req profileRequest
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
	snap := store.Snapshot()
	if !snap.IsAuthenticated || snap.User == nil {
		return domain.ErrUnauthenticated
	}

	ctx := c.Request().Context()
	user, err := h.authService.UpdateProfile(ctx, snap.User.ID, ports.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues(string(domain.EventProfileUpdate), "error").Inc()
		return err
	}

	store.SetUser(ctx, *user)
	metrics.AuthEventsTotal.WithLabelValues(string(domain.EventProfileUpdate), "ok").Inc()
	emit(c, h.audit, store.ID(), domain.EventProfileUpdate, user)
	return c.JSON(http.StatusOK, user)
}

// Dashboard tells a bearer where its role's dashboard lives.
//
// @Summary      Dashboard route for the bearer's role
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dashboardResponse
// @Failure      401  {object}  errorResponse
// @Router       /user/dashboard [get]
func (h *ProfileHandler) Dashboard(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dashboardResponse{
		DashboardURL: access.DashboardRoute(string(claims.Role)),
		Role:         string(claims.Role),
	})
}

// Roles lists the route access policy.
//
// @Summary      Route access policy
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   roleRuleResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/roles [get]
func (h *ProfileHandler) Roles(c echo.Context) error {
	rules := access.Table()
	out := make([]roleRuleResponse, 0, len(rules))
	for _, r := range rules {
		out = append(out, roleRuleResponse{
			Role:        string(r.Role),
			DisplayName: r.DisplayName,
			Home:        r.Home,
			Allowed:     r.Allowed,
		})
	}
	return c.JSON(http.StatusOK, out)
}
