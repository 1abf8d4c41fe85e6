package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/futurefundi/portal/internal/api/metrics"
	"github.com/futurefundi/portal/internal/api/middleware"
	"github.com/futurefundi/portal/internal/core/access"
	"github.com/futurefundi/portal/internal/core/domain"
	"github.com/futurefundi/portal/internal/core/ports"
)

// PortalHandler renders the view models of the public pages and of the
// guarded dashboards.
type PortalHandler struct {
	audit ports.AuditSink
}

func NewPortalHandler(audit ports.AuditSink) *PortalHandler {
	return &PortalHandler{audit: audit}
}

// Root is the public landing page.
//
// @Summary      Public root
// @Tags         portal
// @Produce      json
// @Success      200  {object}  rootViewResponse
// @Router       / [get]
func (h *PortalHandler) Root(c echo.Context) error {
	store, err := ctxSession(c)
	if err != nil {
		return err
	}
	resp := rootViewResponse{Path: access.PublicRoot}
	if snap := store.Snapshot(); snap.IsAuthenticated {
		resp.Authenticated = true
		if snap.User != nil {
			resp.DashboardURL = access.DashboardRoute(string(snap.User.Role))
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// LoginView is the login page. A signed-in visitor is sent straight on to
// the remembered path or their home.
//
// @Summary      Login page
// @Tags         portal
// @Produce      json
// @Param        next  query     string  false  "Path to return to after login"
// @Success      200   {object}  loginViewResponse
// @Success      302
// @Router       /login [get]
func (h *PortalHandler) LoginView(c echo.Context) error {
	store, err := ctxSession(c)
	if err != nil {
		return err
	}
	next := c.QueryParam(access.NextParam)
	if snap := store.Snapshot(); snap.IsAuthenticated && snap.User != nil {
		return c.Redirect(http.StatusFound, access.ReplayTarget(snap.User.Role, next))
	}
	return c.JSON(http.StatusOK, loginViewResponse{Next: next})
}

// View renders a guarded dashboard page. It must run behind the guard.
//
// @Summary      Dashboard page
// @Tags         portal
// @Produce      json
// @Success      200  {object}  viewResponse
// @Success      302
// @Router       /{area}/{path} [get]
func (h *PortalHandler) View(c echo.Context) error {
	subject, ok := middleware.SubjectFrom(c)
	if !ok {
		return domain.ErrUnauthenticated
	}
	store, err := ctxSession(c)
	if err != nil {
		return err
	}

	home, _ := access.HomePath(subject.Role)
	return c.JSON(http.StatusOK, viewResponse{
		Path:            access.Clean(c.Request().URL.Path),
		Role:            string(subject.Role),
		RoleDisplayName: access.DisplayName(subject.Role),
		Home:            home,
		User:            store.Snapshot().User,
		SelectedSchool:  subject.SelectedSchool,
	})
}

// SchoolSelection lists the schools a teacher may pick from.
//
// @Summary      Teacher school selection page
// @Tags         portal
// @Produce      json
// @Success      200  {object}  schoolSelectionResponse
// @Router       /teacher/select-school [get]
func (h *PortalHandler) SchoolSelection(c echo.Context) error {
	store, err := ctxSession(c)
	if err != nil {
		return err
	}
	resp := schoolSelectionResponse{Schools: []domain.School{}, Selected: store.SelectedSchool()}
	if u := store.Snapshot().User; u != nil && len(u.TeacherSchools) > 0 {
		resp.Schools = u.TeacherSchools
	}
	return c.JSON(http.StatusOK, resp)
}

// SelectSchool records the teacher's working school for this session.
//
// @Summary      Select the teacher's current school
// @Tags         portal
// @Accept       json
// @Produce      json
// @Param        body  body      selectSchoolRequest  true  "School"
// @Success      200   {object}  redirectResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /teacher/select-school [post]
func (h *PortalHandler) SelectSchool(c echo.Context) error {
	var req selectSchoolRequest
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

	user := store.Snapshot().User
	if user == nil || !user.AssignedSchool(req.SchoolID) {
		metrics.AuthEventsTotal.WithLabelValues(string(domain.EventSchoolSelect), "error").Inc()
		return domain.ErrSchoolNotAssigned
	}

	store.SelectSchool(c.Request().Context(), req.SchoolID)
	metrics.AuthEventsTotal.WithLabelValues(string(domain.EventSchoolSelect), "ok").Inc()
	emit(c, h.audit, store.ID(), domain.EventSchoolSelect, user)

	home, _ := access.HomePath(domain.RoleTeacher)
	return c.JSON(http.StatusOK, redirectResponse{RedirectTo: home})
}
