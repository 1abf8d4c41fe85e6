package handler

import "github.com/futurefundi/portal/internal/core/domain"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Next     string `json:"next"`
}

type registerRequest struct {
	Username        string `json:"username"         validate:"required,min=3,max=150"`
	Email           string `json:"email"            validate:"required,email"`
	Password        string `json:"password"         validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	SchoolCode      string `json:"school_code"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type logoutRequest struct {
	Refresh string `json:"refresh"`
}

type profileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"      validate:"omitempty,email"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

type selectSchoolRequest struct {
	SchoolID string `json:"school_id" validate:"required"`
}

type tokenResponse struct {
	Access     string       `json:"access"`
	Refresh    string       `json:"refresh"`
	User       *domain.User `json:"user"`
	RedirectTo string       `json:"redirect_to"`
}

type accessResponse struct {
	Access string `json:"access"`
}

type dashboardResponse struct {
	DashboardURL string `json:"dashboard_url"`
	Role         string `json:"role"`
}

type roleRuleResponse struct {
	Role        string   `json:"role"`
	DisplayName string   `json:"display_name"`
	Home        string   `json:"home"`
	Allowed     []string `json:"allowed"`
}

type loginViewResponse struct {
	Next          string `json:"next,omitempty"`
	Authenticated bool   `json:"authenticated"`
}

type rootViewResponse struct {
	Path          string `json:"path"`
	Authenticated bool   `json:"authenticated"`
	DashboardURL  string `json:"dashboard_url,omitempty"`
}

// viewResponse is the model of a rendered dashboard page.
type viewResponse struct {
	Path            string       `json:"path"`
	Role            string       `json:"role"`
	RoleDisplayName string       `json:"role_display_name"`
	Home            string       `json:"home"`
	User            *domain.User `json:"user,omitempty"`
	SelectedSchool  string       `json:"selected_school_id,omitempty"`
}

type schoolSelectionResponse struct {
	Schools  []domain.School `json:"schools"`
	Selected string          `json:"selected_school_id,omitempty"`
}

type redirectResponse struct {
	RedirectTo string `json:"redirect_to"`
}
