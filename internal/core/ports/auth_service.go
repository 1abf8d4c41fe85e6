package ports

import (
	"context"

	"github.com/futurefundi/portal/internal/core/domain"
)

// AuthResult is the response shape shared by login, registration and
// refresh: a credential pair plus the identity it belongs to.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         *domain.User
}

// RegisterInput carries a self-service registration.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
	SchoolCode      string // optional
}

// ProfileUpdate lists the fields a user may change on their own profile.
// Nil fields are left untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	AvatarURL *string
}

// AccessClaims is what a verified access token says about its bearer.
type AccessClaims struct {
	UserID   string
	Username string
	Email    string
	Role     domain.Role
	TenantID string
}

// AuthService is the authentication collaborator the portal consumes.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*AuthResult, error)
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Profile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*domain.User, error)
}

// TokenVerifier checks access tokens.
type TokenVerifier interface {
	VerifyAccess(token string) (*AccessClaims, error)
}
