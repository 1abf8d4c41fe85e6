package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/futurefundi/portal/internal/core/domain"
	"github.com/futurefundi/portal/internal/core/ports"
)

// AuthService implements login, registration, refresh and profile upkeep.
type AuthService struct {
	users     ports.UserRepository
	schools   ports.SchoolRepository
	blacklist ports.TokenBlacklist
	tokens    *TokenIssuer
	now       func() time.Time
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(
	users ports.UserRepository,
	schools ports.SchoolRepository,
	blacklist ports.TokenBlacklist,
	tokens *TokenIssuer,
) *AuthService {
	return &AuthService{
		users:     users,
		schools:   schools,
		blacklist: blacklist,
		tokens:    tokens,
		now:       time.Now,
	}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	return s.issue(user)
}

// Register creates a parent account; self-service sign-up never grants any
// other role. A school code, when given, must resolve to a school.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" || strings.TrimSpace(in.Email) == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if in.Password != in.PasswordConfirm {
		return nil, domain.ErrPasswordMismatch
	}

	now := s.now().UTC()
	user := &domain.User{
		Username:   username,
		Email:      strings.TrimSpace(in.Email),
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Role:       domain.RoleParent,
		IsActive:   true,
		DateJoined: now,
		UpdatedAt:  now,
	}

	if code := strings.TrimSpace(in.SchoolCode); code != "" {
		school, err := s.schools.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidSchoolCode) {
				return nil, err
			}
			return nil, fmt.Errorf("register: resolve school: %w", err)
		}
		user.Tenant = school.ID
		user.TenantName = school.Name
		user.TenantCode = school.Code
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.issue(created)
}

// Refresh trades a valid, unrevoked refresh token for a new access token.
// The refresh token itself is returned unchanged.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*ports.AuthResult, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("refresh: check blacklist: %w", err)
	}
	if revoked {
		return nil, domain.ErrTokenRevoked
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{AccessToken: access, RefreshToken: refreshToken, User: user}, nil
}

// Logout revokes the refresh token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return err
	}
	until := s.now()
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, until); err != nil {
		return fmt.Errorf("logout: revoke: %w", err)
	}
	return nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrUserNotFound
	}
	return s.users.FindByID(ctx, userID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, update ports.ProfileUpdate) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrUserNotFound
	}
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		return &v
	}
	update.FirstName = trim(update.FirstName)
	update.LastName = trim(update.LastName)
	update.Email = trim(update.Email)
	if update.Email != nil && *update.Email == "" {
		return nil, domain.ErrInvalidCredentials
	}
	return s.users.UpdateProfile(ctx, userID, update)
}

func (s *AuthService) issue(user *domain.User) (*ports.AuthResult, error) {
	access, refresh, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{AccessToken: access, RefreshToken: refresh, User: user}, nil
}
