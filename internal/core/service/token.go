package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/futurefundi/portal/internal/core/domain"
	"github.com/futurefundi/portal/internal/core/ports"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims is the JWT payload for both token kinds; TokenType tells them apart.
type Claims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
	TenantID  string `json:"tenant_id,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access and refresh tokens.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

var _ ports.TokenVerifier = (*TokenIssuer)(nil)

func NewTokenIssuer(secret, issuer string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	return &TokenIssuer{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssuePair mints a new access/refresh pair for user.
func (t *TokenIssuer) IssuePair(user *domain.User) (access, refresh string, err error) {
	access, err = t.sign(user, tokenTypeAccess, t.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = t.sign(user, tokenTypeRefresh, t.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// IssueAccess mints only an access token, for refresh.
func (t *TokenIssuer) IssueAccess(user *domain.User) (string, error) {
	return t.sign(user, tokenTypeAccess, t.accessTTL)
}

// VerifyAccess validates an access token and returns its claims.
func (t *TokenIssuer) VerifyAccess(token string) (*ports.AccessClaims, error) {
	claims, err := t.parse(token, tokenTypeAccess)
	if err != nil {
		return nil, err
	}
	role, _ := domain.ParseRoleOrDefault(claims.Role)
	return &ports.AccessClaims{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     role,
		TenantID: claims.TenantID,
	}, nil
}

// VerifyRefresh validates a refresh token and returns its raw claims.
func (t *TokenIssuer) VerifyRefresh(token string) (*Claims, error) {
	return t.parse(token, tokenTypeRefresh)
}

func (t *TokenIssuer) sign(user *domain.User, tokenType string, ttl time.Duration) (string, error) {
	now := t.now().UTC()
	claims := Claims{
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      string(user.Role),
		TenantID:  user.Tenant,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (t *TokenIssuer) parse(token, wantType string) (*Claims, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, domain.ErrTokenInvalid
	}
	if claims.TokenType != wantType {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}
