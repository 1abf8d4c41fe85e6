package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrUserInactive       = errors.New("user account is disabled")
	ErrPasswordMismatch   = errors.New("password fields didn't match")
	ErrInvalidSchoolCode  = errors.New("invalid school code")
	ErrSchoolNotAssigned  = errors.New("school is not assigned to this teacher")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrUnrecognizedRole   = errors.New("unrecognized role")
	ErrForbidden          = errors.New("access forbidden")
	ErrUnauthenticated    = errors.New("authentication required")
)
