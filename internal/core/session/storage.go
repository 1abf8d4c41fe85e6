package session

import (
	"context"
	"errors"
)

// Durable keys, one value each, per browser session.
const (
	KeyAccessToken    = "access_token"
	KeyRefreshToken   = "refresh_token"
	KeyUser           = "user"
	KeySelectedSchool = "selected_teacher_school_id"
)

// Keys lists every durable key of a session.
func Keys() []string {
	return []string{KeyAccessToken, KeyRefreshToken, KeyUser, KeySelectedSchool}
}

// ErrNotFound is returned by Storage.Get for absent keys.
var ErrNotFound = errors.New("session: key not found")

// Storage is durable string storage scoped to one browser session.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Backend hands out Storage scoped to a session id.
type Backend interface {
	Scope(sessionID string) Storage
}

// ErrorObserver is told about storage failures that were swallowed.
type ErrorObserver func(op string, err error)
