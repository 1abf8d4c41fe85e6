package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/futurefundi/portal/internal/core/session"
)

const sessionKeyPrefix = "portal:session:"

// SessionBackend stores session keys as plain Redis strings.
// Key format: portal:session:<session_id>:<key>
// Every write refreshes the TTL of all keys of that session.
type SessionBackend struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ session.Backend = (*SessionBackend)(nil)

// NewSessionBackend wraps client. A zero ttl keeps keys forever.
func NewSessionBackend(client redis.UniversalClient, ttl time.Duration) *SessionBackend {
	return &SessionBackend{client: client, ttl: ttl}
}

func (b *SessionBackend) Scope(sessionID string) session.Storage {
	return &sessionStorage{backend: b, sessionID: sessionID}
}

type sessionStorage struct {
	backend   *SessionBackend
	sessionID string
}

func (s *sessionStorage) key(name string) string {
	return sessionKeyPrefix + s.sessionID + ":" + name
}

func (s *sessionStorage) Get(ctx context.Context, key string) (string, error) {
	v, err := s.backend.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", session.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("session get %s: %w", key, err)
	}
	return v, nil
}

func (s *sessionStorage) Set(ctx context.Context, key, value string) error {
	_, err := s.backend.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.key(key), value, s.backend.ttl)
		if s.backend.ttl > 0 {
			for _, k := range session.Keys() {
				if k != key {
					p.Expire(ctx, s.key(k), s.backend.ttl)
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("session set %s: %w", key, err)
	}
	return nil
}

func (s *sessionStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.backend.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}
