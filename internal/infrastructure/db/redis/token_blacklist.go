package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/futurefundi/portal/internal/core/ports"
)

// TokenBlacklist records revoked refresh-token ids.
// Key format: portal:revoked:<jti>
type TokenBlacklist struct {
	client redis.UniversalClient
	now    func() time.Time
}

var _ ports.TokenBlacklist = (*TokenBlacklist)(nil)

func NewTokenBlacklist(client redis.UniversalClient) *TokenBlacklist {
	return &TokenBlacklist{client: client, now: time.Now}
}

// Revoke keeps the id until the token would have expired. Tokens already
// past their expiry are not stored.
func (b *TokenBlacklist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(b.now())
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, b.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist revoke: %w", err)
	}
	return nil
}

func (b *TokenBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := b.client.Exists(ctx, b.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("blacklist check: %w", err)
	}
	return n > 0, nil
}

func (b *TokenBlacklist) key(tokenID string) string {
	return "portal:revoked:" + tokenID
}
