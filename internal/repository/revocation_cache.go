package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const revokedKeyPrefix = "revoked:"

// RevocationCache is a Redis fast path in front of the durable blocklist.
// Entries expire with the token itself, so the cache never needs cleanup.
// A nil client disables the cache and every lookup falls through to the
// ledger.
type RevocationCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRevocationCache constructs the cache wrapper.
func NewRevocationCache(client *redis.Client, logger *zap.Logger) *RevocationCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RevocationCache{client: client, logger: logger}
}

// MarkRevoked stores the jti with a TTL covering the token's remaining
// lifetime. Failures are logged, not fatal: the ledger remains authoritative.
func (c *RevocationCache) MarkRevoked(ctx context.Context, jti string, ttl time.Duration) {
	if c.client == nil || ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err(); err != nil {
		c.logger.Warn("failed to cache revoked token", zap.String("jti", jti), zap.Error(err))
	}
}

// IsRevoked reports whether the jti is known-revoked in the cache. The second
// return value is false when the cache could not answer.
func (c *RevocationCache) IsRevoked(ctx context.Context, jti string) (revoked bool, ok bool) {
	if c.client == nil {
		return false, false
	}
	if err := c.client.Get(ctx, revokedKeyPrefix+jti).Err(); err != nil {
		if err == redis.Nil {
			// Absence is not proof: the entry may have been written by
			// another instance after our last read, or never cached.
			return false, false
		}
		c.logger.Warn("revocation cache lookup failed", zap.Error(fmt.Errorf("redis get %s: %w", jti, err)))
		return false, false
	}
	return true, true
}
