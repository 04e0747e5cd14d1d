package redis

// Package redis provides Redis-based adapters for the auth gateway: the
// validated-profile cache and the login rate limiter.

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
	"github.com/triviahub/th-auth-api/internal/ports"
)

// ProfileCache caches identities validated by the backend's whoami endpoint,
// keyed by a digest of the access token. Entries are short-lived; the cache
// only bounds whoami traffic, it is never the source of truth.
type ProfileCache struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.ProfileCache = (*ProfileCache)(nil)

// NewProfileCache creates a profile cache with the default key prefix.
func NewProfileCache(client redis.UniversalClient) *ProfileCache {
	return &ProfileCache{client: client, prefix: "profile:"}
}

// NewProfileCacheWithPrefix creates a profile cache with a custom key prefix.
func NewProfileCacheWithPrefix(client redis.UniversalClient, prefix string) *ProfileCache {
	return &ProfileCache{client: client, prefix: prefix}
}

// Get returns the cached identity for the token, or nil on a miss.
func (c *ProfileCache) Get(ctx context.Context, audience domainauth.Audience, accessToken string) (*domainauth.Identity, error) {
	if accessToken == "" {
		return nil, nil
	}

	data, err := c.client.Get(ctx, c.key(audience, accessToken)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var identity domainauth.Identity
	if unmarshalErr := json.Unmarshal([]byte(data), &identity); unmarshalErr != nil {
		// A corrupt entry behaves like a miss; the backend re-validates.
		return nil, nil
	}
	return &identity, nil
}

// Set stores the identity under the token digest with the given TTL.
func (c *ProfileCache) Set(ctx context.Context, audience domainauth.Audience, accessToken string, identity domainauth.Identity, ttl time.Duration) error {
	if accessToken == "" {
		return errors.New("access token cannot be empty")
	}
	if ttl <= 0 {
		return nil // caching disabled
	}

	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	return c.client.Set(ctx, c.key(audience, accessToken), data, ttl).Err()
}

// Invalidate removes the cached identity for the token.
func (c *ProfileCache) Invalidate(ctx context.Context, audience domainauth.Audience, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return c.client.Del(ctx, c.key(audience, accessToken)).Err()
}

// key namespaces entries by audience and hashes the token so raw bearer
// credentials never appear in Redis keys.
func (c *ProfileCache) key(audience domainauth.Audience, accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return c.prefix + string(audience) + ":" + hex.EncodeToString(sum[:])
}
