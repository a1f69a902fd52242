package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// TokenCache is a read-through cache for the active barcode of a supervisor.
//
// It is never authoritative: issuance and redemption always go to Postgres,
// which owns the single-active-token invariant. Entries expire with the token
// itself, so a stale read can never outlive the credential.
type TokenCache struct {
	client *redis.Client
}

// NewTokenCache builds a cache over an existing redis connection.
func NewTokenCache(r *Redis) *TokenCache {
	if r == nil {
		return &TokenCache{}
	}
	return &TokenCache{client: r.Client}
}

func tokenKey(supervisorID int64) string {
	return fmt.Sprintf("barcode:active:%d", supervisorID)
}

// Put stores the active token payload until its expiry.
func (c *TokenCache) Put(ctx context.Context, supervisorID int64, payload any, expiresAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, tokenKey(supervisorID), data, ttl).Err()
}

// Get loads the cached token into dst. Returns false on miss or any redis error.
func (c *TokenCache) Get(ctx context.Context, supervisorID int64, dst any) bool {
	if c == nil || c.client == nil {
		return false
	}
	data, err := c.client.Get(ctx, tokenKey(supervisorID)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

// Drop removes a cached token, used when a token is superseded.
func (c *TokenCache) Drop(ctx context.Context, supervisorID int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, tokenKey(supervisorID)).Err()
}
