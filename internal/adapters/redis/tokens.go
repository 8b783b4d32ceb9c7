package redisad

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore keeps one reader session's admin token under admin_token:<session>.
type TokenStore struct {
	c   *redis.Client
	key string
	ttl time.Duration
}

// NewTokenStore scopes a store to sessionID. ttl 0 keeps the key forever.
func NewTokenStore(c *redis.Client, sessionID string, ttl time.Duration) *TokenStore {
	return &TokenStore{c: c, key: "admin_token:" + sessionID, ttl: ttl}
}

func (s *TokenStore) Load(ctx context.Context) (string, error) {
	v, err := s.c.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (s *TokenStore) Save(ctx context.Context, token string) error {
	return s.c.Set(ctx, s.key, token, s.ttl).Err()
}

func (s *TokenStore) Clear(ctx context.Context) error {
	return s.c.Del(ctx, s.key).Err()
}

// Refresh restarts the key's ttl, keeping an active session's token past its first ttl.
func (s *TokenStore) Refresh(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	return s.c.Expire(ctx, s.key, s.ttl).Err()
}
