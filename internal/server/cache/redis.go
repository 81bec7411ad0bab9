package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ergoauth/internal/server/models"
	"github.com/redis/go-redis/v9"
)

// Redis is a UserCache stored as JSON strings with a per-key TTL.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis wraps client. Keys look like "<prefix>:user:<id>".
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(id string) string {
	return fmt.Sprintf("%s:user:%s", r.prefix, id)
}

// Get treats any Redis or decoding failure as a miss.
func (r *Redis) Get(ctx context.Context, id string) (*models.User, bool) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false
	}
	return e.user(), true
}

func (r *Redis) Set(ctx context.Context, u *models.User) error {
	b, err := json.Marshal(toEntry(u))
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := r.client.Set(ctx, r.key(u.ID), b, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set user in Redis: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to delete user from Redis: %w", err)
	}
	return nil
}
