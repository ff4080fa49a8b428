package extsession

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed external session store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "extsession:",
	}
}

func (r *RedisStore) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *RedisStore) Create(ctx context.Context, e External) error {
	if e.SessionID == "" || e.ExternalID == "" {
		return fmt.Errorf("extsession: missing session_id or external_id")
	}

	ttl := time.Until(e.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("extsession: expires_at must be in the future")
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("extsession: failed to marshal: %w", err)
	}

	return r.client.Set(ctx, r.key(e.SessionID), data, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*External, error) {
	val, err := r.client.Get(ctx, r.key(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}

	var e External
	if err := json.Unmarshal([]byte(val), &e); err != nil {
		return nil, fmt.Errorf("extsession: failed to unmarshal: %w", err)
	}

	return &e, nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.key(sessionID)).Err()
}
