package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "agenda:reply-dedup:"

// RedisCache is a DedupCache backed by Redis keys with a TTL.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache wraps client. A nil client yields a nil cache.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	if client == nil {
		return nil
	}
	return &RedisCache{client: client}
}

func cacheKey(meetingID int64, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s%d:%s", cacheKeyPrefix, meetingID, hex.EncodeToString(sum[:]))
}

// Lookup returns the remembered reply id, if any.
func (c *RedisCache) Lookup(ctx context.Context, meetingID int64, text string) (uuid.UUID, bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(meetingID, text)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt dedup entry: %w", err)
	}
	return id, true, nil
}

// Remember stores id for ttl. An existing entry is kept.
func (c *RedisCache) Remember(ctx context.Context, meetingID int64, text string, id uuid.UUID, ttl time.Duration) error {
	return c.client.SetNX(ctx, cacheKey(meetingID, text), id.String(), ttl).Err()
}
