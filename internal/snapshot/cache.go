package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultCacheKey = "salon:schedule:last_good"

// Cached is the last schedule payload that was fetched successfully.
type Cached struct {
	Raw       json.RawMessage `json:"raw"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Cache persists the last good payload so a restarted service can serve a
// stale schedule while the spreadsheet service is unreachable.
type Cache interface {
	// Load returns nil, nil when nothing is cached.
	Load(ctx context.Context) (*Cached, error)
	Store(ctx context.Context, entry Cached) error
}

// RedisCache keeps the payload under a single key with a TTL.
type RedisCache struct {
	redis  *redis.Client
	key    string
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisCache returns nil when redisClient is nil.
func NewRedisCache(redisClient *redis.Client, key string, ttl time.Duration) *RedisCache {
	if redisClient == nil {
		return nil
	}
	if key == "" {
		key = defaultCacheKey
	}
	return &RedisCache{
		redis:  redisClient,
		key:    key,
		ttl:    ttl,
		tracer: otel.Tracer("salon.internal.snapshot.cache"),
	}
}

func (c *RedisCache) Load(ctx context.Context) (*Cached, error) {
	if c == nil || c.redis == nil {
		return nil, nil
	}
	ctx, span := c.tracer.Start(ctx, "snapshot.cache.load")
	defer span.End()

	data, err := c.redis.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("snapshot: load cache: %w", err)
	}

	var entry Cached
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("snapshot: decode cache: %w", err)
	}
	return &entry, nil
}

func (c *RedisCache) Store(ctx context.Context, entry Cached) error {
	if c == nil || c.redis == nil {
		return nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("snapshot: encode cache: %w", err)
	}

	ctx, span := c.tracer.Start(ctx, "snapshot.cache.store")
	defer span.End()

	if err := c.redis.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("snapshot: store cache: %w", err)
	}
	return nil
}
