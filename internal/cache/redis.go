package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/course-engine/internal/models"
)

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCache implements ViewCache on Redis. Each course keeps a set of its
// view keys so invalidation does not need a keyspace scan.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get returns the cached view, if any
func (c *RedisCache) Get(ctx context.Context, courseID string, level models.PopulateLevel, includeCategory bool) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, ViewKey(courseID, level, includeCategory)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cached view: %w", err)
	}
	return data, true, nil
}

// Version returns the invalidation counter of a course
func (c *RedisCache) Version(ctx context.Context, courseID string) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(courseID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read view version: %w", err)
	}
	return v, nil
}

var errStaleView = errors.New("view built before the last invalidation")

// Set stores a view and records its key in the course index. The write is
// skipped when the course was invalidated after version was read.
func (c *RedisCache) Set(ctx context.Context, courseID string, level models.PopulateLevel, includeCategory bool, version int64, data []byte) error {
	key := ViewKey(courseID, level, includeCategory)
	index := indexKey(courseID)
	vkey := versionKey(courseID)

	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleView
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			pipe.SAdd(ctx, index, key)
			pipe.Expire(ctx, index, c.ttl)
			return nil
		})
		return err
	}, vkey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, errStaleView), errors.Is(err, redis.TxFailedErr):
		slog.Debug("skipping stale course view", "course_id", courseID, "level", level.String())
		return nil
	default:
		return fmt.Errorf("failed to cache view: %w", err)
	}
}

// InvalidateCourse bumps the course version and deletes every cached view
func (c *RedisCache) InvalidateCourse(ctx context.Context, courseID string) error {
	index := indexKey(courseID)

	if err := c.client.Incr(ctx, versionKey(courseID)).Err(); err != nil {
		return fmt.Errorf("failed to bump view version: %w", err)
	}

	keys, err := c.client.SMembers(ctx, index).Result()
	if err != nil {
		return fmt.Errorf("failed to read view index: %w", err)
	}

	if err := c.client.Del(ctx, append(keys, index)...).Err(); err != nil {
		return fmt.Errorf("failed to delete cached views: %w", err)
	}

	slog.Debug("course views invalidated", "course_id", courseID, "keys", len(keys))
	return nil
}

// Flush removes every course view key, including stale ones whose index has
// expired.
func (c *RedisCache) Flush(ctx context.Context) error {
	var cursor uint64
	var keysDeleted int

	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, "course:view*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("failed to delete some keys", "error", err)
			}
			keysDeleted += len(keys)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	slog.Info("view cache flushed", "keys_deleted", keysDeleted)
	return nil
}

// HealthCheck verifies Redis connectivity
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
