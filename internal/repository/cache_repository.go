package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

// redisClient is the subset of go-redis used by the cache.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Unlink(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// CacheRepository keeps JSON snapshots of admin payloads (saved queries, model documentation)
// in Redis under a shared key prefix.
type CacheRepository struct {
	client redisClient
	prefix string
	logger *zap.Logger
}

// NewCacheRepository wraps client. Every key is namespaced with prefix.
func NewCacheRepository(client redisClient, prefix string, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, prefix: prefix, logger: logger}
}

func (r *CacheRepository) key(name string) string { return r.prefix + name }

// Get decodes the snapshot stored under name into dest. A missing entry yields ErrCacheMiss.
func (r *CacheRepository) Get(ctx context.Context, name string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}
	raw, err := r.client.Get(ctx, r.key(name)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return appErrors.ErrCacheMiss
	case err != nil:
		return fmt.Errorf("cache read %q: %w", name, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// a snapshot that no longer decodes is treated as absent and dropped
		r.logger.Warn("discarding undecodable cache entry", zap.String("key", name), zap.Error(err))
		_ = r.client.Unlink(ctx, r.key(name)).Err()
		return appErrors.ErrCacheMiss
	}
	return nil
}

// Set stores value under name for ttl.
func (r *CacheRepository) Set(ctx context.Context, name string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %q: %w", name, err)
	}
	return r.client.Set(ctx, r.key(name), payload, ttl).Err()
}

// Delete drops the named entries.
func (r *CacheRepository) Delete(ctx context.Context, names ...string) error {
	if r.client == nil || len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = r.key(name)
	}
	if err := r.client.Unlink(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete %v: %w", names, err)
	}
	return nil
}

// Close shuts the Redis connection pool.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
