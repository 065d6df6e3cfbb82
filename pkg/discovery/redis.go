package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v9"

	"github.com/greymatter-io/meshdemo/pkg/wellknown"
)

// RedisResolver resolves bindings that provisioning published to Redis.
type RedisResolver struct {
	rdb redisClient
}

// redisClient is the subset of *redis.Client a RedisResolver uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// NewRedisResolver connects to the Redis server at url, e.g. redis://localhost:6379/0.
func NewRedisResolver(url string) (*RedisResolver, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return &RedisResolver{rdb: redis.NewClient(opts)}, nil
}

// RedisKey is where the binding of identity in namespace is stored.
func RedisKey(namespace, identity string) string {
	return fmt.Sprintf("%s:discovery:%s:%s", wellknown.REDIS_KEY_PREFIX, namespace, identity)
}

func (r *RedisResolver) ResolveDiscoveryBinding(ctx context.Context, identity, namespace string) (Binding, error) {
	data, err := r.rdb.Get(ctx, RedisKey(namespace, identity)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Binding{}, unresolved(identity, namespace)
	}
	if err != nil {
		return Binding{}, fmt.Errorf("failed to read binding for %s: %w", identity, err)
	}

	var b Binding
	if err := json.Unmarshal(data, &b); err != nil {
		return Binding{}, fmt.Errorf("failed to decode binding for %s: %w", identity, err)
	}
	return b, nil
}

// Publish stores b so that later resolutions find it.
func (r *RedisResolver) Publish(ctx context.Context, b Binding) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, RedisKey(b.Namespace, b.Identity), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to publish binding for %s: %w", b.Identity, err)
	}
	logger.Info("Published discovery binding", "Identity", b.Identity, "Hostname", b.Hostname())
	return nil
}

func (r *RedisResolver) Close() error {
	return r.rdb.Close()
}
