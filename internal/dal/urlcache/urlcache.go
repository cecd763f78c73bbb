package urlcache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the cache backend. Get returns ("", nil) on a miss; a miss
// is a normal code path, not a failure.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Signer issues time-limited signed retrieval URLs for storage keys.
type Signer interface {
	PresignedGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Cache fronts signed-URL issuance with a short-TTL cache keyed by
// (user, order). The TTL is strictly shorter than the signed URL's own
// expiry so a cached link is never served past its validity.
type Cache struct {
	store      Store
	signer     Signer
	signExpiry time.Duration
	ttl        time.Duration
}

// New creates a Cache. The cache TTL must be strictly less than the
// presign expiry.
func New(store Store, signer Signer, signExpiry, ttl time.Duration) (*Cache, error) {
	if ttl >= signExpiry {
		return nil, fmt.Errorf("cache ttl %s must be strictly less than sign expiry %s", ttl, signExpiry)
	}

	return &Cache{
		store:      store,
		signer:     signer,
		signExpiry: signExpiry,
		ttl:        ttl,
	}, nil
}

func cacheKey(userID int64, orderID string) string {
	return fmt.Sprintf("invoice-url:%d:%s", userID, orderID)
}

// GetURL returns the cached signed URL for (userID, orderID), signing
// and caching a fresh one on a miss. Concurrent misses may each sign a
// URL; duplicate signing is cheap and side-effect-free.
func (c *Cache) GetURL(ctx context.Context, userID int64, orderID, storageKey string) (string, error) {
	key := cacheKey(userID, orderID)

	cached, err := c.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to read url cache: %w", err)
	}
	if cached != "" {
		return cached, nil
	}

	url, err := c.signer.PresignedGet(ctx, storageKey, c.signExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to sign url: %w", err)
	}

	if err := c.store.Set(ctx, key, url, c.ttl); err != nil {
		return "", fmt.Errorf("failed to write url cache: %w", err)
	}

	return url, nil
}

// redisStore is the production Store backed by redis.
type redisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Store over a redis instance.
func NewRedisStore(addr string) Store {
	return &redisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return val, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}
