package identity

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReservationStore records fabricated identifiers so no two events in a
// run (or, with the Redis store, across runs) reuse one.
type ReservationStore interface {
	// Reserve claims an identifier. It returns false when the
	// identifier was already taken.
	Reserve(ctx context.Context, id string) (bool, error)
}

// MemoryStore is the in-process reservation set used by default.
type MemoryStore struct {
	taken map[string]struct{}
}

// NewMemoryStore creates an empty in-memory reservation set.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{taken: make(map[string]struct{})}
}

// Reserve claims an identifier in the in-memory set. It never fails.
func (m *MemoryStore) Reserve(_ context.Context, id string) (bool, error) {
	if _, ok := m.taken[id]; ok {
		return false, nil
	}
	m.taken[id] = struct{}{}
	return true, nil
}

// RedisStoreConfig holds connection settings for the Redis-backed store.
type RedisStoreConfig struct {
	Addr        string
	Password    string
	DB          int
	Key         string
	DialTimeout time.Duration
	TLSEnabled  bool
}

// RedisStore keeps the reservation set in a Redis set, so repeated
// fixture refreshes against the same store never reuse a throwaway
// principal.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisStoreConfig) (*RedisStore, error) {
	opts := &redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	}

	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, key: cfg.Key}, nil
}

// Reserve claims an identifier via SADD; a zero added-count means the
// identifier was already in the set.
func (r *RedisStore) Reserve(ctx context.Context, id string) (bool, error) {
	added, err := r.client.SAdd(ctx, r.key, id).Result()
	if err != nil {
		return false, err
	}
	return added == 1, nil
}

// Close releases the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
