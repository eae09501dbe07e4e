package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of *redis.Client used by RedisStore.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// RedisStore keeps keys in Redis without expiry.
type RedisStore struct {
	client RedisClient
}

// Ensure RedisStore implements Store interface.
var _ Store = (*RedisStore)(nil)

// NewRedis wraps an existing client.
func NewRedis(client RedisClient) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedis connects to addr, retrying the initial ping up to maxAttempts times.
func DialRedis(ctx context.Context, addr, password string, db, maxAttempts int) (*RedisStore, error) {
	var client *redis.Client
	err := doWithTries(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		client = redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return err
		}
		return nil
	}, maxAttempts, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to redis after %d attempts: %w", maxAttempts, err)
	}
	return NewRedis(client), nil
}

func doWithTries(fn func() error, attempts int, delay time.Duration) (err error) {
	for attempts > 0 {
		if err = fn(); err != nil {
			attempts--
			if attempts > 0 {
				time.Sleep(delay)
			}
			continue
		}
		return nil
	}
	return err
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// DatabaseType returns the database backend name.
func (s *RedisStore) DatabaseType() string {
	return "Redis"
}

// Get returns the value of key, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

// Set stores value under key without expiry.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

// Delete removes keys. Missing keys are ignored.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
