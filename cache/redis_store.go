package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis hashes. Field operations map 1:1
// onto HGET/HSET/HDEL, so per-field atomicity comes from Redis itself.
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
}

// DefaultRedisAddr is used when no address is configured.
const DefaultRedisAddr = "localhost:6379"

// NewRedisStore connects to the Redis server at addr. password may be
// empty; db selects the Redis logical database.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	if addr == "" {
		addr = DefaultRedisAddr
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{
		client: client,
		ctx:    context.Background(),
	}, nil
}

// NewRedisStoreFromConfig builds a RedisStore from a StoreConfig.
func NewRedisStoreFromConfig(config StoreConfig) (*RedisStore, error) {
	addr, _ := config.Config["addr"].(string)
	password, _ := config.Config["password"].(string)

	db := 0
	switch v := config.Config["db"].(type) {
	case int:
		db = v
	case float64:
		// JSON-decoded configs deliver numbers as float64.
		db = int(v)
	case nil:
	default:
		return nil, fmt.Errorf("redis cache store: invalid 'db' value %v", v)
	}

	return NewRedisStore(addr, password, db)
}

func (s *RedisStore) GetField(hash, field string) (string, bool, error) {
	value, err := s.client.HGet(s.ctx, hash, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis cache store: failed to read %s/%s: %w", hash, field, err)
	}
	return value, true, nil
}

func (s *RedisStore) SetField(hash, field, value string) error {
	if err := s.client.HSet(s.ctx, hash, field, value).Err(); err != nil {
		return fmt.Errorf("redis cache store: failed to write %s/%s: %w", hash, field, err)
	}
	return nil
}

func (s *RedisStore) DeleteField(hash, field string) error {
	if err := s.client.HDel(s.ctx, hash, field).Err(); err != nil {
		return fmt.Errorf("redis cache store: failed to delete %s/%s: %w", hash, field, err)
	}
	return nil
}

func (s *RedisStore) Ping() error {
	return s.client.Ping(s.ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) GetType() string {
	return string(StoreTypeRedis)
}
