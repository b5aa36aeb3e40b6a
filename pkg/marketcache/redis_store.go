package marketcache

import (
	"context"
	"errors"
	"time"

	"web3-token-agent/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisStore 使用 redis 作为第二层，过期交给 redis 自身 TTL
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.rdb.Get(ctx, utils.RedisCacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, utils.RedisCacheKey(key), value, ttl).Err()
}
