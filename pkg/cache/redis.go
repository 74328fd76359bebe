package cache

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "freeleech:seen"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisStore keeps the ids in a redis list so several hosts can share one
// cache. Runs still must not overlap.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(cfg RedisConfig) *RedisStore {
	key := cfg.Key
	if key == "" {
		key = DefaultRedisKey
	}

	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		key: key,
	}
}

func (s *RedisStore) String() string {
	return fmt.Sprintf("redis://%s/%s", s.client.Options().Addr, s.key)
}

func (s *RedisStore) Load(ctx context.Context) ([]string, error) {
	t, err := s.client.Type(ctx, s.key).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis type")
	}

	switch t {
	case "none":
		return nil, nil
	case "list":
	default:
		return nil, fmt.Errorf("%w: key %s holds a %s", ErrCacheCorrupt, s.key, t)
	}

	ids, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis lrange")
	}
	return ids, nil
}

func (s *RedisStore) Save(ctx context.Context, ids []string) error {
	values := make([]interface{}, len(ids))
	for i, id := range ids {
		values[i] = id
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.RPush(ctx, s.key, values...)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "redis replace list")
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
