package flagstore

import (
	"context"
	"sort"

	"github.com/redis/go-redis/v9"
)

var redisFlagsPrefix string = "turnstile/flags/"

type RedisFlagStore struct {
	Client *redis.Client
}

var _ FlagStore = (*RedisFlagStore)(nil)

func NewRedisFlagStore(ctx context.Context, rdb *redis.Client) (*RedisFlagStore, error) {
	// check redis connection
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, err
	}
	return &RedisFlagStore{Client: rdb}, nil
}

func (s *RedisFlagStore) Get(ctx context.Context, key string) ([]string, error) {
	l, err := s.Client.SMembers(ctx, redisFlagsPrefix+key).Result()
	if err == redis.Nil {
		return []string{}, nil
	} else if err != nil {
		return nil, err
	}
	sort.Strings(l)
	return l, nil
}

func (s *RedisFlagStore) Add(ctx context.Context, key string, flags []string) error {
	if len(flags) == 0 {
		return nil
	}
	l := make([]interface{}, len(flags))
	for i, v := range flags {
		l[i] = v
	}
	return s.Client.SAdd(ctx, redisFlagsPrefix+key, l...).Err()
}

func (s *RedisFlagStore) Remove(ctx context.Context, key string, flags []string) error {
	if len(flags) == 0 {
		return nil
	}
	l := make([]interface{}, len(flags))
	for i, v := range flags {
		l[i] = v
	}
	return s.Client.SRem(ctx, redisFlagsPrefix+key, l...).Err()
}
