package preference

import (
	"context"
	"fmt"
	"slices"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "vaultline:prefs:"

// RedisStore keeps each preference set as a Redis set.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(owner, key string) string {
	return redisKeyPrefix + owner + ":" + key
}

func (s *RedisStore) Members(ctx context.Context, owner, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, redisKey(owner, key)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	slices.Sort(members)
	return members, nil
}

// MembersByKeys pipelines one SMEMBERS per key.
func (s *RedisStore) MembersByKeys(ctx context.Context, owner string, keys []string) (map[string][]string, error) {
	cmds := make([]*redis.StringSliceCmd, len(keys))
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = p.SMembers(ctx, redisKey(owner, k))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis pipeline smembers: %w", err)
	}
	out := make(map[string][]string, len(keys))
	for i, k := range keys {
		members := cmds[i].Val()
		slices.Sort(members)
		out[k] = members
	}
	return out, nil
}

func (s *RedisStore) Add(ctx context.Context, owner, key, member string) (bool, error) {
	n, err := s.client.SAdd(ctx, redisKey(owner, key), member).Result()
	if err != nil {
		return false, fmt.Errorf("redis sadd: %w", err)
	}
	return n > 0, nil
}
