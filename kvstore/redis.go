package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const redisScanCount = 256

// RedisStore is a Store backed by plain Redis strings.
//
// Keys performs a SCAN over the connected node; against a cluster client it only
// sees the keys of the node the command is routed to.
type RedisStore struct {
	redis redis.UniversalClient
}

// NewRedisStore wraps a Redis client. The client is not closed by the store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{redis: client}
}

// Put writes value under key with no expiry.
//
//	Performance: 1 Redis SET.
func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.redis.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Get reads key. A missing key yields (nil, nil).
//
//	Performance: 1 Redis GET.
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return &Entry{Key: key, Value: data}, nil
}

// Purge deletes key. Purging a missing key is not an error.
//
//	Performance: 1 Redis DEL.
func (s *RedisStore) Purge(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Keys lists every key starting with prefix.
func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	iter := s.redis.Scan(ctx, 0, escapeGlob(prefix)+"*", redisScanCount).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return out, nil
}

var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

// NewRedisDialer returns a Connector that opens a dedicated client per Acquire and
// closes it on release.
func NewRedisDialer(opts *redis.Options) Connector {
	return ConnectorFunc(func(context.Context) (Store, ReleaseFunc, error) {
		if opts == nil {
			return nil, nil, errors.New("kvstore: nil redis options")
		}
		client := redis.NewClient(opts)
		return NewRedisStore(client), client.Close, nil
	})
}
