package profilecache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "viewer:profile-cache"

// RedisStore keeps the cache as one JSON value at a fixed key. A zero
// TTL means entries never expire.
type RedisStore struct {
	redis *redis.Client
	key   string
	ttl   time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a redis-backed store.
func NewRedisStore(client *redis.Client, key string, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("profilecache: redis client cannot be nil")
	}
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisStore{redis: client, key: key, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context) (map[string]Entry, error) {
	data, err := s.redis.Get(ctx, s.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return map[string]Entry{}, nil
		}
		return nil, &PersistenceError{Op: "load", Err: err}
	}

	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	if entries == nil {
		entries = map[string]Entry{}
	}
	return entries, nil
}

func (s *RedisStore) Save(ctx context.Context, entries map[string]Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	if err := s.redis.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}
