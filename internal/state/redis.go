package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// redisClient is the subset of *redis.Client used by RedisStore.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// redisRecord is the JSON envelope stored at each key.
type redisRecord struct {
	Data       []byte    `json:"data"`
	Compressed bool      `json:"compressed"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RedisStoreOpts configures a RedisStore.
type RedisStoreOpts struct {
	Client redisClient   // required
	Prefix string        // key prefix; default "deskbot"
	TTL    time.Duration // record expiry; 0 keeps records forever
}

// RedisStore keeps records under "<prefix>:<partition>:<row>". Expiry is
// delegated to redis TTLs, so it does not implement Purger.
type RedisStore struct {
	client redisClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a RedisStore.
func NewRedisStore(opts RedisStoreOpts) (*RedisStore, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("state: redis store: client is required")
	}
	if opts.Prefix == "" {
		opts.Prefix = "deskbot"
	}
	return &RedisStore{client: opts.Client, prefix: opts.Prefix, ttl: opts.TTL}, nil
}

// NewRedisClient connects to redis and verifies the connection with PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("state: ping redis %s: %w", addr, err)
	}
	return client, nil
}

func (s *RedisStore) redisKey(key Key) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, key.Partition, key.Row)
}

// Get reads the envelope stored for key.
func (s *RedisStore) Get(ctx context.Context, key Key) (Record, error) {
	raw, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("state: redis get %s: %w", key, err)
	}
	var rr redisRecord
	if err := json.Unmarshal(raw, &rr); err != nil {
		return Record{}, fmt.Errorf("state: redis decode %s: %w", key, err)
	}
	return Record{Data: rr.Data, Compressed: rr.Compressed, UpdatedAt: rr.UpdatedAt}, nil
}

// Put writes the envelope for key and refreshes its TTL.
func (s *RedisStore) Put(ctx context.Context, key Key, rec Record) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(redisRecord{Data: rec.Data, Compressed: rec.Compressed, UpdatedAt: rec.UpdatedAt})
	if err != nil {
		return fmt.Errorf("state: redis encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.redisKey(key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("state: redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key Key) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("state: redis del %s: %w", key, err)
	}
	return nil
}
