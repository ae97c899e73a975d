package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/gateproof/authcore/internal/errors"
)

// redisEnvelope is the remote-tier wire payload. Data is carried base64
// encoded so callers can store arbitrary bytes, not only JSON documents.
// Compressed is an extension point; nothing sets it yet, but readers must
// tolerate it.
type redisEnvelope struct {
	Data       []byte `json:"data"`
	Compressed bool   `json:"compressed"`
}

func encodeEnvelope(value []byte) ([]byte, error) {
	raw, err := json.Marshal(redisEnvelope{Data: value})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode cache envelope")
	}
	return raw, nil
}

func decodeEnvelope(raw []byte) ([]byte, error) {
	var envelope redisEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode cache envelope")
	}
	return envelope.Data, nil
}

// RedisStore is the remote cache tier backed by go-redis. TTLs are applied at
// the store, independently from the memory tier.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore connects to the Redis URL and verifies the connection.
func NewRedisStore(url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, apperrors.Wrap(err, "invalid redis url")
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to connect to redis")
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client, used by tests.
func NewRedisStoreWithClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the unwrapped payload for key, or false when absent.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if apperrors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, apperrors.Wrap(err, "failed to read from redis")
	}

	value, err := decodeEnvelope(raw)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set wraps the value in the wire envelope and stores it with the TTL.
func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	raw, err := encodeEnvelope(value)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return apperrors.Wrap(err, "failed to write to redis")
	}
	return nil
}

// Delete removes the key.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return apperrors.Wrap(err, "failed to delete from redis")
	}
	return nil
}

// Clear scans for keys matching the prefix pattern and deletes them in
// batches. The pattern must be non-empty so a misconfigured caller cannot
// flush the whole database.
func (r *RedisStore) Clear(ctx context.Context, pattern string) error {
	if pattern == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "cannot clear remote cache without a pattern")
	}

	iter := r.client.Scan(ctx, 0, pattern+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 1000 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return apperrors.Wrap(err, "failed to delete from redis")
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return apperrors.Wrap(err, "failed to scan redis keys")
	}
	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return apperrors.Wrap(err, "failed to delete from redis")
		}
	}
	return nil
}

// Ping checks connectivity, used by readiness probes.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
