package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"onfawiki/internal/wiki"
)

// RedisKey is the hash holding the document body and its write time.
const RedisKey = "onfawiki:document"

// RedisStore keeps the document in one Redis hash.
type RedisStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// OpenRedis builds a client from a redis:// or rediss:// URL.
func OpenRedis(rawURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, &wiki.ConfigError{Key: URLKey, Reason: err.Error()}
	}
	return NewRedisStore(redis.NewClient(opts)), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, key: RedisKey, now: time.Now}
}

func (s *RedisStore) Kind() string { return "redis" }

// Close closes the client.
func (s *RedisStore) Close() error { return s.client.Close() }

// Fetch returns the stored document, writing an empty one on first access.
func (s *RedisStore) Fetch(ctx context.Context) (wiki.Document, error) {
	body, err := s.client.HGet(ctx, s.key, "body").Bytes()
	if errors.Is(err, redis.Nil) {
		doc := wiki.EmptyDocument()
		if err := s.Replace(ctx, doc); err != nil {
			return wiki.Document{}, err
		}
		return doc, nil
	}
	if err != nil {
		return wiki.Document{}, fmt.Errorf("redis hget: %w", err)
	}
	return decode(body)
}

// Replace writes body and updated_at in one HSET.
func (s *RedisStore) Replace(ctx context.Context, doc wiki.Document) error {
	body, err := encode(doc)
	if err != nil {
		return err
	}
	err = s.client.HSet(ctx, s.key,
		"body", string(body),
		"updated_at", s.now().UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

// UpdatedAt returns the time of the last write.
func (s *RedisStore) UpdatedAt(ctx context.Context) (time.Time, error) {
	raw, err := s.client.HGet(ctx, s.key, "updated_at").Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, &wiki.NotFoundError{Kind: "document", ID: s.key}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("redis hget: %w", err)
	}
	return time.Parse(time.RFC3339Nano, raw)
}
