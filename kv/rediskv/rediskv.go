// Package rediskv stores values in Redis under a key prefix.
package rediskv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-kyc-onboarding/kv"
	"github.com/redis/go-redis/v9"
)

const DefaultPrefix = "kyc:"

type Option func(*Store)

// WithPrefix namespaces all keys.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires values after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// Store is a kv.Store backed by a Redis client.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ kv.Store = (*Store)(nil)

func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) redisKey(key string) string {
	return s.prefix + key
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[rediskv Get] %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.redisKey(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("[rediskv Set] %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("[rediskv Delete] %s: %w", key, err)
	}
	return nil
}
