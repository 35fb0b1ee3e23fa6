// Package storage opens the configured key-value backend for the client stores.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/jrsteele09/go-kyc-onboarding/internal/config"
	"github.com/jrsteele09/go-kyc-onboarding/kv"
	"github.com/jrsteele09/go-kyc-onboarding/kv/filekv"
	"github.com/jrsteele09/go-kyc-onboarding/kv/rediskv"
	"github.com/jrsteele09/go-kyc-onboarding/kv/securekv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Config interface {
	GetDataFolder() string
	config.StorageConfig
}

// Stores pairs a plain store with an encrypted view over a separate namespace.
// The session store uses Secure; onboarding and theme use Plain.
type Stores struct {
	Plain  kv.Store
	Secure kv.Store

	closers []func() error
}

// Open builds the backend named by cfg.GetStorageBackend().
func Open(ctx context.Context, cfg Config, opts ...securekv.Option) (*Stores, error) {
	stores := &Stores{}

	var plain, secret kv.Store
	switch cfg.GetStorageBackend() {
	case config.StorageMemory:
		plain, secret = kv.NewMemory(), kv.NewMemory()

	case config.StorageFile:
		root := filepath.Join(cfg.GetDataFolder(), "client")
		p, err := filekv.New(filepath.Join(root, "plain"))
		if err != nil {
			return nil, err
		}
		s, err := filekv.New(filepath.Join(root, "secure"))
		if err != nil {
			return nil, err
		}
		plain, secret = p, s

	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.GetRedisAddr()})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("[storage Open] redis %s: %w", cfg.GetRedisAddr(), err)
		}
		stores.closers = append(stores.closers, client.Close)
		plain = rediskv.New(client, rediskv.WithPrefix(rediskv.DefaultPrefix+"plain:"))
		secret = rediskv.New(client, rediskv.WithPrefix(rediskv.DefaultPrefix+"secure:"))

	default:
		return nil, fmt.Errorf("[storage Open] unknown storage backend %q", cfg.GetStorageBackend())
	}

	secure, err := securekv.New(ctx, secret, cfg.GetStoragePassphrase(), opts...)
	if err != nil {
		_ = stores.Close()
		return nil, fmt.Errorf("[storage Open] %w", err)
	}

	stores.Plain = plain
	stores.Secure = secure
	log.Debug().Str("backend", cfg.GetStorageBackend()).Msg("client storage opened")
	return stores, nil
}

// Close releases backend connections.
func (s *Stores) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	s.closers = nil
	return errors.Join(errs...)
}
