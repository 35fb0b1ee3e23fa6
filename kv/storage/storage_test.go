package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-kyc-onboarding/internal/config"
	"github.com/jrsteele09/go-kyc-onboarding/kv"
	"github.com/jrsteele09/go-kyc-onboarding/kv/securekv"
	"github.com/jrsteele09/go-kyc-onboarding/kv/storage"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	backend    string
	folder     string
	redisAddr  string
	passphrase string
}

func (c testConfig) GetDataFolder() string            { return c.folder }
func (c testConfig) GetStorageBackend() string        { return c.backend }
func (c testConfig) GetRedisAddr() string             { return c.redisAddr }
func (c testConfig) GetStoragePassphrase() string     { return c.passphrase }
func (c testConfig) GetRequestTimeout() time.Duration { return time.Second }

var cheap = securekv.WithParams(securekv.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16})

func exercise(t *testing.T, stores *storage.Stores) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, stores.Plain.Set(ctx, "theme-store", []byte("dark")))
	require.NoError(t, stores.Secure.Set(ctx, "auth-store", []byte("secret")))

	got, err := stores.Secure.Get(ctx, "auth-store")
	require.NoError(t, err)
	require.Equal(t, "secret", string(got))

	_, err = stores.Plain.Get(ctx, "auth-store")
	require.ErrorIs(t, err, kv.ErrNotFound)
}

func TestOpenBackends(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		stores, err := storage.Open(context.Background(), testConfig{backend: config.StorageMemory, passphrase: "pw"}, cheap)
		require.NoError(t, err)
		exercise(t, stores)
	})

	t.Run("file", func(t *testing.T) {
		cfg := testConfig{backend: config.StorageFile, folder: t.TempDir(), passphrase: "pw"}
		stores, err := storage.Open(context.Background(), cfg, cheap)
		require.NoError(t, err)
		exercise(t, stores)

		_, err = storage.Open(context.Background(), testConfig{backend: config.StorageFile, folder: cfg.folder, passphrase: "other"}, cheap)
		require.ErrorIs(t, err, securekv.ErrWrongPassphrase)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		stores, err := storage.Open(context.Background(), testConfig{backend: config.StorageRedis, redisAddr: mr.Addr(), passphrase: "pw"}, cheap)
		require.NoError(t, err)
		t.Cleanup(func() { _ = stores.Close() })
		exercise(t, stores)
		require.True(t, mr.Exists("kyc:plain:theme-store"))
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := storage.Open(context.Background(), testConfig{backend: "s3", passphrase: "pw"}, cheap)
		require.Error(t, err)
	})
}
