package filekv_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-kyc-onboarding/kv"
	"github.com/jrsteele09/go-kyc-onboarding/kv/filekv"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "store")
	s, err := filekv.New(dir)
	require.NoError(t, err)

	_, err = s.Get(ctx, "auth-store")
	require.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, s.Set(ctx, "auth-store", []byte(`{"status":"logged_in"}`)))
	require.NoError(t, s.Set(ctx, "auth-store", []byte(`{"status":"logged_out"}`)))

	got, err := s.Get(ctx, "auth-store")
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"logged_out"}`, string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")

	info, err := os.Stat(filepath.Join(dir, "auth-store.json"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, s.Delete(ctx, "auth-store"))
	require.NoError(t, s.Delete(ctx, "auth-store"))
	_, err = s.Get(ctx, "auth-store")
	require.ErrorIs(t, err, kv.ErrNotFound)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := filekv.New(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "theme/store", []byte("dark")))

	second, err := filekv.New(dir)
	require.NoError(t, err)
	got, err := second.Get(ctx, "theme/store")
	require.NoError(t, err)
	require.Equal(t, "dark", string(got))
}

func TestFileStoreRejectsEmptyKey(t *testing.T) {
	s, err := filekv.New(t.TempDir())
	require.NoError(t, err)
	require.Error(t, s.Set(context.Background(), "", nil))
}
