package kv_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-kyc-onboarding/kv"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := kv.NewMemory()

	_, err := m.Get(ctx, "auth-store")
	require.ErrorIs(t, err, kv.ErrNotFound)

	value := []byte("hello")
	require.NoError(t, m.Set(ctx, "auth-store", value))
	value[0] = 'j'

	got, err := m.Get(ctx, "auth-store")
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))

	require.NoError(t, m.Delete(ctx, "auth-store"))
	require.NoError(t, m.Delete(ctx, "auth-store"))
	_, err = m.Get(ctx, "auth-store")
	require.ErrorIs(t, err, kv.ErrNotFound)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := kv.NewMemory()

	type state struct {
		Theme string `json:"theme"`
	}
	require.NoError(t, kv.SetJSON(ctx, m, "theme-store", state{Theme: "dark"}))

	var got state
	require.NoError(t, kv.GetJSON(ctx, m, "theme-store", &got))
	require.Equal(t, "dark", got.Theme)

	require.NoError(t, m.Set(ctx, "broken", []byte("{")))
	require.Error(t, kv.GetJSON(ctx, m, "broken", &got))
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, kv.NewMemory().Set(ctx, "k", nil), context.Canceled)
}
