package theme_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-kyc-onboarding/kv"
	"github.com/jrsteele09/go-kyc-onboarding/theme"
	"github.com/stretchr/testify/require"
)

func TestFollowsSystemUntilPinned(t *testing.T) {
	s := theme.New(kv.NewMemory(), theme.Light)
	require.Equal(t, theme.State{Theme: theme.Light, IsSystem: true}, s.State())

	s.SetSystemTheme(theme.Dark)
	require.Equal(t, theme.Dark, s.State().Theme)

	s.SetTheme(theme.Light)
	require.Equal(t, theme.State{Theme: theme.Light}, s.State())

	s.SetSystemTheme(theme.Dark)
	require.Equal(t, theme.Light, s.State().Theme, "a pinned theme ignores the system")

	s.SetIsSystem(true)
	s.SetSystemTheme(theme.Light)
	require.Equal(t, theme.State{Theme: theme.Light, IsSystem: true}, s.State())
}

func TestRapidToggles(t *testing.T) {
	s := theme.New(nil, theme.Dark)
	for _, th := range []theme.Theme{theme.Light, theme.Dark, theme.Light, theme.Dark, theme.Light} {
		s.SetTheme(th)
	}
	require.Equal(t, theme.State{Theme: theme.Light}, s.State())
}

func TestEffective(t *testing.T) {
	s := theme.New(kv.NewMemory(), theme.Dark)
	s.SetTheme(theme.Unspecified)
	require.Equal(t, theme.Dark, s.Effective())
	s.SetTheme(theme.Light)
	require.Equal(t, theme.Light, s.Effective())
}

func TestHydrate(t *testing.T) {
	storage := kv.NewMemory()
	pinned := theme.New(storage, theme.Light)
	pinned.SetTheme(theme.Dark)

	restored := theme.New(storage, theme.Light)
	require.False(t, restored.IsHydrated())
	require.NoError(t, restored.Hydrate(context.Background()))
	require.True(t, restored.IsHydrated())
	require.Equal(t, theme.State{Theme: theme.Dark}, restored.State())

	following := theme.New(storage, theme.Dark)
	following.SetIsSystem(true)

	// The system switched to light while the app was closed.
	resynced := theme.New(storage, theme.Light)
	require.NoError(t, resynced.Hydrate(context.Background()))
	require.Equal(t, theme.State{Theme: theme.Light, IsSystem: true}, resynced.State())
}

func TestWaitHydrated(t *testing.T) {
	s := theme.New(kv.NewMemory(), theme.Dark)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.WaitHydrated(ctx), context.Canceled)

	done := make(chan error, 1)
	go func() { done <- s.WaitHydrated(context.Background()) }()
	require.NoError(t, s.Hydrate(context.Background()))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitHydrated did not return after Hydrate")
	}
	select {
	case <-s.Hydrated():
	default:
		t.Fatal("hydrated channel still open")
	}
}

func TestHydrateRejectsUnknownTheme(t *testing.T) {
	storage := kv.NewMemory()
	require.NoError(t, kv.SetJSON(context.Background(), storage, theme.DefaultStorageKey, theme.State{Theme: "sepia"}))

	s := theme.New(storage, theme.Dark)
	require.NoError(t, s.Hydrate(context.Background()))
	require.Equal(t, theme.State{Theme: theme.Dark, IsSystem: true}, s.State())
}

func TestParse(t *testing.T) {
	th, err := theme.Parse("dark")
	require.NoError(t, err)
	require.Equal(t, theme.Dark, th)
	_, err = theme.Parse("sepia")
	require.Error(t, err)
}
