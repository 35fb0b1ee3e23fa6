package refresh_test

import (
	"sync"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-kyc-onboarding/internal/errors"
	"github.com/jrsteele09/go-kyc-onboarding/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-kyc-onboarding/token/refresh/repofake"
	"github.com/stretchr/testify/require"
)

type testOAuthConfig struct{}

func (testOAuthConfig) GetIssuer() string                           { return "http://issuer.test" }
func (testOAuthConfig) GetClientID() string                         { return "kyc-mobile" }
func (testOAuthConfig) GetRefreshTokenLength() int                  { return 16 }
func (testOAuthConfig) GetDefaultAccessTokenExpiry() time.Duration  { return time.Minute }
func (testOAuthConfig) GetDefaultRefreshTokenExpiry() time.Duration { return time.Hour }

func setupManager(t *testing.T) (*refresh.Manager, *time.Time) {
	t.Helper()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	original := refresh.NowTimeFunc
	refresh.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { refresh.NowTimeFunc = original })
	return refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), testOAuthConfig{}), &now
}

func TestCreateReplacesPreviousToken(t *testing.T) {
	m, _ := setupManager(t)

	first, err := m.Create("USR-001")
	require.NoError(t, err)
	require.Len(t, first.Token, 32)

	second, err := m.Create("USR-001")
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	_, err = m.Get(first.Token)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := m.Get(second.Token)
	require.NoError(t, err)
	require.Equal(t, "USR-001", got.UserID)
}

func TestRotate(t *testing.T) {
	t.Run("valid token is exchanged", func(t *testing.T) {
		m, _ := setupManager(t)
		rt, err := m.Create("USR-001")
		require.NoError(t, err)

		rotated, err := m.Rotate(rt.Token)
		require.NoError(t, err)
		require.NotEqual(t, rt.Token, rotated.Token)
		require.Equal(t, "USR-001", rotated.UserID)

		_, err = m.Rotate(rt.Token)
		require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	})

	t.Run("unknown token", func(t *testing.T) {
		m, _ := setupManager(t)
		_, err := m.Rotate("nope")
		require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	})

	t.Run("expired token", func(t *testing.T) {
		m, now := setupManager(t)
		rt, err := m.Create("USR-001")
		require.NoError(t, err)

		*now = now.Add(2 * time.Hour)
		_, err = m.Rotate(rt.Token)
		require.ErrorIs(t, err, apperrors.ErrRefreshTokenExpired)

		_, err = m.Get(rt.Token)
		require.Error(t, err)
	})
}

func TestConcurrentRotateExchangesOnce(t *testing.T) {
	m, _ := setupManager(t)
	rt, err := m.Create("USR-001")
	require.NoError(t, err)

	const callers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		errs    []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rotated, err := m.Rotate(rt.Token)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			winners = append(winners, rotated.Token)
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	require.Len(t, errs, callers-1)
	for _, err := range errs {
		require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	}
	got, err := m.Get(winners[0])
	require.NoError(t, err)
	require.Equal(t, "USR-001", got.UserID)
}
