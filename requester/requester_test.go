package requester_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-kyc-onboarding/internal/errors"
	"github.com/jrsteele09/go-kyc-onboarding/kv"
	"github.com/jrsteele09/go-kyc-onboarding/navigation"
	"github.com/jrsteele09/go-kyc-onboarding/requester"
	"github.com/jrsteele09/go-kyc-onboarding/session"
	"github.com/jrsteele09/go-kyc-onboarding/users"
	"github.com/stretchr/testify/require"
)

// fakeBackend accepts only its current access token and rotates both tokens on refresh.
type fakeBackend struct {
	mu      sync.Mutex
	access  string
	refresh string
	n       int

	refreshes atomic.Int64
	failNext  error
	release   chan struct{}
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{}
	b.rotate()
	return b
}

func (b *fakeBackend) rotate() session.Session {
	b.n++
	b.access = fmt.Sprintf("access_%d", b.n)
	b.refresh = fmt.Sprintf("refresh_%d", b.n)
	return session.Session{AccessToken: b.access, RefreshToken: b.refresh, ExpiresAt: time.Now().Add(time.Minute)}
}

func (b *fakeBackend) Login(ctx context.Context, email, password string) (*session.LoginResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &session.LoginResult{
		User:    users.User{ID: "USR-001", Email: email, FullName: "Jane Doe"},
		Session: session.Session{AccessToken: b.access, RefreshToken: b.refresh, ExpiresAt: time.Now().Add(time.Minute)},
	}, nil
}

func (b *fakeBackend) Refresh(ctx context.Context, refreshToken string) (session.Session, error) {
	b.refreshes.Add(1)
	if b.release != nil {
		<-b.release
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failNext != nil {
		return session.Session{}, b.failNext
	}
	if refreshToken != b.refresh {
		return session.Session{}, apperrors.NewAuthError("Invalid refresh token", apperrors.ErrInvalidRefreshToken)
	}
	return b.rotate(), nil
}

// expire invalidates the current access token without touching the refresh token.
func (b *fakeBackend) expire() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = "expired_" + b.access
}

func (b *fakeBackend) Me(ctx context.Context, token string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if token != b.access {
		return "", apperrors.NewAuthError("Token expired", apperrors.ErrTokenExpired)
	}
	return "USR-001", nil
}

type fixture struct {
	backend *fakeBackend
	store   *session.Store
	nav     *navigation.Recorder
	req     *requester.Requester
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := newFakeBackend()
	store := session.New(backend, kv.NewMemory())
	require.NoError(t, store.Login(context.Background(), "jane.doe@example.com", "password123"))

	nav := &navigation.Recorder{}
	req, err := requester.New(store, backend, nav)
	require.NoError(t, err)
	return &fixture{backend: backend, store: store, nav: nav, req: req}
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := requester.New(nil, newFakeBackend(), nil)
	require.Error(t, err)
	_, err = requester.New(session.New(newFakeBackend(), nil), nil, nil)
	require.Error(t, err)
}

func TestDoSuccessPassesResultThrough(t *testing.T) {
	f := newFixture(t)
	before := f.store.State()

	id, err := requester.Do(context.Background(), f.req, f.backend.Me)
	require.NoError(t, err)
	require.Equal(t, "USR-001", id)
	require.Equal(t, before, f.store.State())
	require.Zero(t, f.backend.refreshes.Load())
	require.Empty(t, f.nav.Intents())
}

func TestDoRefreshesAndRetries(t *testing.T) {
	f := newFixture(t)
	statuses := make(chan session.Status, 16)
	f.store.Subscribe(func(st session.State) { statuses <- st.Status })
	f.backend.expire()

	id, err := requester.Do(context.Background(), f.req, f.backend.Me)
	require.NoError(t, err, "the 401 is invisible to the caller")
	require.Equal(t, "USR-001", id)
	require.Equal(t, int64(1), f.backend.refreshes.Load())

	st := f.store.State()
	require.Equal(t, session.StatusLoggedIn, st.Status)
	require.Equal(t, "access_2", st.Session.AccessToken)
	require.Equal(t, "refresh_2", st.Session.RefreshToken)
	require.Equal(t, "USR-001", st.User.ID)
	require.Empty(t, f.nav.Intents())

	close(statuses)
	var seen []session.Status
	for s := range statuses {
		seen = append(seen, s)
	}
	require.Equal(t, []session.Status{session.StatusExpired, session.StatusRefreshing, session.StatusLoggedIn}, seen)
}

func TestDoRefreshFailureEndsSession(t *testing.T) {
	f := newFixture(t)
	f.backend.expire()
	f.backend.failNext = apperrors.NewAuthError("Invalid refresh token", apperrors.ErrInvalidRefreshToken)

	var calls int
	_, err := requester.Do(context.Background(), f.req, func(ctx context.Context, token string) (string, error) {
		calls++
		return f.backend.Me(ctx, token)
	})
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	require.Equal(t, 1, calls, "no retry after a failed refresh")

	st := f.store.State()
	require.Equal(t, session.StatusLoggedOut, st.Status)
	require.Nil(t, st.User)
	require.Nil(t, st.Session)
	require.Equal(t, []navigation.Intent{navigation.SessionExpired}, f.nav.Intents())
}

func TestDoRefreshServerErrorEndsSession(t *testing.T) {
	f := newFixture(t)
	f.backend.expire()
	f.backend.failNext = apperrors.NewServerError("")

	_, err := requester.Do(context.Background(), f.req, f.backend.Me)
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	require.Equal(t, session.StatusLoggedOut, f.store.Status())
	require.Equal(t, navigation.SessionExpired, f.nav.Last())
}

func TestDoNonAuthErrorsAreNotRetried(t *testing.T) {
	tests := map[string]error{
		"validation": apperrors.NewValidationError("", map[string]string{"profile.fullName": "Required"}),
		"server":     apperrors.NewServerError(""),
		"plain":      errors.New("connection reset"),
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			var calls int
			_, err := requester.Do(context.Background(), f.req, func(context.Context, string) (int, error) {
				calls++
				return 0, want
			})
			require.Same(t, want, err)
			require.Equal(t, 1, calls)
			require.Zero(t, f.backend.refreshes.Load())
			require.Equal(t, session.StatusLoggedIn, f.store.Status())
		})
	}
}

func TestDoRetryFailureIsPropagated(t *testing.T) {
	f := newFixture(t)
	f.backend.expire()
	want := apperrors.NewValidationError("", map[string]string{"document.documentNumber": "Required"})

	var calls int
	_, err := requester.Do(context.Background(), f.req, func(ctx context.Context, token string) (string, error) {
		calls++
		if calls == 1 {
			return f.backend.Me(ctx, token)
		}
		return "", want
	})
	require.Same(t, want, err)
	require.Equal(t, 2, calls)
	require.Equal(t, session.StatusLoggedIn, f.store.Status())
}

func TestDoSecondUnauthorizedEndsSession(t *testing.T) {
	f := newFixture(t)
	var calls int
	_, err := requester.Do(context.Background(), f.req, func(context.Context, string) (string, error) {
		calls++
		return "", apperrors.NewAuthError("Invalid token", nil)
	})
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	require.Equal(t, 2, calls, "exactly one retry")
	require.Equal(t, int64(1), f.backend.refreshes.Load())
	require.Equal(t, session.StatusLoggedOut, f.store.Status())
	require.Equal(t, navigation.SessionExpired, f.nav.Last())
}

func TestDoWithoutSessionNavigatesToLogin(t *testing.T) {
	store := session.New(newFakeBackend(), kv.NewMemory())
	nav := &navigation.Recorder{}
	req, err := requester.New(store, newFakeBackend(), nav)
	require.NoError(t, err)

	called := false
	_, err = requester.Do(context.Background(), req, func(context.Context, string) (string, error) {
		called = true
		return "", nil
	})
	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
	require.False(t, called)
	require.Equal(t, []navigation.Intent{navigation.Login}, nav.Intents())
}

func TestDoExpiredSessionAfterHydrate(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.MarkExpired())
	f.backend.expire()

	id, err := requester.Do(context.Background(), f.req, f.backend.Me)
	require.NoError(t, err)
	require.Equal(t, "USR-001", id)
	require.Equal(t, session.StatusLoggedIn, f.store.Status())
}

func TestConcurrentUnauthorizedCallsShareOneRefresh(t *testing.T) {
	f := newFixture(t)
	f.backend.expire()
	f.backend.release = make(chan struct{})

	const callers = 10
	var unauthorized atomic.Int64
	op := func(ctx context.Context, token string) (string, error) {
		id, err := f.backend.Me(ctx, token)
		if err != nil {
			unauthorized.Add(1)
		}
		return id, err
	}

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := requester.Do(context.Background(), f.req, op)
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return unauthorized.Load() == callers }, time.Second, time.Millisecond)
	close(f.backend.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int64(1), f.backend.refreshes.Load())
	require.Equal(t, session.StatusLoggedIn, f.store.Status())
	require.Empty(t, f.nav.Intents())
}

func TestStaleTokenUsesNewerSessionWithoutRefreshing(t *testing.T) {
	f := newFixture(t)
	stale, _ := f.store.AccessToken()

	var calls int
	_, err := requester.Do(context.Background(), f.req, func(ctx context.Context, token string) (string, error) {
		calls++
		if calls == 1 {
			// A concurrent caller refreshed while this request was in flight.
			f.backend.mu.Lock()
			fresh := f.backend.rotate()
			f.backend.mu.Unlock()
			require.NoError(t, f.store.MarkExpired())
			ticket, err := f.store.BeginRefresh()
			require.NoError(t, err)
			require.NoError(t, f.store.RefreshSession(ticket, fresh))
			return "", apperrors.NewAuthError("Invalid token", nil)
		}
		require.NotEqual(t, stale, token)
		return f.backend.Me(ctx, token)
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Zero(t, f.backend.refreshes.Load())
}

func TestCallerCancellationDoesNotAbortSharedRefresh(t *testing.T) {
	f := newFixture(t)
	f.backend.expire()
	f.backend.release = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := requester.Do(ctx, f.req, f.backend.Me)
		errCh <- err
	}()

	require.Eventually(t, func() bool { return f.backend.refreshes.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	close(f.backend.release)
	require.Eventually(t, func() bool { return f.store.Status() == session.StatusLoggedIn }, time.Second, time.Millisecond)
	token, _ := f.store.AccessToken()
	require.Equal(t, "access_2", token)
}

// startBlockedRefresh issues a request whose refresh is held until the returned release
// func is called.
func startBlockedRefresh(t *testing.T, f *fixture) (<-chan error, func()) {
	t.Helper()
	f.backend.expire()
	f.backend.release = make(chan struct{})

	errCh := make(chan error, 1)
	go func() {
		_, err := requester.Do(context.Background(), f.req, f.backend.Me)
		errCh <- err
	}()
	require.Eventually(t, func() bool { return f.backend.refreshes.Load() == 1 }, time.Second, time.Millisecond)
	require.Equal(t, session.StatusRefreshing, f.store.Status())
	return errCh, func() { close(f.backend.release) }
}

func TestLogoutDuringRefreshKeepsSessionEnded(t *testing.T) {
	f := newFixture(t)
	errCh, release := startBlockedRefresh(t, f)

	f.store.Logout()
	release()

	require.ErrorIs(t, <-errCh, apperrors.ErrRefreshSuperseded)
	st := f.store.State()
	require.Equal(t, session.StatusLoggedOut, st.Status)
	require.Nil(t, st.User)
	require.Nil(t, st.Session)
	require.Empty(t, f.nav.Intents())
}

func TestReloginDuringRefreshKeepsNewSession(t *testing.T) {
	f := newFixture(t)
	errCh, release := startBlockedRefresh(t, f)

	f.store.Logout()
	require.NoError(t, f.store.Login(context.Background(), "jane.doe@example.com", "password123"))
	relogin := f.store.State()
	release()

	require.ErrorIs(t, <-errCh, apperrors.ErrRefreshSuperseded)
	require.Equal(t, relogin, f.store.State())
	require.Equal(t, session.StatusLoggedIn, f.store.Status())
	require.Equal(t, int64(1), f.backend.refreshes.Load())
	require.Empty(t, f.nav.Intents())
}

func TestFailedRefreshAfterReloginKeepsNewSession(t *testing.T) {
	f := newFixture(t)
	errCh, release := startBlockedRefresh(t, f)

	f.store.Logout()
	f.backend.mu.Lock()
	f.backend.rotate()
	f.backend.mu.Unlock()
	require.NoError(t, f.store.Login(context.Background(), "jane.doe@example.com", "password123"))
	release()

	err := <-errCh
	require.ErrorIs(t, err, apperrors.ErrRefreshSuperseded)
	require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	require.Equal(t, session.StatusLoggedIn, f.store.Status())
	token, _ := f.store.AccessToken()
	require.Equal(t, "access_2", token)
	require.Empty(t, f.nav.Intents())
}
