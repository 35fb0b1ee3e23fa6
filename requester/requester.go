// Package requester runs authenticated calls on behalf of the session store. A call
// rejected with 401 triggers one token refresh and one retry; a failed refresh ends
// the session and sends the user to the session-expired notice.
package requester

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-kyc-onboarding/internal/errors"
	"github.com/jrsteele09/go-kyc-onboarding/navigation"
	"github.com/jrsteele09/go-kyc-onboarding/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const defaultRefreshTimeout = 10 * time.Second

// Refresher exchanges a refresh token for a new token pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (session.Session, error)
}

// RefresherFunc adapts a function to a Refresher.
type RefresherFunc func(ctx context.Context, refreshToken string) (session.Session, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (session.Session, error) {
	return f(ctx, refreshToken)
}

type Option func(*Requester)

func WithLogger(l zerolog.Logger) Option {
	return func(r *Requester) {
		r.log = l
	}
}

// WithRefreshTimeout bounds a shared refresh. The refresh outlives the context of the
// caller that started it so other waiters are not cancelled with it.
func WithRefreshTimeout(d time.Duration) Option {
	return func(r *Requester) {
		r.refreshTimeout = d
	}
}

type Requester struct {
	store          *session.Store
	refresher      Refresher
	nav            navigation.Navigator
	group          singleflight.Group
	log            zerolog.Logger
	refreshTimeout time.Duration
}

func New(store *session.Store, refresher Refresher, nav navigation.Navigator, opts ...Option) (*Requester, error) {
	if store == nil {
		return nil, fmt.Errorf("[requester.New] store is required")
	}
	if refresher == nil {
		return nil, fmt.Errorf("[requester.New] refresher is required")
	}
	if nav == nil {
		nav = navigation.Func(func(navigation.Intent) {})
	}
	r := &Requester{
		store:          store,
		refresher:      refresher,
		nav:            nav,
		log:            log.Logger,
		refreshTimeout: defaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Do invokes op with the current access token. Errors other than 401 are returned
// unchanged. A 401 leads to a single refresh and a single retry with the new token.
func Do[T any](ctx context.Context, r *Requester, op func(ctx context.Context, accessToken string) (T, error)) (T, error) {
	var zero T

	token, ok := r.store.AccessToken()
	if !ok {
		r.nav.Navigate(navigation.Login)
		return zero, apperrors.ErrNotAuthenticated
	}

	result, err := op(ctx, token)
	if err == nil || !apperrors.IsAuthError(err) {
		return result, err
	}
	r.log.Debug().Err(err).Msg("request unauthorized, renewing session")

	fresh, err := r.renew(ctx, token)
	if err != nil {
		return zero, err
	}

	result, err = op(ctx, fresh)
	if apperrors.IsAuthError(err) {
		r.log.Debug().Err(err).Msg("retry unauthorized, ending session")
		r.store.Logout()
		r.nav.Navigate(navigation.SessionExpired)
		return zero, fmt.Errorf("%w: %w", apperrors.ErrSessionExpired, err)
	}
	return result, err
}

// renew returns an access token newer than failed. Callers that fail with the same
// session share one refresh.
func (r *Requester) renew(ctx context.Context, failed string) (string, error) {
	st := r.store.State()
	if st.Session == nil {
		r.nav.Navigate(navigation.Login)
		return "", apperrors.ErrNotAuthenticated
	}
	if token, ok := r.replaced(failed); ok {
		return token, nil
	}

	ch := r.group.DoChan(st.Session.RefreshToken, func() (interface{}, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.refreshTimeout)
		defer cancel()
		return r.refresh(refreshCtx, failed)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			r.log.Debug().Msg("joined in-flight refresh")
		}
		return res.Val.(string), nil
	}
}

func (r *Requester) refresh(ctx context.Context, failed string) (string, error) {
	if token, ok := r.replaced(failed); ok {
		return token, nil
	}
	if err := r.store.MarkExpired(); err != nil {
		return "", err
	}
	ticket, err := r.store.BeginRefresh()
	if err != nil {
		if token, ok := r.replaced(failed); ok {
			return token, nil
		}
		return "", err
	}

	fresh, err := r.refresher.Refresh(ctx, ticket.Session.RefreshToken)
	if err != nil {
		r.log.Debug().Err(err).Msg("refresh failed")
		if !r.store.FailRefresh(ticket) {
			// The session was ended or replaced while the refresh was in flight.
			return "", fmt.Errorf("%w: %w", apperrors.ErrRefreshSuperseded, err)
		}
		r.nav.Navigate(navigation.SessionExpired)
		return "", fmt.Errorf("%w: %w", apperrors.ErrSessionExpired, err)
	}
	if err := r.store.RefreshSession(ticket, fresh); err != nil {
		return "", err
	}
	r.log.Debug().Time("expires_at", fresh.ExpiresAt).Msg("session refreshed")
	return fresh.AccessToken, nil
}

// replaced returns the current access token when a completed refresh has already
// superseded failed.
func (r *Requester) replaced(failed string) (string, bool) {
	st := r.store.State()
	if st.Status != session.StatusLoggedIn || st.Session == nil || st.Session.AccessToken == failed {
		return "", false
	}
	return st.Session.AccessToken, true
}
