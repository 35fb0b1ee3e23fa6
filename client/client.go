// Package client talks to the onboarding backend, either over HTTP or in process.
package client

import (
	"context"

	"github.com/jrsteele09/go-kyc-onboarding/backend"
	"github.com/jrsteele09/go-kyc-onboarding/onboarding"
	"github.com/jrsteele09/go-kyc-onboarding/requester"
	"github.com/jrsteele09/go-kyc-onboarding/session"
	"github.com/jrsteele09/go-kyc-onboarding/users"
)

// API is the network surface used by the session store, the request wrapper and the
// onboarding screens.
type API interface {
	session.Authenticator
	requester.Refresher
	Me(ctx context.Context, accessToken string) (*users.User, error)
	Submit(ctx context.Context, accessToken string, draft onboarding.Draft) (*backend.Receipt, error)
}

var (
	_ API = (*HTTP)(nil)
	_ API = (*Local)(nil)
)

func toSession(t backend.Tokens) session.Session {
	return session.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.ExpiresAt,
	}
}
