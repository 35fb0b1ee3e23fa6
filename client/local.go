package client

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-kyc-onboarding/backend"
	"github.com/jrsteele09/go-kyc-onboarding/onboarding"
	"github.com/jrsteele09/go-kyc-onboarding/session"
	"github.com/jrsteele09/go-kyc-onboarding/users"
)

// Local calls an in-process backend.
type Local struct {
	svc *backend.Service
}

func NewLocal(svc *backend.Service) (*Local, error) {
	if svc == nil {
		return nil, fmt.Errorf("[client.NewLocal] service is required")
	}
	return &Local{svc: svc}, nil
}

func (c *Local) Login(ctx context.Context, email, password string) (*session.LoginResult, error) {
	resp, err := c.svc.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return &session.LoginResult{User: resp.User, Session: toSession(resp.Session)}, nil
}

func (c *Local) Refresh(ctx context.Context, refreshToken string) (session.Session, error) {
	tokens, err := c.svc.Refresh(ctx, refreshToken)
	if err != nil {
		return session.Session{}, err
	}
	return toSession(*tokens), nil
}

func (c *Local) Me(ctx context.Context, accessToken string) (*users.User, error) {
	return c.svc.Me(ctx, accessToken)
}

func (c *Local) Submit(ctx context.Context, accessToken string, draft onboarding.Draft) (*backend.Receipt, error) {
	return c.svc.Submit(ctx, accessToken, draft)
}
