package session

import (
	"context"
	"time"

	"github.com/jrsteele09/go-kyc-onboarding/users"
	"golang.org/x/oauth2"
)

// Status is the authentication status of the store.
type Status string

const (
	StatusLoggedOut  Status = "logged_out"
	StatusLoggingIn  Status = "logging_in"
	StatusLoggedIn   Status = "logged_in"
	StatusRefreshing Status = "refreshing"
	StatusExpired    Status = "expired"
)

// holdsIdentity reports whether user and session are present in this status.
func (s Status) holdsIdentity() bool {
	switch s {
	case StatusLoggedIn, StatusRefreshing, StatusExpired:
		return true
	}
	return false
}

func (s Status) valid() bool {
	switch s {
	case StatusLoggedOut, StatusLoggingIn, StatusLoggedIn, StatusRefreshing, StatusExpired:
		return true
	}
	return false
}

// Session is the token pair issued by the backend.
type Session struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Token converts the session for use with golang.org/x/oauth2.
func (s Session) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: s.RefreshToken,
		Expiry:       s.ExpiresAt,
	}
}

// FromToken converts an oauth2 token into a Session.
func FromToken(t *oauth2.Token) Session {
	if t == nil {
		return Session{}
	}
	return Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.Expiry,
	}
}

// State is a snapshot of the store. User and Session are copies.
type State struct {
	Status  Status      `json:"status"`
	User    *users.User `json:"user"`
	Session *Session    `json:"session"`
}

func (st State) clone() State {
	out := State{Status: st.Status}
	if st.User != nil {
		u := *st.User
		out.User = &u
	}
	if st.Session != nil {
		s := *st.Session
		out.Session = &s
	}
	return out
}

// LoginResult is what an Authenticator returns for valid credentials.
type LoginResult struct {
	User    users.User
	Session Session
}

// Authenticator performs the network login.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}

// AuthenticatorFunc adapts a function to an Authenticator.
type AuthenticatorFunc func(ctx context.Context, email, password string) (*LoginResult, error)

func (f AuthenticatorFunc) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	return f(ctx, email, password)
}
