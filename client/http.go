package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-kyc-onboarding/backend"
	apperrors "github.com/jrsteele09/go-kyc-onboarding/internal/errors"
	oauthtypes "github.com/jrsteele09/go-kyc-onboarding/oauth2"
	"github.com/jrsteele09/go-kyc-onboarding/onboarding"
	"github.com/jrsteele09/go-kyc-onboarding/server"
	"github.com/jrsteele09/go-kyc-onboarding/session"
	"github.com/jrsteele09/go-kyc-onboarding/users"
	"golang.org/x/oauth2"
)

const defaultTimeout = 30 * time.Second

type HTTPOption func(*HTTP)

// WithHTTPClient replaces the default client. The client is never modified; combined
// with WithTimeout a copy carries the timeout.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTP) {
		c.hc = hc
	}
}

func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTP) {
		c.timeout = d
	}
}

// HTTP calls the mock server. Token refresh uses the RFC 6749 refresh_token grant.
type HTTP struct {
	baseURL string
	hc      *http.Client
	timeout time.Duration
	oauth   *oauth2.Config
}

func NewHTTP(baseURL, clientID string, opts ...HTTPOption) (*HTTP, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("[client.NewHTTP] base URL is required")
	}
	if clientID == "" {
		return nil, fmt.Errorf("[client.NewHTTP] client ID is required")
	}
	baseURL = strings.TrimRight(baseURL, "/")
	c := &HTTP{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: defaultTimeout},
		oauth: &oauth2.Config{
			ClientID: clientID,
			Endpoint: oauth2.Endpoint{
				TokenURL:  baseURL + server.RouteOAuth2Token,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.hc
		hc.Timeout = c.timeout
		c.hc = &hc
	}
	return c, nil
}

func (c *HTTP) Login(ctx context.Context, email, password string) (*session.LoginResult, error) {
	var resp backend.LoginResponse
	err := c.do(ctx, http.MethodPost, server.RouteAPILogin, "", server.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &session.LoginResult{User: resp.User, Session: toSession(resp.Session)}, nil
}

// Refresh exchanges refreshToken at the token endpoint. A rejected grant is reported
// as a 401 so callers treat it like any other authorization failure.
func (c *HTTP) Refresh(ctx context.Context, refreshToken string) (session.Session, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.hc)
	tok, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return session.Session{}, refreshError(err)
	}
	return session.FromToken(tok), nil
}

func refreshError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return apperrors.Wrapf(err, "refresh")
	}
	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	switch {
	case re.ErrorCode == oauthtypes.ErrorInvalidGrant, status == http.StatusUnauthorized:
		return apperrors.NewAuthError("Invalid refresh token", apperrors.ErrInvalidRefreshToken)
	case status >= http.StatusInternalServerError:
		return apperrors.FromStatus(status, "Server error. Try again.", nil)
	default:
		msg := re.ErrorDescription
		if msg == "" {
			msg = re.ErrorCode
		}
		return apperrors.FromStatus(status, msg, nil)
	}
}

func (c *HTTP) Me(ctx context.Context, accessToken string) (*users.User, error) {
	var user users.User
	if err := c.do(ctx, http.MethodGet, server.RouteAPIMe, accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *HTTP) Submit(ctx context.Context, accessToken string, draft onboarding.Draft) (*backend.Receipt, error) {
	var receipt backend.Receipt
	if err := c.do(ctx, http.MethodPost, server.RouteAPISubmissions, accessToken, draft, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// do sends body as JSON and decodes a 200 response into out. Other statuses are
// returned as *apperrors.APIError.
func (c *HTTP) do(ctx context.Context, method, path, accessToken string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrapf(err, "encode %s %s", method, path)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Wrapf(err, "create %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return apperrors.Wrapf(err, "call %s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body apperrors.APIError
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err != nil || body.Message == "" {
		return apperrors.FromStatus(resp.StatusCode, http.StatusText(resp.StatusCode), nil)
	}
	return apperrors.FromStatus(resp.StatusCode, body.Message, body.FieldErrors)
}
