package oauthmodel

import (
	"net/url"
	"strings"

	"github.com/jrsteele09/go-kyc-onboarding/oauth2"
)

// TokenRequest holds parameters for the OAuth2 token request.
// This represents the form body sent to the /oauth2/token endpoint.
type TokenRequest struct {
	// GrantType selects the flow. Only refresh_token is supported.
	GrantType oauth2.GrantType

	// ClientID identifies the public client making the request.
	// Required: No. When present it must match the configured client.
	ClientID string

	// RefreshToken is exchanged for a new access token.
	// Behavior: rotated, the old refresh token is invalidated
	RefreshToken string
}

// ParseTokenRequest reads a token request from form values.
func ParseTokenRequest(form url.Values) TokenRequest {
	return TokenRequest{
		GrantType:    oauth2.GrantType(strings.TrimSpace(form.Get("grant_type"))),
		ClientID:     strings.TrimSpace(form.Get("client_id")),
		RefreshToken: strings.TrimSpace(form.Get("refresh_token")),
	}
}

// Validate checks the request against the expected client.
func (r TokenRequest) Validate(expectedClientID string) error {
	switch {
	case r.GrantType == "":
		return ErrMissingGrantType
	case r.GrantType != oauth2.RefreshTokenCodeGrant:
		return ErrUnsupportedGrantType
	case r.RefreshToken == "":
		return ErrMissingRefreshToken
	case r.ClientID != "" && r.ClientID != expectedClientID:
		return ErrClientMismatch
	}
	return nil
}
