package oauthmodel

import "errors"

var (
	ErrMissingGrantType     = errors.New("grant_type is required")
	ErrUnsupportedGrantType = errors.New("unsupported grant type")
	ErrMissingRefreshToken  = errors.New("refresh_token is required")
	ErrClientMismatch       = errors.New("client_id does not match")
)
