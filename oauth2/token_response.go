package oauth2

// TokenResponse represents the response from an OAuth2 token request
// as defined in RFC 6749 section 5.1.
type TokenResponse struct {
	// AccessToken is the JWT sent as "Authorization: Bearer <access_token>".
	// Lifespan: short (one minute by default)
	AccessToken *string `json:"access_token,omitempty"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the lifetime in seconds of the access token.
	// Note: This is a hint, the actual expiration is in the JWT's "exp" claim
	ExpiresIn int `json:"expires_in,omitempty"`

	// RefreshToken is an opaque token used to obtain new access tokens.
	// Security: rotates on each use
	RefreshToken *string `json:"refresh_token,omitempty"`
}

// ErrorResponse is the token endpoint error body from RFC 6749 section 5.2.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
