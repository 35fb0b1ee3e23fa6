package oauth2

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// RefreshTokenCodeGrant exchanges a refresh token for new tokens.
	// Token request includes: grant_type, refresh_token, client_id
	// Returns: new access_token and a rotated refresh_token
	RefreshTokenCodeGrant GrantType = "refresh_token"
)

// BearerTokenType is the token_type returned with every access token.
const BearerTokenType = "Bearer"

// Error codes from RFC 6749 section 5.2.
const (
	ErrorInvalidRequest       = "invalid_request"
	ErrorInvalidClient        = "invalid_client"
	ErrorInvalidGrant         = "invalid_grant"
	ErrorUnsupportedGrantType = "unsupported_grant_type"
	ErrorServerError          = "server_error"
)
