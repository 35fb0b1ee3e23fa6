package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Onboarding API Routes
	RouteAPILogin       = "/api/auth/login"
	RouteAPIMe          = "/api/me"
	RouteAPISubmissions = "/api/submissions"

	// OAuth2 Routes
	RouteWellKnownJWKS = "/.well-known/jwks.json"
	RouteOAuth2Token   = "/oauth2/token"

	// Operational Routes
	RouteHealth = "/healthz"
)
