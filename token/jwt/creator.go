package jwt

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-kyc-onboarding/internal/config"
	"github.com/jrsteele09/go-kyc-onboarding/token/keys"
	"github.com/jrsteele09/go-kyc-onboarding/users"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// AccessToken is a signed access token and the metadata the backend tracks for it.
type AccessToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// Creator handles access token creation
type Creator struct {
	config config.OAuthConfig
	signer keys.Signer
}

// NewCreator creates a new JWT creator
func NewCreator(cfg config.OAuthConfig, signer keys.Signer) *Creator {
	return &Creator{
		config: cfg,
		signer: signer,
	}
}

// CreateAccessToken creates a short lived access token for the user
func (c *Creator) CreateAccessToken(user *users.User) (*AccessToken, error) {
	if user == nil {
		return nil, fmt.Errorf("access token requires a user")
	}

	now := NowTimeFunc()
	expiresAt := now.Add(c.config.GetDefaultAccessTokenExpiry())
	jti := uuid.New().String()

	claims := jwtlib.MapClaims{
		"iss":   c.config.GetIssuer(),   // The issuer of the token
		"aud":   c.config.GetClientID(), // The client the token is intended for
		"sub":   user.ID,                // The user the token was issued to
		"email": user.Email,
		"iat":   now.Unix(),       // Issued At
		"exp":   expiresAt.Unix(), // Expiry
		"jti":   jti,              // Unique token ID, lets the backend invalidate superseded tokens
	}

	signedToken, err := c.signer.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return &AccessToken{Token: signedToken, JTI: jti, ExpiresAt: expiresAt}, nil
}
