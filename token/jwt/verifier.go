package jwt

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	apperrors "github.com/jrsteele09/go-kyc-onboarding/internal/errors"
	"github.com/jrsteele09/go-kyc-onboarding/token/keys"
)

// Claims are the parts of a verified access token the backend relies on.
type Claims struct {
	Subject   string
	Email     string
	JTI       string
	ExpiresAt time.Time
}

// Verifier checks signature, issuer, audience and expiry of access tokens.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier builds a verifier for tokens signed with publicKey.
func NewVerifier(issuer, clientID string, publicKey crypto.PublicKey) *Verifier {
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{publicKey}}
	return NewVerifierWithKeySet(issuer, clientID, keySet)
}

// NewVerifierWithKeySet builds a verifier over any oidc key set, for example one fetched
// from the JWKS endpoint with oidc.NewRemoteKeySet.
func NewVerifierWithKeySet(issuer, clientID string, keySet oidc.KeySet) *Verifier {
	return &Verifier{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{
			ClientID:             clientID,
			SupportedSigningAlgs: []string{keys.RS256},
			Now:                  func() time.Time { return NowTimeFunc() },
		}),
	}
}

// Verify returns the token's claims. Expired tokens yield ErrTokenExpired,
// anything else that fails verification yields ErrInvalidToken.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		var expired *oidc.TokenExpiredError
		if errors.As(err, &expired) {
			return nil, fmt.Errorf("%w: expired at %s", apperrors.ErrTokenExpired, expired.Expiry.Format(time.RFC3339))
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}

	var extra struct {
		Email string `json:"email"`
		JTI   string `json:"jti"`
	}
	if err := idToken.Claims(&extra); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}

	return &Claims{
		Subject:   idToken.Subject,
		Email:     extra.Email,
		JTI:       extra.JTI,
		ExpiresAt: idToken.Expiry,
	}, nil
}
