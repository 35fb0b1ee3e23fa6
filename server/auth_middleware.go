package server

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-kyc-onboarding/internal/errors"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyAccessToken stores the raw bearer token
	ContextKeyAccessToken ContextKey = "access_token"
)

// AccessTokenFromContext returns the bearer token stored by RequireBearer.
func AccessTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(ContextKeyAccessToken).(string)
	return token
}

// RequireBearer is middleware that extracts a Bearer access token from the Authorization header.
// Signature, expiry and currency are checked by the service the handler calls.
func (s *Server) RequireBearer() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAPIError(w, apperrors.NewAuthError("Missing Authorization header", apperrors.ErrNotAuthenticated))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				writeAPIError(w, apperrors.NewAuthError("Invalid Authorization header format", apperrors.ErrInvalidToken))
				return
			}

			token := strings.TrimSpace(parts[1])
			if token == "" {
				writeAPIError(w, apperrors.NewAuthError("Empty token", apperrors.ErrInvalidToken))
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAccessToken, token)
			next(w, r.WithContext(ctx))
		}
	}
}
