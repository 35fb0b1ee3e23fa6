package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/go-kyc-onboarding/internal/errors"
	"github.com/jrsteele09/go-kyc-onboarding/internal/utils"
	"github.com/jrsteele09/go-kyc-onboarding/oauth2"
	"github.com/jrsteele09/go-kyc-onboarding/oauthmodel"
	"github.com/rs/zerolog/log"
)

// JWKSHandler returns the JSON Web Key Set used to validate tokens
func (s *Server) JWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks, err := s.jwks.GetJWKS()
		if err != nil {
			log.Err(err).Msg("failed to get JWKS")
			writeJSONError(w, oauth2.ErrorServerError, "Failed to get JWKS", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		_ = json.NewEncoder(w).Encode(jwks)
	}
}

// TokenHandler exchanges a refresh token for a new token pair
func (s *Server) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Parse token request from form data
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, oauth2.ErrorInvalidRequest, "Failed to parse form data", http.StatusBadRequest)
			return
		}

		tokenReq := oauthmodel.ParseTokenRequest(r.PostForm)
		if err := tokenReq.Validate(s.config.GetClientID()); err != nil {
			switch {
			case errors.Is(err, oauthmodel.ErrUnsupportedGrantType):
				writeJSONError(w, oauth2.ErrorUnsupportedGrantType, err.Error(), http.StatusBadRequest)
			case errors.Is(err, oauthmodel.ErrClientMismatch):
				writeJSONError(w, oauth2.ErrorInvalidClient, err.Error(), http.StatusUnauthorized)
			default:
				writeJSONError(w, oauth2.ErrorInvalidRequest, err.Error(), http.StatusBadRequest)
			}
			return
		}

		tokens, err := s.api.Refresh(r.Context(), tokenReq.RefreshToken)
		if err != nil {
			if apperrors.IsAuthError(err) {
				writeJSONError(w, oauth2.ErrorInvalidGrant, "Invalid refresh token", http.StatusBadRequest)
				return
			}
			log.Err(err).Msg("[TokenHandler] refresh failed")
			writeJSONError(w, oauth2.ErrorServerError, "Server error. Try again.", http.StatusInternalServerError)
			return
		}

		tokenResponse := oauth2.TokenResponse{
			AccessToken:  utils.Ptr(tokens.AccessToken),
			TokenType:    oauth2.BearerTokenType,
			ExpiresIn:    int(time.Until(tokens.ExpiresAt).Round(time.Second).Seconds()),
			RefreshToken: utils.Ptr(tokens.RefreshToken),
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		_ = json.NewEncoder(w).Encode(tokenResponse)
	}
}

// writeJSONError writes an OAuth2 error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(oauth2.ErrorResponse{
		Error:            errorCode,
		ErrorDescription: description,
	})
}
