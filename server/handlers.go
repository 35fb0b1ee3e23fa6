package server

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/jrsteele09/go-kyc-onboarding/internal/errors"
	"github.com/jrsteele09/go-kyc-onboarding/onboarding"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler authenticates with email and password and returns the user and session
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, err)
			return
		}

		resp, err := s.api.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeAPIError(w, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, resp)
	}
}

// MeHandler returns the profile of the bearer token's owner
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.api.Me(r.Context(), AccessTokenFromContext(r.Context()))
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// SubmitHandler accepts an onboarding draft
func (s *Server) SubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var draft onboarding.Draft
		if err := decodeJSON(w, r, &draft); err != nil {
			writeAPIError(w, err)
			return
		}

		receipt, err := s.api.Submit(r.Context(), AccessTokenFromContext(r.Context()), draft)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, receipt)
	}
}

// HealthHandler reports liveness
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// PreflightHandler answers OPTIONS requests that carry no Origin
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return &apperrors.APIError{Status: http.StatusBadRequest, Message: "Invalid request body"}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("failed to encode response")
	}
}

// writeAPIError writes err as {status, message, field_errors}. Errors that are not APIErrors become 500s.
func writeAPIError(w http.ResponseWriter, err error) {
	var apiErr *apperrors.APIError
	if !errors.As(err, &apiErr) {
		log.Err(err).Msg("unexpected handler error")
		apiErr = apperrors.NewServerError("")
	} else if apiErr.Status >= http.StatusInternalServerError {
		log.Warn().Int("status", apiErr.Status).Msg(apiErr.Message)
	}
	writeJSON(w, apiErr.Status, apiErr)
}
