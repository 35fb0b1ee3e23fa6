package backend

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-kyc-onboarding/backend/grant"
	"github.com/jrsteele09/go-kyc-onboarding/internal/config"
	apperrors "github.com/jrsteele09/go-kyc-onboarding/internal/errors"
	"github.com/jrsteele09/go-kyc-onboarding/onboarding"
	"github.com/jrsteele09/go-kyc-onboarding/token/jwt"
	"github.com/jrsteele09/go-kyc-onboarding/token/keys"
	"github.com/jrsteele09/go-kyc-onboarding/token/refresh"
	"github.com/jrsteele09/go-kyc-onboarding/users"
	"github.com/rs/zerolog/log"
)

// Simulated network latency per call, scaled by the configured latency factor.
const (
	loginLatency   = 800 * time.Millisecond
	refreshLatency = 500 * time.Millisecond
	meLatency      = 500 * time.Millisecond
	submitLatency  = 1000 * time.Millisecond
)

// SubmissionReceived is the status of an accepted submission.
const SubmissionReceived = "RECEIVED"

// Config is the configuration the backend reads.
type Config interface {
	config.OAuthConfig
	config.MockConfig
}

// Tokens is the session handed to a client after login or refresh.
type Tokens struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	User    users.User `json:"user"`
	Session Tokens     `json:"session"`
}

// Receipt acknowledges an accepted submission.
type Receipt struct {
	SubmissionID string `json:"submissionId"`
	Status       string `json:"status"`
}

// Repos holds all repository dependencies for the Service
type Repos struct {
	Users         users.UserRepo // Repository for user data
	RefreshTokens refresh.Repo   // Server side refresh token metadata
	Grants        grant.Repo     // Current token pair per user
}

// Service simulates the onboarding API: login, token refresh, profile and submission.
type Service struct {
	repos        Repos
	creator      *jwt.Creator
	verifier     *jwt.Verifier
	refresh      *refresh.Manager
	latencyScale float64
	shouldFail   func() bool
	newID        func() string
}

// Option defines a function type to modify the Service instance.
type Option func(*Service)

// WithLatencyScale multiplies every simulated delay. 0 disables delays.
func WithLatencyScale(scale float64) Option {
	return func(s *Service) {
		s.latencyScale = scale
	}
}

// WithFailureRate sets the probability of an injected 500 on login and submit.
func WithFailureRate(rate float64) Option {
	return func(s *Service) {
		s.shouldFail = func() bool { return rand.Float64() < rate }
	}
}

// WithFailureFunc replaces the failure injector (primarily for testing)
func WithFailureFunc(fn func() bool) Option {
	return func(s *Service) {
		s.shouldFail = fn
	}
}

// WithSubmissionIDFunc replaces the submission id generator (primarily for testing)
func WithSubmissionIDFunc(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// NewService initializes a Service. Latency and failure rate default to the configured values.
func NewService(cfg Config, repos Repos, signer *keys.KeyPairSigner, options ...Option) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if repos.RefreshTokens == nil {
		return nil, errors.New("[NewService] RefreshTokens repo is required")
	}
	if repos.Grants == nil {
		return nil, errors.New("[NewService] Grants repo is required")
	}
	if signer == nil {
		return nil, errors.New("[NewService] signer is required")
	}

	s := &Service{
		repos:    repos,
		creator:  jwt.NewCreator(cfg, signer),
		verifier: jwt.NewVerifier(cfg.GetIssuer(), cfg.GetClientID(), signer.PublicKey()),
		refresh:  refresh.NewManager(repos.RefreshTokens, cfg),
		newID:    func() string { return "SUB-" + strings.ToUpper(uuid.New().String()[:8]) },
	}
	WithLatencyScale(cfg.GetLatencyScale())(s)
	WithFailureRate(cfg.GetFailureRate())(s)

	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Login checks the credentials and issues a new token pair, superseding any previous one.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	if err := s.wait(ctx, loginLatency); err != nil {
		return nil, err
	}
	if s.shouldFail() {
		return nil, apperrors.NewServerError("")
	}

	user, err := s.repos.Users.GetByEmail(email)
	if err != nil || !user.CheckPassword(password) {
		return nil, apperrors.NewAuthError("Invalid credentials", apperrors.ErrInvalidCredentials)
	}

	rt, err := s.refresh.Create(user.ID)
	if err != nil {
		log.Err(err).Str("user", user.ID).Msg("[Login] failed to create refresh token")
		return nil, apperrors.NewServerError("")
	}
	tokens, err := s.issue(user, rt)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{User: user.Public(), Session: *tokens}, nil
}

// Refresh exchanges a refresh token for a new token pair. The refresh token rotates.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	if err := s.wait(ctx, refreshLatency); err != nil {
		return nil, err
	}

	rt, err := s.refresh.Rotate(refreshToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidRefreshToken) || errors.Is(err, apperrors.ErrRefreshTokenExpired) {
			return nil, apperrors.NewAuthError("Invalid refresh token", err)
		}
		log.Err(err).Msg("[Refresh] failed to rotate refresh token")
		return nil, apperrors.NewServerError("")
	}

	user, err := s.repos.Users.GetByID(rt.UserID)
	if err != nil {
		return nil, apperrors.NewAuthError("Invalid refresh token", apperrors.ErrInvalidRefreshToken)
	}
	return s.issue(user, rt)
}

// Me returns the profile of the access token's owner.
func (s *Service) Me(ctx context.Context, accessToken string) (*users.User, error) {
	if err := s.wait(ctx, meLatency); err != nil {
		return nil, err
	}

	user, err := s.authorize(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	public := user.Public()
	return &public, nil
}

// Submit accepts a KYC draft. Only the full name and document number are checked here.
func (s *Service) Submit(ctx context.Context, accessToken string, draft onboarding.Draft) (*Receipt, error) {
	if err := s.wait(ctx, submitLatency); err != nil {
		return nil, err
	}
	if s.shouldFail() {
		return nil, apperrors.NewServerError("")
	}

	user, err := s.authorize(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	fieldErrors := map[string]string{}
	if strings.TrimSpace(draft.Profile.FullName) == "" {
		fieldErrors["profile.fullName"] = "Required"
	}
	if strings.TrimSpace(draft.Document.DocumentNumber) == "" {
		fieldErrors["document.documentNumber"] = "Required"
	}
	if len(fieldErrors) > 0 {
		return nil, apperrors.NewValidationError("Validation failed", fieldErrors)
	}

	if err := s.repos.Users.SetOnboardingDone(user.ID, true); err != nil {
		log.Err(err).Str("user", user.ID).Msg("[Submit] failed to mark onboarding done")
		return nil, apperrors.NewServerError("")
	}
	return &Receipt{SubmissionID: s.newID(), Status: SubmissionReceived}, nil
}

// authorize accepts only the most recently issued, unexpired access token of a user.
func (s *Service) authorize(ctx context.Context, accessToken string) (*users.User, error) {
	claims, err := s.verifier.Verify(ctx, accessToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrTokenExpired) {
			return nil, apperrors.NewAuthError("Token expired", apperrors.ErrTokenExpired)
		}
		return nil, apperrors.NewAuthError("Invalid token", apperrors.ErrInvalidToken)
	}

	current, err := s.repos.Grants.Get(claims.Subject)
	if err != nil || current.AccessJTI != claims.JTI {
		return nil, apperrors.NewAuthError("Invalid token", apperrors.ErrInvalidToken)
	}

	user, err := s.repos.Users.GetByID(claims.Subject)
	if err != nil {
		return nil, apperrors.NewAuthError("Invalid token", apperrors.ErrInvalidToken)
	}
	return user, nil
}

// issue creates an access token alongside rt and records both as the user's current grant.
func (s *Service) issue(user *users.User, rt *refresh.StoredRefreshToken) (*Tokens, error) {
	access, err := s.creator.CreateAccessToken(user)
	if err != nil {
		log.Err(err).Str("user", user.ID).Msg("[issue] failed to create access token")
		return nil, apperrors.NewServerError("")
	}

	if err := s.repos.Grants.Upsert(user.ID, grant.Grant{
		UserID:          user.ID,
		Email:           user.Email,
		AccessJTI:       access.JTI,
		RefreshToken:    rt.Token,
		AccessExpiresAt: access.ExpiresAt,
		CreatedAt:       rt.Iat,
	}); err != nil {
		log.Err(err).Str("user", user.ID).Msg("[issue] failed to record grant")
		return nil, apperrors.NewServerError("")
	}

	return &Tokens{
		AccessToken:  access.Token,
		RefreshToken: rt.Token,
		ExpiresAt:    access.ExpiresAt,
	}, nil
}

func (s *Service) wait(ctx context.Context, base time.Duration) error {
	d := time.Duration(float64(base) * s.latencyScale)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
