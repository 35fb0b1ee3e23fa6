package backend

import (
	"errors"
	"fmt"

	"github.com/jrsteele09/go-kyc-onboarding/backend/grant"
	"github.com/jrsteele09/go-kyc-onboarding/internal/config"
	apperrors "github.com/jrsteele09/go-kyc-onboarding/internal/errors"
	"github.com/jrsteele09/go-kyc-onboarding/token/keys"
	refreshrepofake "github.com/jrsteele09/go-kyc-onboarding/token/refresh/repofake"
	"github.com/jrsteele09/go-kyc-onboarding/users"
	fakeuserrepo "github.com/jrsteele09/go-kyc-onboarding/users/repofake"
	"github.com/rs/zerolog/log"
)

// EnsureDemoUser creates the configured demo account if it does not exist yet.
func EnsureDemoUser(repo users.UserRepo, cfg config.MockConfig) (*users.User, error) {
	existing, err := repo.GetByEmail(cfg.GetDemoUserEmail())
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, fmt.Errorf("[EnsureDemoUser] failed to look up demo user: %w", err)
	}

	hash, err := users.HashPassword(cfg.GetDemoUserPassword())
	if err != nil {
		return nil, fmt.Errorf("[EnsureDemoUser] failed to hash password: %w", err)
	}

	user := &users.User{
		ID:           cfg.GetDemoUserID(),
		Email:        cfg.GetDemoUserEmail(),
		FullName:     cfg.GetDemoUserName(),
		PasswordHash: hash,
	}
	if err := repo.Upsert(user); err != nil {
		return nil, fmt.Errorf("[EnsureDemoUser] failed to store demo user: %w", err)
	}

	log.Info().Str("email", user.Email).Str("id", user.ID).Msg("demo user created")
	return user, nil
}

// NewDemoService builds a service over in-memory repositories seeded with the demo user.
func NewDemoService(cfg Config, signer *keys.KeyPairSigner, options ...Option) (*Service, error) {
	repos := Repos{
		Users:         fakeuserrepo.NewFakeUserRepo(),
		RefreshTokens: refreshrepofake.NewFakeRefreshTokenRepo(),
		Grants:        grant.NewInMemoryRepo(),
	}
	if _, err := EnsureDemoUser(repos.Users, cfg); err != nil {
		return nil, err
	}
	return NewService(cfg, repos, signer, options...)
}
