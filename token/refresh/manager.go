package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-kyc-onboarding/internal/config"
	apperrors "github.com/jrsteele09/go-kyc-onboarding/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Manager handles refresh token creation, validation, and rotation.
// Create and Rotate are serialized so a token can be exchanged at most once.
type Manager struct {
	mu     sync.Mutex
	repo   Repo
	config config.OAuthConfig
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, cfg config.OAuthConfig) *Manager {
	return &Manager{
		repo:   repo,
		config: cfg,
	}
}

// Create generates a new refresh token and stores it.
// A user holds at most one refresh token, so any previous one is revoked.
func (m *Manager) Create(userID string) (*StoredRefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.create(userID)
}

func (m *Manager) create(userID string) (*StoredRefreshToken, error) {
	if existingToken, err := m.repo.GetByUserID(userID); err == nil && existingToken != nil {
		if err := m.repo.Delete(existingToken.Token); err != nil {
			return nil, fmt.Errorf("failed to delete existing refresh token: %w", err)
		}
	}

	tokenBytes := make([]byte, m.config.GetRefreshTokenLength())
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}

	now := NowTimeFunc()
	rt := &StoredRefreshToken{
		Token:     hex.EncodeToString(tokenBytes),
		UserID:    userID,
		Iat:       now,
		ExpiresAt: now.Add(m.config.GetDefaultRefreshTokenExpiry()),
	}
	if err := m.repo.Upsert(rt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return rt, nil
}

// Get retrieves a refresh token from storage
func (m *Manager) Get(token string) (*StoredRefreshToken, error) {
	return m.repo.Get(token)
}

// Delete removes a refresh token from storage
func (m *Manager) Delete(token string) error {
	return m.repo.Delete(token)
}

// IsExpired checks if a refresh token has expired
func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return !NowTimeFunc().Before(rt.ExpiresAt)
}

// Rotate exchanges a valid refresh token for a new one. The presented token is
// revoked whether or not the exchange succeeds.
func (m *Manager) Rotate(token string) (*StoredRefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rt, err := m.repo.Get(token)
	if err != nil {
		return nil, apperrors.ErrInvalidRefreshToken
	}
	if m.IsExpired(rt) {
		_ = m.repo.Delete(token)
		return nil, apperrors.ErrRefreshTokenExpired
	}
	return m.create(rt.UserID)
}
