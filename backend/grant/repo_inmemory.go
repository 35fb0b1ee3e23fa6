package grant

import (
	"fmt"
	"sync"

	apperrors "github.com/jrsteele09/go-kyc-onboarding/internal/errors"
)

// InMemoryRepo is an in-memory implementation of Repo
type InMemoryRepo struct {
	mu     sync.RWMutex
	grants map[string]Grant // userID -> Grant
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory grant repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		grants: make(map[string]Grant),
	}
}

// Upsert creates or replaces the user's grant
func (r *InMemoryRepo) Upsert(userID string, grant Grant) error {
	if userID == "" {
		return fmt.Errorf("userID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.grants[userID] = grant
	return nil
}

// Get retrieves the user's current grant
func (r *InMemoryRepo) Get(userID string) (Grant, error) {
	if userID == "" {
		return Grant{}, fmt.Errorf("userID is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	grant, ok := r.grants[userID]
	if !ok {
		return Grant{}, apperrors.Wrapf(apperrors.ErrNotFound, "grant for user %s", userID)
	}
	return grant, nil
}

// Delete removes the user's grant
func (r *InMemoryRepo) Delete(userID string) error {
	if userID == "" {
		return fmt.Errorf("userID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.grants, userID)
	return nil
}
