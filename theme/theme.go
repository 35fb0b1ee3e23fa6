// Package theme stores the user's colour scheme preference.
package theme

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-kyc-onboarding/internal/errors"
	"github.com/jrsteele09/go-kyc-onboarding/kv"
	"github.com/rs/zerolog/log"
)

// DefaultStorageKey is where the preference is persisted.
const DefaultStorageKey = "theme-store"

const persistTimeout = 5 * time.Second

// Theme is a colour scheme. The empty value means no preference is known.
type Theme string

const (
	Unspecified Theme = ""
	Light       Theme = "light"
	Dark        Theme = "dark"
)

// Parse accepts "light", "dark" or "".
func Parse(s string) (Theme, error) {
	switch t := Theme(s); t {
	case Unspecified, Light, Dark:
		return t, nil
	}
	return Unspecified, fmt.Errorf("unknown theme %q", s)
}

type State struct {
	Theme    Theme `json:"theme"`
	IsSystem bool  `json:"isSystem"`
}

// Store follows the system theme until the user pins one.
type Store struct {
	mu     sync.RWMutex
	state  State
	system Theme

	storage   kv.Store
	persistMu sync.Mutex
	hydrated  chan struct{}
	once      sync.Once
}

// New returns a store following system.
func New(storage kv.Store, system Theme) *Store {
	if storage == nil {
		storage = kv.NewMemory()
	}
	return &Store{
		state:    State{Theme: system, IsSystem: true},
		system:   system,
		storage:  storage,
		hydrated: make(chan struct{}),
	}
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Effective resolves Unspecified to the system theme.
func (s *Store) Effective() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Theme == Unspecified {
		return s.system
	}
	return s.state.Theme
}

// SetTheme pins t and stops following the system.
func (s *Store) SetTheme(t Theme) {
	s.set(func(st *State) {
		st.Theme = t
		st.IsSystem = false
	})
}

// SetSystemTheme records the system theme. It is applied only while following the system.
func (s *Store) SetSystemTheme(t Theme) {
	s.set(func(st *State) {
		s.system = t
		if st.IsSystem {
			st.Theme = t
		}
	})
}

func (s *Store) SetIsSystem(isSystem bool) {
	s.set(func(st *State) {
		st.IsSystem = isSystem
	})
}

func (s *Store) set(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.persist()
}

func (s *Store) persist() {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := kv.SetJSON(ctx, s.storage, DefaultStorageKey, s.State()); err != nil {
		log.Warn().Err(err).Msg("failed to persist theme")
	}
}

// Hydrate restores the persisted preference. When it follows the system, the current
// system theme wins over the persisted one.
func (s *Store) Hydrate(ctx context.Context) error {
	defer s.once.Do(func() { close(s.hydrated) })

	var persisted State
	err := kv.GetJSON(ctx, s.storage, DefaultStorageKey, &persisted)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.Wrapf(err, "hydrate %s", DefaultStorageKey)
	}
	if _, err := Parse(string(persisted.Theme)); err != nil {
		persisted = State{IsSystem: true}
	}

	s.mu.Lock()
	if persisted.IsSystem {
		persisted.Theme = s.system
	}
	s.state = persisted
	s.mu.Unlock()
	s.persist()
	return nil
}

// Hydrated is closed once Hydrate has finished.
func (s *Store) Hydrated() <-chan struct{} {
	return s.hydrated
}

func (s *Store) IsHydrated() bool {
	select {
	case <-s.hydrated:
		return true
	default:
		return false
	}
}

// WaitHydrated blocks until Hydrate has finished or ctx is done.
func (s *Store) WaitHydrated(ctx context.Context) error {
	select {
	case <-s.hydrated:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
