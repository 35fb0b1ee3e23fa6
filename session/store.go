// Package session holds the client's authentication state: status, user identity and
// token pair. Every transition is guarded, persisted and announced to subscribers.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-kyc-onboarding/internal/errors"
	"github.com/jrsteele09/go-kyc-onboarding/kv"
	"github.com/jrsteele09/go-kyc-onboarding/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultStorageKey is where the store persists its state.
const DefaultStorageKey = "auth-store"

const defaultPersistTimeout = 5 * time.Second

type Option func(*Store)

// WithStorageKey overrides the persistence key.
func WithStorageKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// WithPersistTimeout bounds each storage write.
func WithPersistTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.persistTimeout = d
	}
}

// Store is safe for concurrent use. The lock is never held while calling the
// Authenticator, the storage or listeners.
type Store struct {
	mu    sync.RWMutex
	state State
	// generation changes on every login attempt and logout, so a login result that
	// arrives after a logout can be recognised and discarded.
	generation uint64

	auth           Authenticator
	storage        kv.Store
	key            string
	persistTimeout time.Duration
	persistMu      sync.Mutex
	log            zerolog.Logger

	listenersMu sync.RWMutex
	listeners   map[int]func(State)
	nextID      int

	hydrated     chan struct{}
	hydratedOnce sync.Once
}

// New returns a logged out store. Call Hydrate to restore persisted state.
func New(auth Authenticator, storage kv.Store, opts ...Option) *Store {
	if storage == nil {
		storage = kv.NewMemory()
	}
	s := &Store{
		state:          State{Status: StatusLoggedOut},
		auth:           auth,
		storage:        storage,
		key:            DefaultStorageKey,
		persistTimeout: defaultPersistTimeout,
		log:            log.Logger,
		listeners:      make(map[int]func(State)),
		hydrated:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a snapshot.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Status
}

// AccessToken returns the current access token, if a session is held.
func (s *Store) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Session == nil {
		return "", false
	}
	return s.state.Session.AccessToken, true
}

// User returns the held identity, if any.
func (s *Store) User() (users.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return users.User{}, false
	}
	return *s.state.User, true
}

// Login authenticates and moves logging_in to logged_in, or back to logged_out on failure.
// It is allowed from logged_out and expired.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.mu.Lock()
	switch s.state.Status {
	case StatusLoggedOut, StatusExpired:
	default:
		status := s.state.Status
		s.mu.Unlock()
		return apperrors.Wrapf(apperrors.ErrInvalidTransition, "login while %s", status)
	}
	s.generation++
	generation := s.generation
	s.state = State{Status: StatusLoggingIn}
	s.mu.Unlock()
	s.changed()

	result, err := s.auth.Login(ctx, email, password)

	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		s.log.Debug().Msg("login result discarded after logout")
		return apperrors.ErrLoginSuperseded
	}
	if err != nil {
		s.state = State{Status: StatusLoggedOut}
		s.mu.Unlock()
		s.changed()
		return err
	}
	if result == nil {
		s.state = State{Status: StatusLoggedOut}
		s.mu.Unlock()
		s.changed()
		return apperrors.Wrapf(apperrors.ErrInternal, "authenticator returned no result")
	}
	user, sess := result.User.Public(), result.Session
	s.state = State{Status: StatusLoggedIn, User: &user, Session: &sess}
	s.mu.Unlock()
	s.changed()
	return nil
}

// Logout clears identity and tokens from any status. It never fails.
func (s *Store) Logout() {
	s.mu.Lock()
	s.generation++
	if s.state.Status == StatusLoggedOut && s.state.User == nil && s.state.Session == nil {
		s.mu.Unlock()
		return
	}
	s.state = State{Status: StatusLoggedOut}
	s.mu.Unlock()
	s.changed()
}

// MarkExpired moves logged_in to expired. It is a no-op when already expired or refreshing.
func (s *Store) MarkExpired() error {
	s.mu.Lock()
	switch s.state.Status {
	case StatusExpired, StatusRefreshing:
		s.mu.Unlock()
		return nil
	case StatusLoggedIn:
		s.state.Status = StatusExpired
		s.mu.Unlock()
		s.changed()
		return nil
	default:
		s.mu.Unlock()
		return apperrors.ErrNotAuthenticated
	}
}

// RefreshTicket identifies a refresh started by BeginRefresh. A logout or a new login
// after BeginRefresh invalidates it.
type RefreshTicket struct {
	// Session holds the refresh token to exchange.
	Session    Session
	generation uint64
}

// BeginRefresh moves expired to refreshing and returns the ticket the outcome must be
// reported with.
func (s *Store) BeginRefresh() (RefreshTicket, error) {
	s.mu.Lock()
	if s.state.Status != StatusExpired {
		status := s.state.Status
		s.mu.Unlock()
		if !status.holdsIdentity() {
			return RefreshTicket{}, apperrors.ErrNotAuthenticated
		}
		return RefreshTicket{}, apperrors.Wrapf(apperrors.ErrInvalidTransition, "refresh while %s", status)
	}
	s.state.Status = StatusRefreshing
	t := RefreshTicket{Session: *s.state.Session, generation: s.generation}
	s.mu.Unlock()
	s.changed()
	return t, nil
}

// RefreshSession replaces the token pair, keeping the user, and settles on logged_in.
// A ticket issued before a logout or login yields ErrRefreshSuperseded and the store
// is left untouched.
func (s *Store) RefreshSession(t RefreshTicket, sess Session) error {
	s.mu.Lock()
	if s.generation != t.generation {
		s.mu.Unlock()
		s.log.Debug().Msg("refresh result discarded after logout")
		return apperrors.ErrRefreshSuperseded
	}
	if s.state.User == nil {
		s.mu.Unlock()
		return apperrors.ErrNotAuthenticated
	}
	if s.state.Status != StatusRefreshing {
		status := s.state.Status
		s.mu.Unlock()
		return apperrors.Wrapf(apperrors.ErrInvalidTransition, "refresh result while %s", status)
	}
	s.state.Session = &sess
	s.state.Status = StatusLoggedIn
	s.mu.Unlock()
	s.changed()
	return nil
}

// FailRefresh ends a failed refresh in logged_out and reports whether it did. A stale
// ticket leaves the store untouched.
func (s *Store) FailRefresh(t RefreshTicket) bool {
	s.mu.Lock()
	if s.generation != t.generation || s.state.Status != StatusRefreshing {
		s.mu.Unlock()
		return false
	}
	s.generation++
	s.state = State{Status: StatusLoggedOut}
	s.mu.Unlock()
	s.changed()
	return true
}

// UpdateUser stores a fresh profile for the held identity.
func (s *Store) UpdateUser(user users.User) error {
	s.mu.Lock()
	if s.state.User == nil {
		s.mu.Unlock()
		return apperrors.ErrNotAuthenticated
	}
	if !s.state.User.SameIdentity(user) {
		s.mu.Unlock()
		return apperrors.Wrapf(apperrors.ErrInvalidTransition, "profile for %s does not match %s", user.ID, s.state.User.ID)
	}
	u := user.Public()
	s.state.User = &u
	s.mu.Unlock()
	s.changed()
	return nil
}

// Subscribe registers fn to receive a snapshot after every change. The returned
// function unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// changed persists the current state and notifies listeners. Callers must not hold s.mu.
func (s *Store) changed() {
	s.persist()
	snapshot := s.State()
	s.log.Debug().Str("status", string(snapshot.Status)).Msg("session state changed")

	s.listenersMu.RLock()
	fns := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.RUnlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

// persist writes the latest state. Failures are logged and never undo a transition.
func (s *Store) persist() {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	snapshot := s.State()
	var err error
	if snapshot.Status == StatusLoggedOut {
		err = s.storage.Delete(ctx, s.key)
	} else {
		err = kv.SetJSON(ctx, s.storage, s.key, snapshot)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("failed to persist session state")
	}
}

// Hydrate restores persisted state. Transient statuses settle: logging_in becomes
// logged_out and refreshing becomes expired. Persisted state is ignored once any
// transition has happened. Hydrated is closed whether or not an error is returned.
func (s *Store) Hydrate(ctx context.Context) error {
	defer s.hydratedOnce.Do(func() { close(s.hydrated) })

	var persisted State
	err := kv.GetJSON(ctx, s.storage, s.key, &persisted)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("failed to hydrate session state")
		return apperrors.Wrapf(err, "hydrate %s", s.key)
	}

	restored := settle(persisted)

	s.mu.Lock()
	if s.generation != 0 || s.state.Status != StatusLoggedOut {
		s.mu.Unlock()
		s.log.Debug().Msg("hydration skipped, store already in use")
		return nil
	}
	s.state = restored
	s.mu.Unlock()
	s.changed()
	return nil
}

// settle makes persisted state satisfy the identity invariant.
func settle(st State) State {
	switch st.Status {
	case StatusLoggingIn:
		return State{Status: StatusLoggedOut}
	case StatusRefreshing:
		st.Status = StatusExpired
	}
	if !st.Status.valid() || !st.Status.holdsIdentity() || st.User == nil || st.Session == nil {
		return State{Status: StatusLoggedOut}
	}
	return st.clone()
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
