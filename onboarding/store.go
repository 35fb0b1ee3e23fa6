package onboarding

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-kyc-onboarding/internal/errors"
	"github.com/jrsteele09/go-kyc-onboarding/internal/utils"
	"github.com/jrsteele09/go-kyc-onboarding/kv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultStorageKey is where the draft is persisted.
const DefaultStorageKey = "onboarding-store"

const persistTimeout = 5 * time.Second

// State is a snapshot of the wizard.
type State struct {
	Draft       Draft `json:"draft"`
	CurrentStep Step  `json:"currentStep"`
	// InProgress is set by any edit or step change and cleared by Reset.
	InProgress bool `json:"inProgress"`
}

// SubmitFunc sends a complete draft to the backend.
type SubmitFunc func(ctx context.Context, draft Draft) error

type Option func(*Store)

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

// Store holds the in-progress KYC draft. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	state State

	validator *Validator
	storage   kv.Store
	key       string
	log       zerolog.Logger

	persistMu sync.Mutex
	submitMu  sync.Mutex

	listenersMu sync.RWMutex
	listeners   map[int]func(State)
	nextID      int

	hydrated     chan struct{}
	hydratedOnce sync.Once
}

func NewStore(storage kv.Store, opts ...Option) *Store {
	if storage == nil {
		storage = kv.NewMemory()
	}
	s := &Store{
		validator: NewValidator(),
		storage:   storage,
		key:       DefaultStorageKey,
		log:       log.Logger,
		listeners: make(map[int]func(State)),
		hydrated:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) Draft() Draft {
	return s.State().Draft
}

func (s *Store) CurrentStep() Step {
	return s.State().CurrentStep
}

// IsValid reports whether the whole draft passes validation.
func (s *Store) IsValid() bool {
	return len(s.validator.Draft(s.Draft())) == 0
}

// Errors returns the field errors of the whole draft.
func (s *Store) Errors() map[string]string {
	return s.validator.Draft(s.Draft())
}

func (s *Store) UpdateProfile(p ProfilePatch) {
	s.update(func(d *Draft) {
		utils.Apply(&d.Profile.FullName, p.FullName)
		utils.Apply(&d.Profile.DateOfBirth, p.DateOfBirth)
		utils.Apply(&d.Profile.Nationality, p.Nationality)
	})
}

func (s *Store) UpdateDocument(p DocumentPatch) {
	s.update(func(d *Draft) {
		utils.Apply(&d.Document.DocumentType, p.DocumentType)
		utils.Apply(&d.Document.DocumentNumber, p.DocumentNumber)
	})
}

func (s *Store) UpdateSelfie(p SelfiePatch) {
	s.update(func(d *Draft) {
		utils.Apply(&d.Selfie.HasSelfie, p.HasSelfie)
	})
}

func (s *Store) UpdateAddress(p AddressPatch) {
	s.update(func(d *Draft) {
		utils.Apply(&d.Address.AddressLine1, p.AddressLine1)
		utils.Apply(&d.Address.City, p.City)
		utils.Apply(&d.Address.Country, p.Country)
	})
}

func (s *Store) UpdateConsents(p ConsentsPatch) {
	s.update(func(d *Draft) {
		utils.Apply(&d.Consents.TermsAccepted, p.TermsAccepted)
	})
}

func (s *Store) update(fn func(*Draft)) {
	s.mu.Lock()
	fn(&s.state.Draft)
	s.state.InProgress = true
	s.mu.Unlock()
	s.changed()
}

// NextStep advances when the sections of the current step are valid. Otherwise it
// returns a validation error and the step is unchanged. The last step does not advance.
func (s *Store) NextStep() error {
	s.mu.Lock()
	if fieldErrors := s.validator.Step(s.state.Draft, s.state.CurrentStep); len(fieldErrors) > 0 {
		s.mu.Unlock()
		return apperrors.NewValidationError("", fieldErrors)
	}
	if s.state.CurrentStep >= LastStep {
		s.mu.Unlock()
		return nil
	}
	s.state.CurrentStep++
	s.state.InProgress = true
	s.mu.Unlock()
	s.changed()
	return nil
}

// PrevStep moves back one step, stopping at the first.
func (s *Store) PrevStep() {
	s.mu.Lock()
	if s.state.CurrentStep <= StepProfile {
		s.mu.Unlock()
		return
	}
	s.state.CurrentStep--
	s.state.InProgress = true
	s.mu.Unlock()
	s.changed()
}

// GoTo jumps to step, e.g. to fix a field the backend rejected.
func (s *Store) GoTo(step Step) error {
	if step < StepProfile || step > LastStep {
		return apperrors.Wrapf(apperrors.ErrInvalidTransition, "step %d", int(step))
	}
	s.mu.Lock()
	s.state.CurrentStep = step
	s.state.InProgress = true
	s.mu.Unlock()
	s.changed()
	return nil
}

// Reset clears the draft and returns to the first step.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = State{}
	s.mu.Unlock()
	s.changed()
}

// Submit validates the whole draft and hands it to fn. The draft is reset when fn
// succeeds. A validation error, local or from fn, moves the wizard to the first
// offending step. Only one submission runs at a time.
func (s *Store) Submit(ctx context.Context, fn SubmitFunc) error {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	draft := s.Draft()
	if fieldErrors := s.validator.Draft(draft); len(fieldErrors) > 0 {
		s.jumpToFirst(fieldErrors)
		return apperrors.NewValidationError("", fieldErrors)
	}

	if err := fn(ctx, draft); err != nil {
		if apperrors.IsValidationError(err) {
			s.jumpToFirst(apperrors.FieldErrors(err))
		}
		return err
	}

	s.log.Debug().Msg("draft submitted")
	s.Reset()
	return nil
}

func (s *Store) jumpToFirst(fieldErrors map[string]string) {
	if step, ok := FirstStep(fieldErrors); ok {
		_ = s.GoTo(step)
	}
}

// Subscribe registers fn to receive a snapshot after every change.
func (s *Store) Subscribe(fn func(State)) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

func (s *Store) changed() {
	s.persist()
	snapshot := s.State()

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

func (s *Store) persist() {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := kv.SetJSON(ctx, s.storage, s.key, s.State()); err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("failed to persist onboarding draft")
	}
}

// Hydrate restores a persisted draft. A step outside the wizard is reset to the first.
// Edits made before Hydrate completes win over the persisted draft.
func (s *Store) Hydrate(ctx context.Context) error {
	defer s.hydratedOnce.Do(func() { close(s.hydrated) })

	var persisted State
	err := kv.GetJSON(ctx, s.storage, s.key, &persisted)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("failed to hydrate onboarding draft")
		return apperrors.Wrapf(err, "hydrate %s", s.key)
	}
	if persisted.CurrentStep < StepProfile || persisted.CurrentStep > LastStep {
		persisted.CurrentStep = StepProfile
	}

	s.mu.Lock()
	if s.state.InProgress {
		s.mu.Unlock()
		s.log.Debug().Str("key", s.key).Msg("draft edited before hydration, persisted draft ignored")
		return nil
	}
	s.state = persisted
	s.mu.Unlock()
	s.changed()
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
