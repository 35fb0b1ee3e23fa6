// Package navigation decouples the session core from whatever presents screens.
package navigation

import (
	"sync"

	"github.com/rs/zerolog"
)

// Intent names a destination.
type Intent string

const (
	Login          Intent = "login"
	SessionExpired Intent = "session-expired"
	Home           Intent = "home"
	Onboarding     Intent = "onboarding"
)

// Navigator requests a screen change. Calls are fire-and-forget.
type Navigator interface {
	Navigate(intent Intent)
}

// Func adapts a function to a Navigator.
type Func func(Intent)

func (f Func) Navigate(intent Intent) { f(intent) }

// Recorder remembers every intent it receives.
type Recorder struct {
	mu      sync.Mutex
	intents []Intent
}

var _ Navigator = (*Recorder)(nil)

func (r *Recorder) Navigate(intent Intent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents = append(r.intents, intent)
}

// Intents returns a copy of the recorded intents in order.
func (r *Recorder) Intents() []Intent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Intent(nil), r.intents...)
}

// Last returns the most recent intent, or "" when none was recorded.
func (r *Recorder) Last() Intent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.intents) == 0 {
		return ""
	}
	return r.intents[len(r.intents)-1]
}

// Logger writes intents to a zerolog logger.
type Logger struct {
	Log zerolog.Logger
}

func (l Logger) Navigate(intent Intent) {
	l.Log.Info().Str("intent", string(intent)).Msg("navigate")
}

// Multi fans an intent out to several navigators.
type Multi []Navigator

func (m Multi) Navigate(intent Intent) {
	for _, n := range m {
		n.Navigate(intent)
	}
}
