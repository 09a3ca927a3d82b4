package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// State is the expiry watcher's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateActive
	StateExpiredPendingSignOut
	StateSignedOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateExpiredPendingSignOut:
		return "expired_pending_sign_out"
	case StateSignedOut:
		return "signed_out"
	}
	return "unknown"
}

// SignOutFunc terminates the session server-side: revoke the record and set
// the one-shot expired marker. The watcher treats the session as terminated
// even if this fails.
type SignOutFunc func(ctx context.Context, s *Session) error

// Watcher enforces a single session's hard expiry. It arms exactly one timer
// for HardExpiry minus now; re-arming cancels the previous timer, and a hard
// expiry already in the past triggers sign-out synchronously inside Arm
// without waiting a timer tick.
type Watcher struct {
	mu      sync.Mutex
	state   State
	current *Session
	timer   *time.Timer
	gen     uint64

	signOut      SignOutFunc
	now          func() time.Time
	signOutGrace time.Duration
	onTransition func(State)
}

// WatcherOption customizes a Watcher.
type WatcherOption func(*Watcher)

// WithClock substitutes the time source.
func WithClock(now func() time.Time) WatcherOption {
	return func(w *Watcher) { w.now = now }
}

// WithTransitionHook observes every state change, e.g. for metrics.
func WithTransitionHook(fn func(State)) WatcherOption {
	return func(w *Watcher) { w.onTransition = fn }
}

// WithSignOutGrace bounds how long the sign-out call may take.
func WithSignOutGrace(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.signOutGrace = d }
}

func NewWatcher(signOut SignOutFunc, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		state:        StateIdle,
		signOut:      signOut,
		now:          time.Now,
		signOutGrace: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the current lifecycle state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Arm starts (or restarts) watching a session. Any previously armed timer is
// cancelled first, so at most one timer exists per watcher. If the session's
// hard expiry has already passed, sign-out runs before Arm returns.
func (w *Watcher) Arm(s *Session) {
	w.mu.Lock()
	w.cancelTimerLocked()
	w.current = s
	w.gen++
	gen := w.gen
	w.setStateLocked(StateActive)

	remaining := s.HardExpiry.Sub(w.now())
	if remaining <= 0 {
		w.mu.Unlock()
		w.expire(gen)
		return
	}

	w.timer = time.AfterFunc(remaining, func() { w.expire(gen) })
	w.mu.Unlock()
}

// Disarm cancels the armed timer and returns the watcher to Idle without
// signing the session out. Used when a view unmounts or a new session
// supersedes the old one through a fresh Arm.
func (w *Watcher) Disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelTimerLocked()
	w.gen++
	w.current = nil
	w.setStateLocked(StateIdle)
}

// expire drives Active -> ExpiredPendingSignOut -> SignedOut. A stale
// generation means the timer was superseded and the signal is dropped.
func (w *Watcher) expire(gen uint64) {
	w.mu.Lock()
	if gen != w.gen || w.state != StateActive {
		w.mu.Unlock()
		return
	}
	s := w.current
	w.setStateLocked(StateExpiredPendingSignOut)
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), w.signOutGrace)
	defer cancel()
	if err := w.signOut(ctx, s); err != nil {
		// Local state is cleared regardless; a residual server-side record
		// is an accepted gap and the sweeper will reap it.
		log.Error().Err(err).Stringer("session_id", s.ID).Msg("sign-out failed during forced expiry")
	}

	w.mu.Lock()
	if gen == w.gen {
		w.current = nil
		w.setStateLocked(StateSignedOut)
	}
	w.mu.Unlock()
}

func (w *Watcher) cancelTimerLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) setStateLocked(s State) {
	if w.state == s {
		return
	}
	w.state = s
	if w.onTransition != nil {
		w.onTransition(s)
	}
}
