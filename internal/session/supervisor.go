package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Supervisor runs one expiry watcher per live session issued by this process.
// Sessions issued before a restart have no watcher here; the Sweeper covers
// those.
type Supervisor struct {
	mu       sync.Mutex
	watchers map[uuid.UUID]*Watcher
	signOut  SignOutFunc
	opts     []WatcherOption
}

func NewSupervisor(signOut SignOutFunc, opts ...WatcherOption) *Supervisor {
	return &Supervisor{
		watchers: make(map[uuid.UUID]*Watcher),
		signOut:  signOut,
		opts:     opts,
	}
}

// Track arms a watcher for the session, superseding any watcher already
// tracking the same session id.
func (sv *Supervisor) Track(s *Session) {
	sv.mu.Lock()
	w, ok := sv.watchers[s.ID]
	if !ok {
		signOut := func(ctx context.Context, expired *Session) error {
			defer sv.forget(expired.ID)
			return sv.signOut(ctx, expired)
		}
		w = NewWatcher(signOut, sv.opts...)
		sv.watchers[s.ID] = w
	}
	sv.mu.Unlock()

	w.Arm(s)
}

// Release disarms and drops the watcher for a session, e.g. on explicit
// logout. Releasing an untracked session is a no-op.
func (sv *Supervisor) Release(id uuid.UUID) {
	sv.mu.Lock()
	w, ok := sv.watchers[id]
	delete(sv.watchers, id)
	sv.mu.Unlock()

	if ok {
		w.Disarm()
	}
}

// Stop disarms every tracked watcher. Sessions stay live in the store; they
// will be re-covered by the sweeper or by inline expiry checks.
func (sv *Supervisor) Stop() {
	sv.mu.Lock()
	watchers := sv.watchers
	sv.watchers = make(map[uuid.UUID]*Watcher)
	sv.mu.Unlock()

	for _, w := range watchers {
		w.Disarm()
	}
}

// Tracked returns the number of live watchers.
func (sv *Supervisor) Tracked() int {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return len(sv.watchers)
}

func (sv *Supervisor) forget(id uuid.UUID) {
	sv.mu.Lock()
	delete(sv.watchers, id)
	sv.mu.Unlock()
}
