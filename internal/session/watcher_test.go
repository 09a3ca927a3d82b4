package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicura/medicura-api/internal/model"
)

func testSession(expiry time.Time) *Session {
	return &Session{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Email:      "a@x.com",
		Name:       "Test Patient",
		Role:       model.RolePatient,
		IssuedAt:   time.Now(),
		HardExpiry: expiry,
	}
}

func waitForState(t *testing.T, w *Watcher, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("watcher never reached state %v, stuck at %v", want, w.State())
}

func TestArmPastExpirySignsOutImmediately(t *testing.T) {
	var calls int32
	w := NewWatcher(func(ctx context.Context, s *Session) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	// Expiry one second in the past: no timer tick may be waited on.
	w.Arm(testSession(time.Now().Add(-time.Second)))

	assert.Equal(t, StateSignedOut, w.State())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestArmFutureExpiryFiresAtDeadline(t *testing.T) {
	fired := make(chan time.Time, 1)
	w := NewWatcher(func(ctx context.Context, s *Session) error {
		fired <- time.Now()
		return nil
	})

	expiry := time.Now().Add(50 * time.Millisecond)
	w.Arm(testSession(expiry))
	assert.Equal(t, StateActive, w.State())

	select {
	case at := <-fired:
		assert.False(t, at.Before(expiry), "fired before hard expiry")
		assert.WithinDuration(t, expiry, at, 500*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("sign-out never fired")
	}
	waitForState(t, w, StateSignedOut)
}

func TestRearmCancelsPreviousTimer(t *testing.T) {
	var calls int32
	w := NewWatcher(func(ctx context.Context, s *Session) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	w.Arm(testSession(time.Now().Add(30 * time.Millisecond)))
	w.Arm(testSession(time.Now().Add(150 * time.Millisecond)))

	// The first timer's deadline passes without a sign-out.
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.Equal(t, StateActive, w.State())

	waitForState(t, w, StateSignedOut)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDisarmPreventsSignOut(t *testing.T) {
	var calls int32
	w := NewWatcher(func(ctx context.Context, s *Session) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	w.Arm(testSession(time.Now().Add(30 * time.Millisecond)))
	w.Disarm()
	assert.Equal(t, StateIdle, w.State())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.Equal(t, StateIdle, w.State())
}

func TestSignOutFailureStillTerminates(t *testing.T) {
	w := NewWatcher(func(ctx context.Context, s *Session) error {
		return errors.New("network down")
	})

	w.Arm(testSession(time.Now().Add(-time.Second)))

	// Fail-open: local state terminates even when the revoke call fails.
	assert.Equal(t, StateSignedOut, w.State())
}

func TestSignedOutWatcherRestartsOnNewSession(t *testing.T) {
	var calls int32
	w := NewWatcher(func(ctx context.Context, s *Session) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	w.Arm(testSession(time.Now().Add(-time.Second)))
	require.Equal(t, StateSignedOut, w.State())

	// A fresh credential verification restarts the cycle.
	w.Arm(testSession(time.Now().Add(time.Hour)))
	assert.Equal(t, StateActive, w.State())
	w.Disarm()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTransitionHookObservesLifecycle(t *testing.T) {
	var seen []State
	done := make(chan struct{})
	w := NewWatcher(
		func(ctx context.Context, s *Session) error { return nil },
		WithTransitionHook(func(s State) {
			seen = append(seen, s)
			if s == StateSignedOut {
				close(done)
			}
		}),
	)

	w.Arm(testSession(time.Now().Add(-time.Second)))
	<-done
	assert.Equal(t, []State{StateActive, StateExpiredPendingSignOut, StateSignedOut}, seen)
}

func TestSupervisorTracksAndReleases(t *testing.T) {
	store := NewMemoryStore()
	signOut := func(ctx context.Context, s *Session) error {
		if err := store.SetExpiredMarker(ctx, s.UserID); err != nil {
			return err
		}
		return store.Revoke(ctx, s.ID)
	}
	sv := NewSupervisor(signOut)

	s1 := testSession(time.Now().Add(time.Hour))
	require.NoError(t, store.Save(context.Background(), s1))
	sv.Track(s1)
	assert.Equal(t, 1, sv.Tracked())

	sv.Release(s1.ID)
	assert.Equal(t, 0, sv.Tracked())

	// Session stays live in the store after a plain release.
	_, err := store.Get(context.Background(), s1.ID)
	assert.NoError(t, err)
}

func TestSupervisorSignOutRevokesAndMarks(t *testing.T) {
	store := NewMemoryStore()
	signOut := func(ctx context.Context, s *Session) error {
		if err := store.SetExpiredMarker(ctx, s.UserID); err != nil {
			return err
		}
		return store.Revoke(ctx, s.ID)
	}
	sv := NewSupervisor(signOut)

	s := testSession(time.Now().Add(20 * time.Millisecond))
	require.NoError(t, store.Save(context.Background(), s))
	sv.Track(s)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && sv.Tracked() > 0 {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 0, sv.Tracked())

	_, err := store.Get(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	was, err := store.ConsumeExpiredMarker(context.Background(), s.UserID)
	require.NoError(t, err)
	assert.True(t, was)

	// Marker is one-shot.
	was, err = store.ConsumeExpiredMarker(context.Background(), s.UserID)
	require.NoError(t, err)
	assert.False(t, was)
}

func TestSweeperReapsExpiredSessions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	live := testSession(time.Now().Add(time.Hour))
	dead := testSession(time.Now().Add(-time.Minute))
	require.NoError(t, store.Save(ctx, live))
	require.NoError(t, store.Save(ctx, dead))

	var reaped int
	sw := NewSweeper(store, time.Hour, func(n int) { reaped += n })
	require.NoError(t, sw.sweep(ctx))

	assert.Equal(t, 1, reaped)
	_, err := store.Get(ctx, dead.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, live.ID)
	assert.NoError(t, err)

	was, err := store.ConsumeExpiredMarker(ctx, dead.UserID)
	require.NoError(t, err)
	assert.True(t, was)
}
