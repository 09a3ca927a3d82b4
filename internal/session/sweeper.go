package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper reaps sessions whose hard expiry passed without an in-process
// watcher firing, which happens when the issuing process restarted. It
// revokes the record and sets the expired marker so the user's next request
// still gets the "session expired" response.
type Sweeper struct {
	store    Store
	interval time.Duration
	reaped   func(n int)
}

func NewSweeper(store Store, interval time.Duration, reaped func(n int)) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		reaped:   reaped,
	}
}

func (w *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", w.interval).Msg("session sweeper started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session sweeper shutting down")
			return
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				log.Error().Err(err).Msg("session sweep failed")
			}
		}
	}
}

func (w *Sweeper) sweep(ctx context.Context) error {
	sessions, err := w.store.List(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	reaped := 0
	for _, s := range sessions {
		if !s.Expired(now) {
			continue
		}
		if err := w.store.SetExpiredMarker(ctx, s.UserID); err != nil {
			log.Error().Err(err).Stringer("session_id", s.ID).Msg("failed to set expired marker")
		}
		if err := w.store.Revoke(ctx, s.ID); err != nil {
			log.Error().Err(err).Stringer("session_id", s.ID).Msg("failed to revoke expired session")
			continue
		}
		reaped++
	}

	if reaped > 0 {
		log.Info().Int("count", reaped).Msg("reaped expired sessions")
		if w.reaped != nil {
			w.reaped(reaped)
		}
	}
	return nil
}
