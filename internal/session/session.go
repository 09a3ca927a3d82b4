package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medicura/medicura-api/internal/model"
)

var (
	// ErrNotFound is returned when a session id has no live record, either
	// because it was never issued or because it has been revoked.
	ErrNotFound = errors.New("session not found")
)

// Session is the server-side record backing an issued token pair. HardExpiry
// is fixed at issuance and never extended: once it passes, the session is
// invalid regardless of any remaining token validity.
type Session struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Role       model.Role `json:"role"`
	IssuedAt   time.Time  `json:"issued_at"`
	HardExpiry time.Time  `json:"hard_expiry"`
}

// Expired reports whether the hard expiry has passed at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.HardExpiry)
}

// Identity extracts the verified principal from the session.
func (s *Session) Identity() model.Identity {
	return model.Identity{
		UserID:    s.UserID,
		SessionID: s.ID,
		Email:     s.Email,
		Name:      s.Name,
	}
}

// Store persists sessions and the one-shot "was expired" markers that bridge
// the gap between a forced sign-out and the next unauthenticated request.
// The marker is written only by the expiry path and cleared on first read.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	// List returns every live session. Used by the sweeper to find sessions
	// whose in-process watcher was lost across a restart.
	List(ctx context.Context) ([]*Session, error)
	SetExpiredMarker(ctx context.Context, userID uuid.UUID) error
	// ConsumeExpiredMarker reads and clears the marker in one step.
	ConsumeExpiredMarker(ctx context.Context, userID uuid.UUID) (bool, error)
}
