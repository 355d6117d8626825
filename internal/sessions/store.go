package sessions

import (
	"context"

	"github.com/google/uuid"

	"github.com/cinelobby/backend/internal/models"
)

// SessionStore persists sessions. Implementations must enforce, atomically
// at the storage level, that at most one active session exists per owner and
// that active join codes are unique; Insert reports violations as
// ErrDuplicateOwnerActive and ErrDuplicateCode.
type SessionStore interface {
	// Insert stores a new session and fills ID, CreatedAt and UpdatedAt.
	Insert(ctx context.Context, s *models.Session) error

	// FindOwnedActive returns the owner's active session, or (nil, nil)
	// when the owner has none.
	FindOwnedActive(ctx context.Context, ownerID uuid.UUID) (*models.Session, error)

	// FindActiveByCode resolves an active session by join code, returning
	// ErrSessionNotFound when no active session carries the code.
	FindActiveByCode(ctx context.Context, code string) (*models.Session, error)

	// FindByIDAndOwner returns the session only when it exists and is owned
	// by ownerID; otherwise ErrSessionNotFound.
	FindByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*models.Session, error)

	// UpdateStatus applies from -> to for the owner's session, setting the
	// active flag, guarded by the current status so concurrent transitions
	// cannot both apply. Returns ErrSessionNotFound when no row matched.
	UpdateStatus(ctx context.Context, id, ownerID uuid.UUID, from, to models.Status, active bool) (*models.Session, error)
}

// ParticipantStore persists participants. Implementations must enforce the
// (session_id, user_id) uniqueness atomically at the storage level; Insert
// reports violations as ErrDuplicateParticipant.
type ParticipantStore interface {
	// Insert stores a new participant row and fills ID and JoinedAt.
	Insert(ctx context.Context, p *models.Participant) error

	// Delete removes the (sessionID, userID) row, reporting whether a row
	// was deleted.
	Delete(ctx context.Context, sessionID, userID uuid.UUID) (bool, error)

	// ListBySession returns the session's participants ordered by join time
	// ascending.
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Participant, error)
}
