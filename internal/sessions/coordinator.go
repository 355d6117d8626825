package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cinelobby/backend/internal/models"
)

// maxCodeAttempts bounds the regenerate-on-collision loop during creation.
const maxCodeAttempts = 5

// CreateSessionInput carries the owner-supplied fields for a new session.
// Range and shape checks (name length, max_films in [1,5]) happen in the
// handler before the coordinator is invoked.
type CreateSessionInput struct {
	Name        string
	ScheduledAt time.Time
	MaxFilms    int
}

// JoinResult is returned by Join: the new participant row plus the session
// it belongs to.
type JoinResult struct {
	Participant *models.Participant `json:"participant"`
	Session     *models.Session     `json:"session"`
}

// Coordinator orchestrates session creation, joining, leaving and status
// transitions, and enforces the business invariants on top of the stores'
// storage-level constraints.
type Coordinator struct {
	sessions     SessionStore
	participants ParticipantStore
	logger       *zap.Logger

	// generateCode is swappable in tests to force collisions.
	generateCode func() (string, error)
}

// NewCoordinator creates a session coordinator.
func NewCoordinator(sessions SessionStore, participants ParticipantStore, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		sessions:     sessions,
		participants: participants,
		logger:       logger,
		generateCode: GenerateCode,
	}
}

// Create makes a new pending, active session for the owner. The owner may
// hold at most one active session; the check here gives a friendly error for
// the common case, while the partial unique index on (owner_id) WHERE active
// closes the race two concurrent creates would otherwise win together.
func (c *Coordinator) Create(ctx context.Context, ownerID uuid.UUID, in CreateSessionInput) (*models.Session, error) {
	existing, err := c.sessions.FindOwnedActive(ctx, ownerID)
	if err != nil {
		c.logger.Error("lookup active session failed", zap.Error(err), zap.String("owner_id", ownerID.String()))
		return nil, fmt.Errorf("create session: %w", err)
	}
	if existing != nil {
		return nil, ErrActiveSessionExists
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := c.generateCode()
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		s := &models.Session{
			Name:        in.Name,
			ScheduledAt: in.ScheduledAt,
			MaxFilms:    in.MaxFilms,
			OwnerID:     ownerID,
			Status:      models.StatusPending,
			Code:        code,
			Active:      true,
		}
		err = c.sessions.Insert(ctx, s)
		switch {
		case err == nil:
			sessionsCreatedTotal.Inc()
			return s, nil
		case errors.Is(err, ErrDuplicateOwnerActive):
			return nil, ErrActiveSessionExists
		case errors.Is(err, ErrDuplicateCode):
			codeCollisionsTotal.Inc()
			c.logger.Warn("join code collision, regenerating", zap.Int("attempt", attempt+1))
			continue
		default:
			c.logger.Error("insert session failed", zap.Error(err), zap.String("owner_id", ownerID.String()))
			return nil, fmt.Errorf("create session: %w", err)
		}
	}
	return nil, ErrCodeExhausted
}

// Join admits a user into the pending session carrying the code. Duplicate
// joins are resolved by the storage constraint, never by a check-then-insert:
// of N concurrent joins by one user exactly one inserts a row.
func (c *Coordinator) Join(ctx context.Context, code string, userID uuid.UUID) (*JoinResult, error) {
	session, err := c.sessions.FindActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			recordJoin("not_found")
			return nil, err
		}
		c.logger.Error("resolve session by code failed", zap.Error(err))
		return nil, fmt.Errorf("join session: %w", err)
	}
	if session.Status != models.StatusPending {
		recordJoin("not_joinable")
		return nil, ErrNotJoinable
	}

	p := &models.Participant{
		SessionID: session.ID,
		UserID:    userID,
	}
	if err := c.participants.Insert(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicateParticipant) {
			recordJoin("duplicate")
			return nil, ErrAlreadyJoined
		}
		c.logger.Error("insert participant failed", zap.Error(err),
			zap.String("session_id", session.ID.String()), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("join session: %w", err)
	}
	recordJoin("ok")
	return &JoinResult{Participant: p, Session: session}, nil
}

// Leave removes the user's participant row from the session.
func (c *Coordinator) Leave(ctx context.Context, sessionID, userID uuid.UUID) error {
	deleted, err := c.participants.Delete(ctx, sessionID, userID)
	if err != nil {
		c.logger.Error("delete participant failed", zap.Error(err),
			zap.String("session_id", sessionID.String()), zap.String("user_id", userID.String()))
		return fmt.Errorf("leave session: %w", err)
	}
	if !deleted {
		return ErrNotParticipant
	}
	return nil
}

// UpdateStatus applies a status transition on behalf of the owner. Only the
// edges of the transition table are allowed; reaching a terminal status also
// clears the active flag, freeing the owner to create a new session and
// retiring the join code.
func (c *Coordinator) UpdateStatus(ctx context.Context, sessionID, ownerID uuid.UUID, next models.Status) (*models.Session, error) {
	session, err := c.sessions.FindByIDAndOwner(ctx, sessionID, ownerID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		c.logger.Error("lookup session failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		return nil, fmt.Errorf("update status: %w", err)
	}
	if !session.Status.CanTransitionTo(next) {
		return nil, ErrInvalidTransition
	}

	updated, err := c.sessions.UpdateStatus(ctx, sessionID, ownerID, session.Status, next, !next.Terminal())
	if err != nil {
		// Zero rows here means the status moved underneath us: the guarded
		// UPDATE lost to a concurrent transition.
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrInvalidTransition
		}
		c.logger.Error("update session status failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		return nil, fmt.Errorf("update status: %w", err)
	}
	return updated, nil
}

// FindOwnedActiveSession returns the caller's active session, or (nil, nil)
// when there is none. Absence is the one legitimate non-error "no result".
func (c *Coordinator) FindOwnedActiveSession(ctx context.Context, ownerID uuid.UUID) (*models.Session, error) {
	s, err := c.sessions.FindOwnedActive(ctx, ownerID)
	if err != nil {
		c.logger.Error("lookup active session failed", zap.Error(err), zap.String("owner_id", ownerID.String()))
		return nil, fmt.Errorf("find owned session: %w", err)
	}
	return s, nil
}

// FindByCode resolves an active session by its join code.
func (c *Coordinator) FindByCode(ctx context.Context, code string) (*models.Session, error) {
	s, err := c.sessions.FindActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		c.logger.Error("resolve session by code failed", zap.Error(err))
		return nil, fmt.Errorf("find session by code: %w", err)
	}
	return s, nil
}

// ListParticipants returns the session's participants ordered by join time.
func (c *Coordinator) ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]models.Participant, error) {
	list, err := c.participants.ListBySession(ctx, sessionID)
	if err != nil {
		c.logger.Error("list participants failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return list, nil
}
