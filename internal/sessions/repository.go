package sessions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cinelobby/backend/internal/models"
)

// Index and constraint names from pkg/database/migrations. The repository
// maps 23505 violations by name so the coordinator can tell a code collision
// apart from a duplicate owner or participant.
const (
	constraintOwnerActive = "sessions_owner_active_idx"
	constraintActiveCode  = "sessions_active_code_idx"
	constraintParticipant = "participants_session_user_key"
)

const sessionColumns = "id, name, scheduled_at, max_films, owner_id, status, code, active, created_at, updated_at"

// SessionRepository is the PostgreSQL SessionStore.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a session repository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Insert stores a new session. Uniqueness of (owner, active) and of active
// codes is enforced by partial unique indexes, not by a prior read.
func (r *SessionRepository) Insert(ctx context.Context, s *models.Session) error {
	const q = `INSERT INTO sessions (id, name, scheduled_at, max_films, owner_id, status, code, active)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, s.Name, s.ScheduledAt, s.MaxFilms, s.OwnerID, s.Status, s.Code, s.Active).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	switch {
	case isUniqueViolation(err, constraintOwnerActive):
		return ErrDuplicateOwnerActive
	case isUniqueViolation(err, constraintActiveCode):
		return ErrDuplicateCode
	case err != nil:
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FindOwnedActive returns the owner's active session, or (nil, nil) when the
// owner has none. Absence here is not an error.
func (r *SessionRepository) FindOwnedActive(ctx context.Context, ownerID uuid.UUID) (*models.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE owner_id = $1 AND active`
	s, err := scanSession(r.pool.QueryRow(ctx, q, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find owned active session: %w", err)
	}
	return s, nil
}

// FindActiveByCode resolves an active session by join code.
func (r *SessionRepository) FindActiveByCode(ctx context.Context, code string) (*models.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE code = $1 AND active`
	s, err := scanSession(r.pool.QueryRow(ctx, q, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session by code: %w", err)
	}
	return s, nil
}

// FindByIDAndOwner returns the session only when owned by ownerID.
func (r *SessionRepository) FindByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*models.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 AND owner_id = $2`
	s, err := scanSession(r.pool.QueryRow(ctx, q, id, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session by id and owner: %w", err)
	}
	return s, nil
}

// UpdateStatus applies from -> to, guarded by the current status.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id, ownerID uuid.UUID, from, to models.Status, active bool) (*models.Session, error) {
	const q = `UPDATE sessions SET status = $1, active = $2, updated_at = NOW()
		WHERE id = $3 AND owner_id = $4 AND status = $5
		RETURNING ` + sessionColumns
	s, err := scanSession(r.pool.QueryRow(ctx, q, to, active, id, ownerID, from))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update session status: %w", err)
	}
	return s, nil
}

// ParticipantRepository is the PostgreSQL ParticipantStore.
type ParticipantRepository struct {
	pool *pgxpool.Pool
}

// NewParticipantRepository creates a participant repository.
func NewParticipantRepository(pool *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{pool: pool}
}

// Insert stores a participant row. The (session_id, user_id) uniqueness is a
// table constraint, so concurrent joins by the same user resolve to exactly
// one row.
func (r *ParticipantRepository) Insert(ctx context.Context, p *models.Participant) error {
	const q = `INSERT INTO participants (id, session_id, user_id)
		VALUES (gen_random_uuid(), $1, $2)
		RETURNING id, joined_at`
	err := r.pool.QueryRow(ctx, q, p.SessionID, p.UserID).Scan(&p.ID, &p.JoinedAt)
	if isUniqueViolation(err, constraintParticipant) {
		return ErrDuplicateParticipant
	}
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

// Delete removes the (sessionID, userID) row.
func (r *ParticipantRepository) Delete(ctx context.Context, sessionID, userID uuid.UUID) (bool, error) {
	const q = `DELETE FROM participants WHERE session_id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, q, sessionID, userID)
	if err != nil {
		return false, fmt.Errorf("delete participant: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListBySession returns participants ordered by join time ascending.
func (r *ParticipantRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Participant, error) {
	const q = `SELECT id, session_id, user_id, joined_at FROM participants
		WHERE session_id = $1 ORDER BY joined_at ASC`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var list []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.SessionID, &p.UserID, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.Name, &s.ScheduledAt, &s.MaxFilms, &s.OwnerID, &s.Status, &s.Code, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
