package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cinelobby/backend/internal/models"
)

// memSessionStore is an in-memory SessionStore that enforces the same
// uniqueness constraints as the PostgreSQL schema, atomically under a mutex.
// Concurrency tests rely on that atomicity: a check-then-insert fake would
// hide exactly the races the coordinator must survive.
type memSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.Session
	seq      int64
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[uuid.UUID]*models.Session)}
}

func (m *memSessionStore) nextTime() time.Time {
	m.seq++
	return time.Unix(0, m.seq).UTC()
}

func (m *memSessionStore) Insert(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.sessions {
		if !existing.Active {
			continue
		}
		if existing.OwnerID == s.OwnerID {
			return ErrDuplicateOwnerActive
		}
		if existing.Code == s.Code {
			return ErrDuplicateCode
		}
	}
	s.ID = uuid.New()
	now := m.nextTime()
	s.CreatedAt = now
	s.UpdatedAt = now
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memSessionStore) FindOwnedActive(_ context.Context, ownerID uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.Active && s.OwnerID == ownerID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memSessionStore) FindActiveByCode(_ context.Context, code string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.Active && s.Code == code {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrSessionNotFound
}

func (m *memSessionStore) FindByIDAndOwner(_ context.Context, id, ownerID uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.OwnerID != ownerID {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessionStore) UpdateStatus(_ context.Context, id, ownerID uuid.UUID, from, to models.Status, active bool) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.OwnerID != ownerID || s.Status != from {
		return nil, ErrSessionNotFound
	}
	s.Status = to
	s.Active = active
	s.UpdatedAt = m.nextTime()
	cp := *s
	return &cp, nil
}

// memParticipantStore is an in-memory ParticipantStore with an atomic
// (session, user) uniqueness check.
type memParticipantStore struct {
	mu           sync.Mutex
	participants []models.Participant
	seq          int64
}

func newMemParticipantStore() *memParticipantStore {
	return &memParticipantStore{}
}

func (m *memParticipantStore) Insert(_ context.Context, p *models.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.participants {
		if existing.SessionID == p.SessionID && existing.UserID == p.UserID {
			return ErrDuplicateParticipant
		}
	}
	p.ID = uuid.New()
	m.seq++
	p.JoinedAt = time.Unix(0, m.seq).UTC()
	m.participants = append(m.participants, *p)
	return nil
}

func (m *memParticipantStore) Delete(_ context.Context, sessionID, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.participants {
		if p.SessionID == sessionID && p.UserID == userID {
			m.participants = append(m.participants[:i], m.participants[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memParticipantStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []models.Participant
	for _, p := range m.participants {
		if p.SessionID == sessionID {
			list = append(list, p)
		}
	}
	// participants slice is append-only, so insertion order is join order
	return list, nil
}
