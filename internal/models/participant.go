package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant is a user who joined a session via its code. A user may join a
// given session at most once; the owner is tracked on the session itself and
// never appears as a participant row.
type Participant struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	UserID    uuid.UUID `json:"user_id"`
	JoinedAt  time.Time `json:"joined_at"`
}
