package sessions

import "errors"

// Business-rule failures returned by the coordinator. Handlers translate
// these to HTTP statuses; callers must not see raw storage errors.
var (
	// ErrActiveSessionExists means the owner already has a session with
	// active = true.
	ErrActiveSessionExists = errors.New("owner already has an active session")

	// ErrSessionNotFound covers unknown codes, unknown session IDs, and
	// sessions not owned by the caller (the two are deliberately not
	// distinguished).
	ErrSessionNotFound = errors.New("session not found")

	// ErrNotJoinable means the session is no longer in the pending state.
	ErrNotJoinable = errors.New("session no longer accepts participants")

	// ErrAlreadyJoined means a participant row for (session, user) already
	// exists.
	ErrAlreadyJoined = errors.New("already joined this session")

	// ErrNotParticipant means leave matched no participant row.
	ErrNotParticipant = errors.New("not a participant of this session")

	// ErrInvalidTransition means the requested status edge is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrCodeExhausted means code generation kept colliding past the retry
	// budget.
	ErrCodeExhausted = errors.New("could not generate a unique join code")
)

// Storage-constraint violations surfaced by store implementations. The
// coordinator maps these to the business errors above; the distinction
// matters because a code collision is retried while the others are not.
var (
	ErrDuplicateOwnerActive = errors.New("store: owner already has an active session")
	ErrDuplicateCode        = errors.New("store: join code already in use")
	ErrDuplicateParticipant = errors.New("store: participant already exists")
)
