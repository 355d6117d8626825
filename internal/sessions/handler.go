package sessions

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cinelobby/backend/internal/middleware"
	"github.com/cinelobby/backend/internal/models"
	"github.com/cinelobby/backend/pkg/response"
)

var codeRegex = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// Handler exposes the coordinator over HTTP. Input validation lives here so
// malformed requests never reach the coordinator.
type Handler struct {
	coord  *Coordinator
	logger *zap.Logger
}

// NewHandler creates a sessions handler.
func NewHandler(coord *Coordinator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{coord: coord, logger: logger}
}

// CreateRequest is the body for POST /sessions.
type CreateRequest struct {
	Name        string    `json:"name" binding:"required,min=1,max=255"`
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	MaxFilms    int       `json:"max_films" binding:"required,min=1,max=5"`
}

// JoinRequest is the body for POST /sessions/join.
type JoinRequest struct {
	Code string `json:"code" binding:"required"`
}

// UpdateStatusRequest is the body for PATCH /sessions/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Create handles POST /sessions.
func (h *Handler) Create(c *gin.Context) {
	ownerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name, scheduled_at and max_films (1-5) are required")
		return
	}
	session, err := h.coord.Create(c.Request.Context(), ownerID, CreateSessionInput{
		Name:        strings.TrimSpace(req.Name),
		ScheduledAt: req.ScheduledAt,
		MaxFilms:    req.MaxFilms,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Created(c, session)
}

// Join handles POST /sessions/join.
func (h *Handler) Join(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "code is required")
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if !codeRegex.MatchString(code) {
		response.BadRequest(c, "code must be 6 characters (A-Z, 0-9)")
		return
	}
	result, err := h.coord.Join(c.Request.Context(), code, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, result)
}

// Leave handles DELETE /sessions/:id/leave.
func (h *Handler) Leave(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	if err := h.coord.Leave(c.Request.Context(), sessionID, userID); err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, gin.H{"message": "left the session"})
}

// UpdateStatus handles PATCH /sessions/:id/status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	ownerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "status is required")
		return
	}
	next := models.Status(req.Status)
	if !next.Valid() {
		response.BadRequest(c, "status must be one of pending, in_progress, finished, cancelled")
		return
	}
	session, err := h.coord.UpdateStatus(c.Request.Context(), sessionID, ownerID, next)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, session)
}

// Self handles GET /sessions/self. A missing session is not an error: data
// is null when the caller has no active session.
func (h *Handler) Self(c *gin.Context) {
	ownerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	session, err := h.coord.FindOwnedActiveSession(c.Request.Context(), ownerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, session)
}

// GetByCode handles GET /sessions/code/:code.
func (h *Handler) GetByCode(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if !codeRegex.MatchString(code) {
		response.BadRequest(c, "code must be 6 characters (A-Z, 0-9)")
		return
	}
	session, err := h.coord.FindByCode(c.Request.Context(), code)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, session)
}

// ListParticipants handles GET /sessions/:id/participants.
func (h *Handler) ListParticipants(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	list, err := h.coord.ListParticipants(c.Request.Context(), sessionID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if list == nil {
		list = []models.Participant{}
	}
	response.OK(c, list)
}

// respondError maps coordinator errors to HTTP statuses. Unknown errors are
// logged and reported generically.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrActiveSessionExists):
		response.Conflict(c, "you already have an active session")
	case errors.Is(err, ErrAlreadyJoined):
		response.Conflict(c, "you have already joined this session")
	case errors.Is(err, ErrNotJoinable):
		response.Conflict(c, "this session no longer accepts participants")
	case errors.Is(err, ErrInvalidTransition):
		response.Conflict(c, "this status change is not allowed")
	case errors.Is(err, ErrSessionNotFound):
		response.NotFound(c, "session not found")
	case errors.Is(err, ErrNotParticipant):
		response.NotFound(c, "you are not a participant of this session")
	default:
		h.logger.Error("session operation failed", zap.Error(err), zap.String("path", c.FullPath()))
		response.Internal(c, "something went wrong")
	}
}
