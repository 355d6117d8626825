package sessions

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/cinelobby/backend/internal/models"
)

var testCodeRegex = regexp.MustCompile(`^[A-Z0-9]{6}$`)

type CoordinatorTestSuite struct {
	suite.Suite

	ctx          context.Context
	sessionStore *memSessionStore
	partStore    *memParticipantStore
	coord        *Coordinator

	ownerID uuid.UUID
	userID  uuid.UUID

	createInput CreateSessionInput
}

func (s *CoordinatorTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.sessionStore = newMemSessionStore()
	s.partStore = newMemParticipantStore()
	s.coord = NewCoordinator(s.sessionStore, s.partStore, nil)

	s.ownerID = uuid.New()
	s.userID = uuid.New()

	s.createInput = CreateSessionInput{
		Name:        "Movie Night",
		ScheduledAt: time.Date(2025, 12, 1, 20, 0, 0, 0, time.UTC),
		MaxFilms:    5,
	}
}

func TestCoordinatorTestSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorTestSuite))
}

func (s *CoordinatorTestSuite) TestCreateSession() {
	session, err := s.coord.Create(s.ctx, s.ownerID, s.createInput)
	s.Require().NoError(err)

	s.Equal("Movie Night", session.Name)
	s.Equal(s.ownerID, session.OwnerID)
	s.Equal(models.StatusPending, session.Status)
	s.True(session.Active)
	s.Equal(5, session.MaxFilms)
	s.Regexp(testCodeRegex, session.Code)
	s.NotEqual(uuid.Nil, session.ID)
}

func (s *CoordinatorTestSuite) TestCreateSecondActiveSessionFails() {
	_, err := s.coord.Create(s.ctx, s.ownerID, s.createInput)
	s.Require().NoError(err)

	_, err = s.coord.Create(s.ctx, s.ownerID, CreateSessionInput{
		Name:        "Another",
		ScheduledAt: time.Date(2025, 12, 15, 20, 0, 0, 0, time.UTC),
		MaxFilms:    3,
	})
	s.Require().ErrorIs(err, ErrActiveSessionExists)
}

func (s *CoordinatorTestSuite) TestCreateAfterFinishingPreviousSession() {
	first, err := s.coord.Create(s.ctx, s.ownerID, s.createInput)
	s.Require().NoError(err)

	_, err = s.coord.UpdateStatus(s.ctx, first.ID, s.ownerID, models.StatusInProgress)
	s.Require().NoError(err)
	finished, err := s.coord.UpdateStatus(s.ctx, first.ID, s.ownerID, models.StatusFinished)
	s.Require().NoError(err)
	s.False(finished.Active, "terminal status should clear the active flag")

	// the old code no longer resolves
	_, err = s.coord.FindByCode(s.ctx, first.Code)
	s.Require().ErrorIs(err, ErrSessionNotFound)

	second, err := s.coord.Create(s.ctx, s.ownerID, s.createInput)
	s.Require().NoError(err)
	s.True(second.Active)
}

func (s *CoordinatorTestSuite) TestCreateRetriesOnCodeCollision() {
	existing, err := s.coord.Create(s.ctx, uuid.New(), s.createInput)
	s.Require().NoError(err)

	codes := []string{existing.Code, "ZZZZZ9"}
	s.coord.generateCode = func() (string, error) {
		code := codes[0]
		if len(codes) > 1 {
			codes = codes[1:]
		}
		return code, nil
	}

	session, err := s.coord.Create(s.ctx, s.ownerID, s.createInput)
	s.Require().NoError(err)
	s.Equal("ZZZZZ9", session.Code)
}

func (s *CoordinatorTestSuite) TestCreateFailsWhenCodesKeepColliding() {
	existing, err := s.coord.Create(s.ctx, uuid.New(), s.createInput)
	s.Require().NoError(err)

	s.coord.generateCode = func() (string, error) { return existing.Code, nil }

	_, err = s.coord.Create(s.ctx, s.ownerID, s.createInput)
	s.Require().ErrorIs(err, ErrCodeExhausted)
}

func (s *CoordinatorTestSuite) TestJoinSession() {
	session, err := s.coord.Create(s.ctx, s.ownerID, s.createInput)
	s.Require().NoError(err)

	result, err := s.coord.Join(s.ctx, session.Code, s.userID)
	s.Require().NoError(err)
	s.Equal(session.ID, result.Participant.SessionID)
	s.Equal(s.userID, result.Participant.UserID)
	s.False(result.Participant.JoinedAt.IsZero())
	s.Equal(session.ID, result.Session.ID)
	s.Equal(session.Code, result.Session.Code)
}

func (s *CoordinatorTestSuite) TestJoinTwiceFails() {
	session, err := s.coord.Create(s.ctx, s.ownerID, s.createInput)
	s.Require().NoError(err)

	_, err = s.coord.Join(s.ctx, session.Code, s.userID)
	s.Require().NoError(err)

	_, err = s.coord.Join(s.ctx, session.Code, s.userID)
	s.Require().ErrorIs(err, ErrAlreadyJoined)
}

func (s *CoordinatorTestSuite) TestJoinUnknownCodeFails() {
	_, err := s.coord.Join(s.ctx, "NOPE00", s.userID)
	s.Require().ErrorIs(err, ErrSessionNotFound)
}

func (s *CoordinatorTestSuite) TestJoinAfterStartFails() {
	session, err := s.coord.Create(s.ctx, s.ownerID, s.createInput)
	s.Require().NoError(err)

	_, err = s.coord.UpdateStatus(s.ctx, session.ID, s.ownerID, models.StatusInProgress)
	s.Require().NoError(err)

	_, err = s.coord.Join(s.ctx, session.Code, s.userID)
	s.Require().ErrorIs(err, ErrNotJoinable)
}

func (s *CoordinatorTestSuite) TestLeaveSession() {
	session, err := s.coord.Create(s.ctx, s.ownerID, s.createInput)
	s.Require().NoError(err)
	_, err = s.coord.Join(s.ctx, session.Code, s.userID)
	s.Require().NoError(err)

	s.Require().NoError(s.coord.Leave(s.ctx, session.ID, s.userID))

	list, err := s.coord.ListParticipants(s.ctx, session.ID)
	s.Require().NoError(err)
	for _, p := range list {
		s.NotEqual(s.userID, p.UserID, "departed user must not be listed")
	}

	// a second leave finds nothing
	s.Require().ErrorIs(s.coord.Leave(s.ctx, session.ID, s.userID), ErrNotParticipant)
}

func (s *CoordinatorTestSuite) TestOwnerIsNotAParticipant() {
	session, err := s.coord.Create(s.ctx, s.ownerID, s.createInput)
	s.Require().NoError(err)

	// the owner never gets a participant row, so leaving finds none
	s.Require().ErrorIs(s.coord.Leave(s.ctx, session.ID, s.ownerID), ErrNotParticipant)

	list, err := s.coord.ListParticipants(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *CoordinatorTestSuite) TestListParticipantsOrderedByJoinTime() {
	session, err := s.coord.Create(s.ctx, s.ownerID, s.createInput)
	s.Require().NoError(err)

	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, u := range users {
		_, err := s.coord.Join(s.ctx, session.Code, u)
		s.Require().NoError(err)
	}

	list, err := s.coord.ListParticipants(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	for i, p := range list {
		s.Equal(users[i], p.UserID)
		s.Equal(session.ID, p.SessionID)
		if i > 0 {
			s.False(p.JoinedAt.Before(list[i-1].JoinedAt))
		}
	}
}

func (s *CoordinatorTestSuite) TestUpdateStatusByNonOwnerFails() {
	session, err := s.coord.Create(s.ctx, s.ownerID, s.createInput)
	s.Require().NoError(err)

	_, err = s.coord.UpdateStatus(s.ctx, session.ID, s.userID, models.StatusInProgress)
	s.Require().ErrorIs(err, ErrSessionNotFound)
}

func (s *CoordinatorTestSuite) TestUpdateStatusUnknownSessionFails() {
	_, err := s.coord.UpdateStatus(s.ctx, uuid.New(), s.ownerID, models.StatusInProgress)
	s.Require().ErrorIs(err, ErrSessionNotFound)
}

func (s *CoordinatorTestSuite) TestUpdateStatusRejectsInvalidEdges() {
	session, err := s.coord.Create(s.ctx, s.ownerID, s.createInput)
	s.Require().NoError(err)

	// pending cannot skip straight to finished
	_, err = s.coord.UpdateStatus(s.ctx, session.ID, s.ownerID, models.StatusFinished)
	s.Require().ErrorIs(err, ErrInvalidTransition)

	_, err = s.coord.UpdateStatus(s.ctx, session.ID, s.ownerID, models.StatusCancelled)
	s.Require().NoError(err)

	// cancelled is terminal
	_, err = s.coord.UpdateStatus(s.ctx, session.ID, s.ownerID, models.StatusInProgress)
	s.Require().ErrorIs(err, ErrInvalidTransition)
}

func (s *CoordinatorTestSuite) TestFindOwnedActiveSession() {
	found, err := s.coord.FindOwnedActiveSession(s.ctx, s.ownerID)
	s.Require().NoError(err)
	s.Nil(found, "no active session is not an error")

	session, err := s.coord.Create(s.ctx, s.ownerID, s.createInput)
	s.Require().NoError(err)

	found, err = s.coord.FindOwnedActiveSession(s.ctx, s.ownerID)
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal(session.ID, found.ID)
}

func (s *CoordinatorTestSuite) TestConcurrentCreatesYieldOneActiveSession() {
	const attempts = 16

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.coord.Create(s.ctx, s.ownerID, s.createInput)
		}(i)
	}
	wg.Wait()

	var successes int
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			s.Require().ErrorIs(err, ErrActiveSessionExists)
		}
	}
	s.Equal(1, successes, "exactly one create must win")
}

func (s *CoordinatorTestSuite) TestConcurrentJoinsYieldOneParticipantRow() {
	session, err := s.coord.Create(s.ctx, s.ownerID, s.createInput)
	s.Require().NoError(err)

	const attempts = 16

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.coord.Join(s.ctx, session.Code, s.userID)
		}(i)
	}
	wg.Wait()

	var successes int
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			s.Require().ErrorIs(err, ErrAlreadyJoined)
		}
	}
	s.Equal(1, successes, "exactly one join must win")

	list, err := s.coord.ListParticipants(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Len(list, 1)
}
