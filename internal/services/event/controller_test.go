package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/qhunt/internal/dependencies/mocks"
	"github.com/mcoot/qhunt/internal/model"
	"github.com/mcoot/qhunt/internal/storage/memory"
	"github.com/mcoot/qhunt/internal/testutil"
)

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	dispatcher *testutil.RecordingDispatcher
	clock      *mocks.MockClock
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.dispatcher = &testutil.RecordingDispatcher{}
	s.clock = mocks.NewMockClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	s.controller = NewController(s.storage, s.dispatcher, s.clock, nil, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ControllerSuite) create() *model.Event {
	event, err := s.controller.CreateEvent(s.ctx, CreateInput{ID: "evt", Title: "Spring hunt", Rules: testutil.IndividualRules()})
	s.Require().NoError(err)
	return event
}

func (s *ControllerSuite) TestCreateEvent() {
	event := s.create()

	s.Equal(model.EventID("evt"), event.ID)
	s.Equal(model.PhaseRegistration, event.Game.Phase)
	s.Equal(int64(1), event.Game.Version)
	s.Equal(s.clock.Now(), event.CreatedAt)

	stored, err := s.controller.GetEvent(s.ctx, "evt")
	s.Require().NoError(err)
	s.Equal(event.Game.Codes, stored.Game.Codes)
}

func (s *ControllerSuite) TestCreateEventGeneratesID() {
	event, err := s.controller.CreateEvent(s.ctx, CreateInput{Title: "Hunt", Rules: testutil.IndividualRules()})
	s.Require().NoError(err)
	s.NotEmpty(event.ID)
}

func (s *ControllerSuite) TestCreateEventValidation() {
	_, err := s.controller.CreateEvent(s.ctx, CreateInput{Title: "  ", Rules: testutil.IndividualRules()})
	s.ErrorIs(err, model.ErrMissingFields)

	rules := testutil.IndividualRules()
	rules.Codes = append(rules.Codes, testutil.Code("A", "", 10))
	rules.Codes[len(rules.Codes)-1].Value = "code-A"
	_, err = s.controller.CreateEvent(s.ctx, CreateInput{Title: "Hunt", Rules: rules})
	s.ErrorIs(err, model.ErrInvalidConfig)

	s.create()
	_, err = s.controller.CreateEvent(s.ctx, CreateInput{ID: "evt", Title: "Again", Rules: testutil.IndividualRules()})
	s.ErrorIs(err, model.ErrEventExists)
}

func (s *ControllerSuite) TestGetUnknownEvent() {
	_, err := s.controller.GetEvent(s.ctx, "nope")
	s.ErrorIs(err, model.ErrEventNotFound)
}

func (s *ControllerSuite) TestPhaseWalk() {
	s.create()

	for _, phase := range []model.Phase{model.PhaseCountdown, model.PhasePlaying, model.PhaseFinished, model.PhaseResults} {
		s.clock.Advance(time.Minute)
		event, err := s.controller.TransitionPhase(s.ctx, "evt", phase)
		s.Require().NoError(err, phase)
		s.Equal(phase, event.Game.Phase)
	}

	event, err := s.controller.GetEvent(s.ctx, "evt")
	s.Require().NoError(err)
	s.Require().NotNil(event.Game.GameStartedAt)
	s.Require().NotNil(event.Game.GameEndedAt)
	s.Equal(time.Date(2026, 5, 1, 12, 2, 0, 0, time.UTC), *event.Game.GameStartedAt)
	s.Equal(time.Date(2026, 5, 1, 12, 3, 0, 0, time.UTC), *event.Game.GameEndedAt)
	s.Equal(int64(5), event.Game.Version)

	updates := s.dispatcher.Updates()
	s.Require().Len(updates, 4)
	s.Equal(model.UpdatePhaseChanged, updates[3].Type)
	s.Equal(model.PhaseResults, updates[3].Phase)
}

func (s *ControllerSuite) TestPhaseCannotBeSkipped() {
	s.create()

	_, err := s.controller.TransitionPhase(s.ctx, "evt", model.PhasePlaying)
	s.ErrorIs(err, model.ErrInvalidTransition)

	_, err = s.controller.TransitionPhase(s.ctx, "evt", model.PhaseRegistration)
	s.ErrorIs(err, model.ErrInvalidTransition)

	_, err = s.controller.TransitionPhase(s.ctx, "evt", model.Phase("lunch"))
	s.ErrorIs(err, model.ErrInvalidTransition)

	s.Empty(s.dispatcher.Updates())
}

func (s *ControllerSuite) TestConfigureGameOnlyDuringRegistration() {
	s.create()

	rules := testutil.TypedRules()
	event, err := s.controller.ConfigureGame(s.ctx, "evt", rules)
	s.Require().NoError(err)
	s.True(event.Game.EnableTypeBasedHunting)
	s.Equal(int64(2), event.Game.Version)
	s.Equal(model.PhaseRegistration, event.Game.Phase)

	_, err = s.controller.TransitionPhase(s.ctx, "evt", model.PhaseCountdown)
	s.Require().NoError(err)

	_, err = s.controller.ConfigureGame(s.ctx, "evt", testutil.IndividualRules())
	s.ErrorIs(err, model.ErrConfigLocked)
}

func (s *ControllerSuite) TestConfigureGameRejectsInvalidRules() {
	s.create()
	rules := testutil.TypedRules()
	rules.AvailableCodeTypes = nil

	_, err := s.controller.ConfigureGame(s.ctx, "evt", rules)
	s.ErrorIs(err, model.ErrInvalidConfig)
}

func (s *ControllerSuite) TestSetCodeActiveAnyPhase() {
	s.create()
	_, err := s.controller.TransitionPhase(s.ctx, "evt", model.PhaseCountdown)
	s.Require().NoError(err)
	_, err = s.controller.TransitionPhase(s.ctx, "evt", model.PhasePlaying)
	s.Require().NoError(err)

	event, err := s.controller.SetCodeActive(s.ctx, "evt", "b", false)
	s.Require().NoError(err)
	_, ok := event.Game.FindActiveCode("CODE-b")
	s.False(ok)

	_, err = s.controller.SetCodeActive(s.ctx, "evt", "zzz", false)
	s.ErrorIs(err, model.ErrCodeNotFound)
}

func (s *ControllerSuite) TestResetDeletesPlayersAndScans() {
	event := s.create()
	now := s.clock.Now()
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, &model.Player{ID: "p1", EventID: event.ID, Name: "Ada", RegisteredAt: now}))
	_, err := s.storage.StartPlayer(s.ctx, event.ID, "p1", now)
	s.Require().NoError(err)
	_, err = s.storage.CommitScan(s.ctx, model.ScanCommit{
		Scan: model.Scan{ID: "s1", EventID: event.ID, PlayerID: "p1", CodeID: "a", CodeValue: "code-a",
			Points: 100, IsValid: true, Method: model.MethodQR, ScannedAt: now},
		ConfigVersion: event.Game.Version,
	})
	s.Require().NoError(err)

	_, err = s.controller.TransitionPhase(s.ctx, "evt", model.PhaseCountdown)
	s.Require().NoError(err)

	s.clock.Advance(time.Hour)
	reset, err := s.controller.ResetEvent(s.ctx, "evt")
	s.Require().NoError(err)
	s.Equal(model.PhaseRegistration, reset.Game.Phase)
	s.Require().NotNil(reset.Game.LastResetAt)
	s.Equal(s.clock.Now(), *reset.Game.LastResetAt)

	players, err := s.storage.ListPlayers(s.ctx, "evt")
	s.Require().NoError(err)
	s.Empty(players)
	scans, err := s.storage.ListEventScans(s.ctx, "evt")
	s.Require().NoError(err)
	s.Empty(scans)

	s.Equal([]model.UpdateType{model.UpdatePhaseChanged, model.UpdateEventReset}, s.dispatcher.Types())
}

func (s *ControllerSuite) TestResetUnknownEvent() {
	_, err := s.controller.ResetEvent(s.ctx, "nope")
	s.ErrorIs(err, model.ErrEventNotFound)
}
