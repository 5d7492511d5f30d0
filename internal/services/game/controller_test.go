package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/qhunt/internal/dependencies/mocks"
	"github.com/mcoot/qhunt/internal/model"
	"github.com/mcoot/qhunt/internal/services/teams"
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

func (s *ControllerSuite) createEvent(rules model.GameRules, phase model.Phase) {
	cfg := model.NewGameConfig(rules, s.clock.Now())
	cfg.Phase = phase
	s.Require().NoError(s.storage.CreateEvent(s.ctx, &model.Event{ID: "evt", Title: "Hunt", Game: cfg}))
}

func (s *ControllerSuite) setPhase(phase model.Phase) {
	event, err := s.storage.GetEvent(s.ctx, "evt")
	s.Require().NoError(err)
	cfg := event.Game
	cfg.Phase = phase
	cfg.Version++
	_, err = s.storage.UpdateGameConfig(s.ctx, "evt", event.Game.Version, cfg, s.clock.Now())
	s.Require().NoError(err)
}

func (s *ControllerSuite) addPlayer(id string, assigned model.CodeType, team model.TeamID) {
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, &model.Player{
		ID:           model.PlayerID(id),
		EventID:      "evt",
		Name:         "Player " + id,
		AssignedType: assigned,
		TeamID:       team,
		RegisteredAt: s.clock.Now(),
	}))
}

func (s *ControllerSuite) startedPlayer(id string, assigned model.CodeType) {
	s.addPlayer(id, assigned, "")
	_, err := s.controller.StartPlayer(s.ctx, "evt", model.PlayerID(id))
	s.Require().NoError(err)
}

func (s *ControllerSuite) scan(playerID, value string) (*ScanResult, error) {
	s.clock.Advance(10 * time.Second)
	return s.controller.SubmitScan(s.ctx, ScanInput{
		EventID:   "evt",
		PlayerID:  model.PlayerID(playerID),
		CodeValue: value,
		Method:    model.MethodQR,
	})
}

func (s *ControllerSuite) player(id string) *model.Player {
	p, err := s.storage.GetPlayer(s.ctx, "evt", model.PlayerID(id))
	s.Require().NoError(err)
	return p
}

func (s *ControllerSuite) TestScenarioACompletesAtTarget() {
	s.createEvent(testutil.IndividualRules(), model.PhasePlaying)
	s.startedPlayer("p1", "")
	startedAt := s.clock.Now()

	first, err := s.scan("p1", "CODE-a")
	s.Require().NoError(err)
	s.Equal(100, first.NewScore)
	s.False(first.IsGameComplete)
	s.Equal(2, first.Remaining)
	s.Equal("2 codes left to find.", first.Hint)

	_, err = s.scan("p1", "code-b")
	s.Require().NoError(err)

	last, err := s.scan("p1", "  Code-C ")
	s.Require().NoError(err)
	s.Equal(450, last.NewScore)
	s.True(last.IsGameComplete)
	s.Equal(0, last.Remaining)

	p := s.player("p1")
	s.Equal(450, p.CurrentScore)
	s.Equal(3, p.ScansCount)
	s.True(p.IsFinished)
	s.Require().NotNil(p.GameEndedAt)
	s.Equal(startedAt.Add(30*time.Second), *p.GameEndedAt)

	// cached score matches the ledger
	scans, err := s.controller.ListPlayerScans(s.ctx, "evt", "p1")
	s.Require().NoError(err)
	total := 0
	for _, sc := range scans {
		s.True(sc.IsValid)
		total += sc.Points
	}
	s.Equal(p.CurrentScore, total)

	s.Equal([]model.UpdateType{
		model.UpdatePlayerStarted,
		model.UpdateScanAccepted,
		model.UpdateScanAccepted,
		model.UpdateScanAccepted,
		model.UpdatePlayerFinished,
	}, s.dispatcher.Types())

	_, err = s.scan("p1", "CODE-d")
	s.ErrorIs(err, model.ErrPlayerFinished)
}

func (s *ControllerSuite) TestScenarioBDuplicateScan() {
	s.createEvent(testutil.IndividualRules(), model.PhasePlaying)
	s.startedPlayer("p1", "")

	_, err := s.scan("p1", "CODE-a")
	s.Require().NoError(err)

	_, err = s.scan("p1", "code-A")
	s.ErrorIs(err, model.ErrAlreadyScanned)

	p := s.player("p1")
	s.Equal(100, p.CurrentScore)
	s.Equal(1, p.ScansCount)
}

func (s *ControllerSuite) TestScenarioCWrongType() {
	s.createEvent(testutil.TypedRules(), model.PhasePlaying)
	s.startedPlayer("p1", "blue")

	_, err := s.scan("p1", "CODE-r1")
	s.Require().ErrorIs(err, model.ErrWrongType)
	var wrongType *model.WrongTypeError
	s.Require().True(errors.As(err, &wrongType))
	s.Equal(model.CodeType("blue"), wrongType.Required)
	s.Equal(model.CodeType("red"), wrongType.Got)

	scans, err := s.storage.ListScans(s.ctx, "evt", "p1")
	s.Require().NoError(err)
	s.Empty(scans)
	s.Equal(0, s.player("p1").CurrentScore)
}

func (s *ControllerSuite) TestScenarioDTimeExpired() {
	rules := testutil.IndividualRules()
	rules.GameDurationSeconds = 60
	s.createEvent(rules, model.PhasePlaying)
	s.startedPlayer("p1", "")
	startedAt := s.clock.Now()

	s.clock.Advance(51 * time.Second)
	_, err := s.scan("p1", "CODE-a")
	s.ErrorIs(err, model.ErrTimeExpired)

	p := s.player("p1")
	s.True(p.IsFinished)
	s.Require().NotNil(p.GameEndedAt)
	s.Equal(startedAt.Add(60*time.Second), *p.GameEndedAt)
	s.Equal(model.UpdatePlayerFinished, s.dispatcher.Types()[1])

	_, err = s.scan("p1", "CODE-a")
	s.ErrorIs(err, model.ErrPlayerFinished)
}

func (s *ControllerSuite) TestExactlyAtLimitStillScores() {
	rules := testutil.IndividualRules()
	rules.GameDurationSeconds = 60
	s.createEvent(rules, model.PhasePlaying)
	s.startedPlayer("p1", "")

	s.clock.Advance(50 * time.Second)
	_, err := s.scan("p1", "CODE-a")
	s.NoError(err)
}

func (s *ControllerSuite) TestScenarioETeamScores() {
	s.createEvent(testutil.TeamRules(), model.PhasePlaying)
	for _, p := range []struct {
		id   string
		team model.TeamID
	}{{"p1", "t1"}, {"p2", "t2"}, {"p3", "t2"}} {
		s.addPlayer(p.id, "", p.team)
		_, err := s.controller.StartPlayer(s.ctx, "evt", model.PlayerID(p.id))
		s.Require().NoError(err)
	}

	for _, sc := range [][2]string{{"p1", "CODE-c"}, {"p2", "CODE-a"}, {"p3", "CODE-b"}, {"p1", "CODE-d"}} {
		_, err := s.scan(sc[0], sc[1])
		s.Require().NoError(err)
	}

	scores, err := teams.NewService(s.storage, memory.NewRealtime(), testutil.NopLogger()).Recompute(s.ctx, "evt")
	s.Require().NoError(err)
	s.Require().Len(scores, 2)
	s.Equal(model.TeamID("t1"), scores[0].TeamID)
	s.Equal(250, scores[0].Score)
	s.Equal(250, scores[1].Score)
	for i, ts := range scores {
		s.Equal(i+1, ts.Rank)
		if i > 0 {
			s.GreaterOrEqual(scores[i-1].Score, ts.Score)
		}
	}
}

func (s *ControllerSuite) TestTypedCompletionUsesAssignedTypeCount() {
	s.createEvent(testutil.TypedRules(), model.PhasePlaying)
	s.startedPlayer("p1", "red")

	first, err := s.scan("p1", "CODE-r1")
	s.Require().NoError(err)
	s.Equal(1, first.Remaining)
	s.Equal("1 red code left to find.", first.Hint)

	second, err := s.scan("p1", "CODE-r2")
	s.Require().NoError(err)
	s.True(second.IsGameComplete)
	s.Equal("All codes found!", second.Hint)
}

func (s *ControllerSuite) TestHintIgnoresTypeWhenHuntingDisabled() {
	rules := testutil.TypedRules()
	rules.EnableTypeBasedHunting = false
	s.createEvent(rules, model.PhasePlaying)
	// assigned while type hunting was still on
	s.startedPlayer("p1", "red")

	result, err := s.scan("p1", "CODE-r1")
	s.Require().NoError(err)
	s.Equal(3, result.Remaining)
	s.Equal("3 codes left to find.", result.Hint)
}

func (s *ControllerSuite) TestOrderedChecks() {
	s.createEvent(testutil.IndividualRules(), model.PhaseCountdown)
	s.addPlayer("idle", "", "")

	_, err := s.scan("idle", "CODE-a")
	s.ErrorIs(err, model.ErrGameNotActive, "phase is checked first")

	s.setPhase(model.PhasePlaying)

	_, err = s.scan("ghost", "CODE-a")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	_, err = s.scan("idle", "CODE-a")
	s.ErrorIs(err, model.ErrPlayerNotStarted)

	_, err = s.controller.StartPlayer(s.ctx, "evt", "idle")
	s.Require().NoError(err)

	_, err = s.scan("idle", "NOT-A-CODE")
	s.ErrorIs(err, model.ErrCodeNotFound)

	_, err = s.controller.SubmitScan(s.ctx, ScanInput{EventID: "nope", PlayerID: "idle", CodeValue: "CODE-a"})
	s.ErrorIs(err, model.ErrEventNotFound)

	_, err = s.controller.SubmitScan(s.ctx, ScanInput{EventID: "evt", PlayerID: "idle", CodeValue: " "})
	s.ErrorIs(err, model.ErrMissingFields)

	_, err = s.controller.SubmitScan(s.ctx, ScanInput{EventID: "evt", PlayerID: "idle", CodeValue: "CODE-a", Method: "telepathy"})
	s.ErrorIs(err, model.ErrInvalidMethod)
}

func (s *ControllerSuite) TestInactiveCodeIsNotFound() {
	rules := testutil.IndividualRules()
	rules.Codes[0].Active = false
	s.createEvent(rules, model.PhasePlaying)
	s.startedPlayer("p1", "")

	_, err := s.scan("p1", "CODE-a")
	s.ErrorIs(err, model.ErrCodeNotFound)
}

func (s *ControllerSuite) TestScanningAllowedDuringRegistration() {
	s.createEvent(testutil.IndividualRules(), model.PhaseRegistration)
	s.startedPlayer("p1", "")

	result, err := s.scan("p1", "CODE-a")
	s.Require().NoError(err)
	s.Equal(100, result.NewScore)

	for _, phase := range []model.Phase{model.PhaseCountdown, model.PhaseFinished, model.PhaseResults} {
		s.setPhase(phase)
		_, err := s.scan("p1", "CODE-b")
		s.ErrorIs(err, model.ErrGameNotActive, phase)
	}
}

func (s *ControllerSuite) TestScanDurationAndMethod() {
	s.createEvent(testutil.IndividualRules(), model.PhasePlaying)
	s.startedPlayer("p1", "")

	first, err := s.scan("p1", "CODE-a")
	s.Require().NoError(err)
	s.Equal(10*time.Second, first.Scan.ScanDuration)
	s.Equal(model.MethodQR, first.Scan.Method)

	s.clock.Advance(5 * time.Second)
	second, err := s.controller.SubmitScan(s.ctx, ScanInput{EventID: "evt", PlayerID: "p1", CodeValue: "CODE-b", Method: model.MethodManual})
	s.Require().NoError(err)
	s.Equal(5*time.Second, second.Scan.ScanDuration)
	s.Equal(model.MethodManual, second.Scan.Method)
	s.Equal("code-b", second.Scan.CodeValue)
	s.NotEqual(first.Scan.ID, second.Scan.ID)
}

func (s *ControllerSuite) TestScanIDIsDeterministic() {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.Equal(scanID("evt", "p1", "a", at), scanID("evt", "p1", "a", at))
	s.NotEqual(scanID("evt", "p1", "a", at), scanID("evt", "p2", "a", at))
	s.NotEqual(scanID("evt", "p1", "a", at), scanID("evt", "p1", "a", at.Add(time.Nanosecond)))
}

func (s *ControllerSuite) TestConcurrentDuplicateScansScoreOnce() {
	s.createEvent(testutil.IndividualRules(), model.PhasePlaying)
	s.startedPlayer("p1", "")
	s.clock.Advance(time.Second)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted, duplicates := 0, 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.controller.SubmitScan(s.ctx, ScanInput{EventID: "evt", PlayerID: "p1", CodeValue: "CODE-a"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, model.ErrAlreadyScanned):
				duplicates++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, accepted)
	s.Equal(9, duplicates)
	s.Equal(100, s.player("p1").CurrentScore)
}

func (s *ControllerSuite) TestCodeDisabledMidGameRevalidates() {
	s.createEvent(testutil.IndividualRules(), model.PhasePlaying)
	s.startedPlayer("p1", "")

	event, err := s.storage.GetEvent(s.ctx, "evt")
	s.Require().NoError(err)
	cfg, err := event.Game.SetCodeActive("a", false)
	s.Require().NoError(err)
	_, err = s.storage.UpdateGameConfig(s.ctx, "evt", event.Game.Version, cfg, s.clock.Now())
	s.Require().NoError(err)

	_, err = s.scan("p1", "CODE-a")
	s.ErrorIs(err, model.ErrCodeNotFound)
}

func (s *ControllerSuite) TestStartPlayer() {
	s.createEvent(testutil.IndividualRules(), model.PhaseRegistration)
	s.addPlayer("p1", "", "")

	p, err := s.controller.StartPlayer(s.ctx, "evt", "p1")
	s.Require().NoError(err)
	s.Require().NotNil(p.GameStartedAt)
	started := *p.GameStartedAt

	s.clock.Advance(time.Minute)
	again, err := s.controller.StartPlayer(s.ctx, "evt", "p1")
	s.Require().NoError(err)
	s.Equal(started, *again.GameStartedAt)
	s.Len(s.dispatcher.Updates(), 1)

	_, err = s.controller.StartPlayer(s.ctx, "evt", "ghost")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	s.setPhase(model.PhaseCountdown)
	s.addPlayer("p2", "", "")
	_, err = s.controller.StartPlayer(s.ctx, "evt", "p2")
	s.ErrorIs(err, model.ErrGameNotActive)
}

func (s *ControllerSuite) TestListPlayerScansUnknownPlayer() {
	s.createEvent(testutil.IndividualRules(), model.PhasePlaying)
	_, err := s.controller.ListPlayerScans(s.ctx, "evt", "ghost")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}
