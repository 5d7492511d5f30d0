package factory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/qhunt/internal/config"
	"github.com/mcoot/qhunt/internal/model"
	"github.com/mcoot/qhunt/internal/services/event"
	"github.com/mcoot/qhunt/internal/services/game"
	"github.com/mcoot/qhunt/internal/services/registry"
	"github.com/mcoot/qhunt/internal/testutil"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) register(eventID model.EventID, playerID, name string, team model.TeamID) *model.Player {
	res, err := s.app.Registry.Register(s.ctx, registry.RegisterInput{
		EventID:     eventID,
		PlayerID:    model.PlayerID(playerID),
		Name:        name,
		AvatarType:  "emoji",
		AvatarValue: "🦊",
		TeamID:      team,
	})
	s.Require().NoError(err)
	return res.Player
}

func (s *IntegrationSuite) scan(eventID model.EventID, playerID, code string) (*game.ScanResult, error) {
	return s.app.GameController.SubmitScan(s.ctx, game.ScanInput{
		EventID:   eventID,
		PlayerID:  model.PlayerID(playerID),
		CodeValue: code,
	})
}

func (s *IntegrationSuite) advanceTo(eventID model.EventID, phases ...model.Phase) {
	for _, p := range phases {
		_, err := s.app.EventController.TransitionPhase(s.ctx, eventID, p)
		s.Require().NoError(err)
	}
}

// Test: a complete individual game from registration to results
func (s *IntegrationSuite) TestCompleteGameFlow() {
	ev := s.app.CreateEvent(s.ctx, "evt1", testutil.IndividualRules())
	s.Equal(model.PhaseRegistration, ev.Game.Phase)

	s.register(ev.ID, "p1", "Alice", "")
	s.register(ev.ID, "p2", "Bob", "")

	s.advanceTo(ev.ID, model.PhaseCountdown, model.PhasePlaying)

	for _, id := range []string{"p1", "p2"} {
		_, err := s.app.GameController.StartPlayer(s.ctx, ev.ID, model.PlayerID(id))
		s.Require().NoError(err)
	}

	s.app.MockClock.Advance(10 * time.Second)
	res, err := s.scan(ev.ID, "p1", "CODE-a")
	s.Require().NoError(err)
	s.Equal(100, res.NewScore)
	s.False(res.IsGameComplete)

	s.app.MockClock.Advance(5 * time.Second)
	res, err = s.scan(ev.ID, "p2", "code-c")
	s.Require().NoError(err)
	s.Equal(200, res.NewScore)

	_, err = s.scan(ev.ID, "p1", "CODE-a")
	s.ErrorIs(err, model.ErrAlreadyScanned)

	s.app.MockClock.Advance(5 * time.Second)
	_, err = s.scan(ev.ID, "p1", "CODE-b")
	s.Require().NoError(err)
	s.app.MockClock.Advance(5 * time.Second)
	res, err = s.scan(ev.ID, "p1", "CODE-d")
	s.Require().NoError(err)
	s.Equal(300, res.NewScore)
	s.True(res.IsGameComplete)
	s.Equal(0, res.Remaining)

	_, err = s.scan(ev.ID, "p1", "CODE-c")
	s.ErrorIs(err, model.ErrPlayerFinished)

	// The inline projector has already caught up
	board, err := s.app.Projector.Leaderboard(s.ctx, ev.ID, 0)
	s.Require().NoError(err)
	s.Require().Len(board, 2)
	s.Equal(model.PlayerID("p1"), board[0].PlayerID)
	s.Equal(1, board[0].Rank)
	s.Equal(300, board[0].Score)
	s.True(board[0].IsFinished)
	s.Require().NotNil(board[0].GameTime)
	s.Equal(25*time.Second, *board[0].GameTime)
	s.Equal(model.PlayerID("p2"), board[1].PlayerID)
	s.Equal(2, board[1].Rank)

	stats, err := s.app.Projector.Stats(s.ctx, ev.ID)
	s.Require().NoError(err)
	s.Equal(2, stats.PlayersCount)
	s.Equal(1, stats.PlayersFinished)
	s.Equal(4, stats.TotalScans)
	s.Equal(300, stats.TopScore)

	recent, err := s.app.Projector.RecentScans(s.ctx, ev.ID)
	s.Require().NoError(err)
	s.Len(recent, 4)

	s.advanceTo(ev.ID, model.PhaseFinished, model.PhaseResults)

	_, err = s.scan(ev.ID, "p2", "CODE-a")
	s.ErrorIs(err, model.ErrGameNotActive)
}

// Test: team totals follow member scores and survive a recompute
func (s *IntegrationSuite) TestTeamGame() {
	ev := s.app.CreateEvent(s.ctx, "teams", testutil.TeamRules())

	s.register(ev.ID, "p1", "Alice", "t1")
	s.register(ev.ID, "p2", "Bob", "t2")
	s.register(ev.ID, "p3", "Cara", "t2")

	s.advanceTo(ev.ID, model.PhaseCountdown, model.PhasePlaying)
	for _, id := range []string{"p1", "p2", "p3"} {
		_, err := s.app.GameController.StartPlayer(s.ctx, ev.ID, model.PlayerID(id))
		s.Require().NoError(err)
	}

	_, err := s.scan(ev.ID, "p1", "CODE-c")
	s.Require().NoError(err)
	_, err = s.scan(ev.ID, "p2", "CODE-a")
	s.Require().NoError(err)
	_, err = s.scan(ev.ID, "p3", "CODE-b")
	s.Require().NoError(err)

	s.advanceTo(ev.ID, model.PhaseFinished)

	scores, err := s.app.Realtime.TeamScores(s.ctx, ev.ID)
	s.Require().NoError(err)
	s.Require().Len(scores, 2)
	s.Equal(model.TeamID("t2"), scores[0].TeamID)
	s.Equal(250, scores[0].Score)
	s.Equal(2, scores[0].Players)
	s.Equal(model.TeamID("t1"), scores[1].TeamID)
	s.Equal(200, scores[1].Score)

	recomputed, err := s.app.TeamService.Recompute(s.ctx, ev.ID)
	s.Require().NoError(err)
	s.Equal(scores, recomputed)
}

// Test: type hunting splits players evenly and enforces the assigned type
func (s *IntegrationSuite) TestTypeHunting() {
	ev := s.app.CreateEvent(s.ctx, "typed", testutil.TypedRules())

	counts := map[model.CodeType]int{}
	for i, name := range []string{"Ann", "Ben", "Cat", "Dan"} {
		p := s.register(ev.ID, string(rune('a'+i)), name, "")
		counts[p.AssignedType]++
	}
	s.Equal(map[model.CodeType]int{"red": 2, "blue": 2}, counts)

	player, err := s.app.Registry.GetPlayer(s.ctx, ev.ID, "a")
	s.Require().NoError(err)
	wrong := "CODE-b1"
	if player.AssignedType == "blue" {
		wrong = "CODE-r1"
	}

	s.advanceTo(ev.ID, model.PhaseCountdown, model.PhasePlaying)
	_, err = s.app.GameController.StartPlayer(s.ctx, ev.ID, "a")
	s.Require().NoError(err)

	_, err = s.scan(ev.ID, "a", wrong)
	s.ErrorIs(err, model.ErrWrongType)
	var wte *model.WrongTypeError
	s.Require().ErrorAs(err, &wte)
	s.Equal(player.AssignedType, wte.Required)
}

// Test: reset wipes players and projection but keeps the configuration
func (s *IntegrationSuite) TestResetEvent() {
	ev := s.app.CreateEvent(s.ctx, "reset", testutil.IndividualRules())
	s.register(ev.ID, "p1", "Alice", "")
	_, err := s.app.GameController.StartPlayer(s.ctx, ev.ID, "p1")
	s.Require().NoError(err)
	_, err = s.scan(ev.ID, "p1", "CODE-a")
	s.Require().NoError(err)

	reset, err := s.app.EventController.ResetEvent(s.ctx, ev.ID)
	s.Require().NoError(err)
	s.Equal(model.PhaseRegistration, reset.Game.Phase)
	s.Len(reset.Game.Codes, len(ev.Game.Codes))

	_, err = s.app.Registry.GetPlayer(s.ctx, ev.ID, "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	board, err := s.app.Projector.Leaderboard(s.ctx, ev.ID, 0)
	s.Require().NoError(err)
	s.Empty(board)
}

// Test: the queued dispatcher eventually projects committed scans
func TestQueuedProjection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := New(ctx, Config{ProjectorMode: config.ProjectorQueue})
	require.NoError(t, err)
	defer func() { _ = app.Close() }()
	require.NoError(t, app.Start(ctx))

	ev, err := app.EventController.CreateEvent(ctx, event.CreateInput{
		ID:    "queued",
		Title: "Queued Hunt",
		Rules: testutil.IndividualRules(),
	})
	require.NoError(t, err)

	_, err = app.Registry.Register(ctx, registry.RegisterInput{
		EventID: ev.ID, PlayerID: "p1", Name: "Alice", AvatarType: "emoji", AvatarValue: "🐙",
	})
	require.NoError(t, err)
	_, err = app.GameController.StartPlayer(ctx, ev.ID, "p1")
	require.NoError(t, err)
	_, err = app.GameController.SubmitScan(ctx, game.ScanInput{EventID: ev.ID, PlayerID: "p1", CodeValue: "CODE-b"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		board, err := app.Projector.Leaderboard(ctx, ev.ID, 0)
		return err == nil && len(board) == 1 && board[0].Score == 150
	}, 5*time.Second, 10*time.Millisecond)
}

func TestNew_RejectsUnknownBackends(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, Config{StorageType: "sqlite"})
	assert.Error(t, err)

	_, err = New(ctx, Config{RealtimeType: "memcached"})
	assert.Error(t, err)

	_, err = New(ctx, Config{ProjectorMode: "batch"})
	assert.Error(t, err)

	_, err = New(ctx, Config{StorageType: config.StoragePostgres})
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Type = config.StoragePostgres
	cfg.Storage.Postgres.DSN = "postgres://qhunt@db:5432/qhunt"
	cfg.Realtime.Type = config.RealtimeRedis
	cfg.Realtime.Redis.URL = "redis://cache:6379/1"
	cfg.Projector.Mode = config.ProjectorQueue
	cfg.Projector.MaxRetries = 7

	fc := FromConfig(cfg, nil)
	assert.Equal(t, config.StoragePostgres, fc.StorageType)
	require.NotNil(t, fc.Postgres)
	assert.Equal(t, "postgres://qhunt@db:5432/qhunt", fc.Postgres.DSN)
	assert.True(t, fc.Postgres.Migrate)
	require.NotNil(t, fc.Redis)
	assert.Equal(t, "redis://cache:6379/1", fc.Redis.URL)
	assert.Equal(t, 72*time.Hour, fc.Redis.ProjectionTTL)
	assert.Equal(t, config.ProjectorQueue, fc.ProjectorMode)
	assert.Equal(t, 7, fc.Queue.MaxRetries)
	assert.Equal(t, int64(256), fc.Queue.Buffer)
	assert.True(t, fc.RateLimit.Enabled)
}

func TestNew_InMemoryDefaults(t *testing.T) {
	app, err := New(context.Background(), Config{})
	require.NoError(t, err)
	defer func() { _ = app.Close() }()

	assert.Nil(t, app.Queue)
	assert.Nil(t, app.RateLimiter)
	assert.NoError(t, app.Start(context.Background()))
}
