// Package storagetest holds behaviour suites shared by every storage implementation.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/qhunt/internal/model"
	"github.com/mcoot/qhunt/internal/storage"
)

var epoch = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

// StorageSuite exercises a storage.Storage. Embed it and set New before the suite runs.
type StorageSuite struct {
	suite.Suite

	// New returns an empty store for each test
	New func() storage.Storage

	Store storage.Storage
	Ctx   context.Context
}

func (s *StorageSuite) SetupTest() {
	s.Store = s.New()
	s.Ctx = context.Background()
}

func (s *StorageSuite) event(id model.EventID) *model.Event {
	rules := model.GameRules{
		Mode: model.ModeIndividual,
		Codes: []model.Code{
			{ID: "a", Value: "CODE-A", Points: 100, Active: true},
			{ID: "b", Value: "CODE-B", Points: 150, Active: true},
		},
	}
	e := &model.Event{
		ID:        id,
		Title:     "Hunt " + string(id),
		Game:      model.NewGameConfig(rules, epoch),
		CreatedAt: epoch,
		UpdatedAt: epoch,
	}
	s.Require().NoError(s.Store.CreateEvent(s.Ctx, e))
	return e
}

func (s *StorageSuite) player(eventID model.EventID, id model.PlayerID) *model.Player {
	started := epoch
	p := &model.Player{
		ID:            id,
		EventID:       eventID,
		Name:          "Player " + string(id),
		AvatarType:    "emoji",
		AvatarValue:   "🦊",
		RegisteredAt:  epoch,
		GameStartedAt: &started,
	}
	s.Require().NoError(s.Store.CreatePlayer(s.Ctx, p))
	return p
}

func (s *StorageSuite) scan(eventID model.EventID, playerID model.PlayerID, value string, points int, at time.Time) model.Scan {
	return model.Scan{
		ID:        model.ScanID(fmt.Sprintf("%s-%s-%s", eventID, playerID, value)),
		EventID:   eventID,
		PlayerID:  playerID,
		CodeID:    model.CodeID(value),
		CodeValue: model.NormalizeCodeValue(value),
		Points:    points,
		IsValid:   true,
		Method:    model.MethodQR,
		ScannedAt: at,
	}
}

// Event tests

func (s *StorageSuite) TestCreateAndGetEvent() {
	e := s.event("ev-1")

	got, err := s.Store.GetEvent(s.Ctx, "ev-1")
	s.Require().NoError(err)
	s.Equal(e.Title, got.Title)
	s.Equal(int64(1), got.Game.Version)
	s.Equal(model.PhaseRegistration, got.Game.Phase)
	s.Len(got.Game.Codes, 2)
	s.Equal("CODE-B", got.Game.Codes[1].Value)
}

func (s *StorageSuite) TestCreateEventTwice() {
	e := s.event("ev-1")
	s.ErrorIs(s.Store.CreateEvent(s.Ctx, e), model.ErrEventExists)
}

func (s *StorageSuite) TestGetEventNotFound() {
	_, err := s.Store.GetEvent(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrEventNotFound)
}

func (s *StorageSuite) TestUpdateGameConfigVersionCheck() {
	e := s.event("ev-1")

	next, err := model.Transition(e.Game, model.PhaseCountdown, epoch.Add(time.Minute))
	s.Require().NoError(err)

	updated, err := s.Store.UpdateGameConfig(s.Ctx, "ev-1", 1, next, epoch.Add(time.Minute))
	s.Require().NoError(err)
	s.Equal(model.PhaseCountdown, updated.Game.Phase)
	s.Equal(int64(2), updated.Game.Version)

	_, err = s.Store.UpdateGameConfig(s.Ctx, "ev-1", 1, next, epoch.Add(time.Minute))
	s.ErrorIs(err, model.ErrConfigConflict)

	_, err = s.Store.UpdateGameConfig(s.Ctx, "missing", 1, next, epoch)
	s.ErrorIs(err, model.ErrEventNotFound)
}

// Player tests

func (s *StorageSuite) TestCreateAndGetPlayer() {
	s.event("ev-1")
	p := s.player("ev-1", "p-1")

	got, err := s.Store.GetPlayer(s.Ctx, "ev-1", "p-1")
	s.Require().NoError(err)
	s.Equal(p.Name, got.Name)
	s.Equal(p.AvatarValue, got.AvatarValue)
	s.Require().NotNil(got.GameStartedAt)
	s.True(epoch.Equal(*got.GameStartedAt))
	s.False(got.IsFinished)
}

func (s *StorageSuite) TestCreatePlayerTwice() {
	s.event("ev-1")
	p := s.player("ev-1", "p-1")
	s.ErrorIs(s.Store.CreatePlayer(s.Ctx, p), model.ErrPlayerExists)
}

func (s *StorageSuite) TestPlayersAreScopedToEvent() {
	s.event("ev-1")
	s.event("ev-2")
	s.player("ev-1", "p-1")

	_, err := s.Store.GetPlayer(s.Ctx, "ev-2", "p-1")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	s.player("ev-2", "p-1")
	players, err := s.Store.ListPlayers(s.Ctx, "ev-2")
	s.Require().NoError(err)
	s.Len(players, 1)
}

func (s *StorageSuite) TestUpdatePlayerProfile() {
	s.event("ev-1")
	s.player("ev-1", "p-1")

	got, err := s.Store.UpdatePlayerProfile(s.Ctx, "ev-1", "p-1", model.Profile{
		Name: "Renamed", AvatarType: "emoji", AvatarValue: "🐙",
	})
	s.Require().NoError(err)
	s.Equal("Renamed", got.Name)
	s.Equal("🐙", got.AvatarValue)

	_, err = s.Store.UpdatePlayerProfile(s.Ctx, "ev-1", "missing", model.Profile{Name: "x"})
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestStartPlayerKeepsFirstStamp() {
	s.event("ev-1")
	p := &model.Player{ID: "p-1", EventID: "ev-1", Name: "Ann", RegisteredAt: epoch}
	s.Require().NoError(s.Store.CreatePlayer(s.Ctx, p))

	first := epoch.Add(time.Minute)
	got, err := s.Store.StartPlayer(s.Ctx, "ev-1", "p-1", first)
	s.Require().NoError(err)
	s.Require().NotNil(got.GameStartedAt)
	s.True(first.Equal(*got.GameStartedAt))

	got, err = s.Store.StartPlayer(s.Ctx, "ev-1", "p-1", first.Add(time.Hour))
	s.Require().NoError(err)
	s.True(first.Equal(*got.GameStartedAt))
}

func (s *StorageSuite) TestFinishPlayer() {
	s.event("ev-1")
	s.player("ev-1", "p-1")

	end := epoch.Add(time.Minute)
	got, err := s.Store.FinishPlayer(s.Ctx, "ev-1", "p-1", end)
	s.Require().NoError(err)
	s.True(got.IsFinished)
	s.True(end.Equal(*got.GameEndedAt))

	got, err = s.Store.FinishPlayer(s.Ctx, "ev-1", "p-1", end.Add(time.Hour))
	s.Require().NoError(err)
	s.True(end.Equal(*got.GameEndedAt), "first finish wins")
}

// Ledger tests

func (s *StorageSuite) TestCommitScanUpdatesTotals() {
	s.event("ev-1")
	s.player("ev-1", "p-1")

	at := epoch.Add(10 * time.Second)
	p, err := s.Store.CommitScan(s.Ctx, model.ScanCommit{
		Scan:             s.scan("ev-1", "p-1", "CODE-A", 100, at),
		ConfigVersion:    1,
		CompletionTarget: 2,
	})
	s.Require().NoError(err)
	s.Equal(100, p.CurrentScore)
	s.Equal(1, p.ScansCount)
	s.False(p.IsFinished)
	s.Require().NotNil(p.LastScanAt)
	s.True(at.Equal(*p.LastScanAt))

	end := epoch.Add(20 * time.Second)
	p, err = s.Store.CommitScan(s.Ctx, model.ScanCommit{
		Scan:             s.scan("ev-1", "p-1", "CODE-B", 150, end),
		ConfigVersion:    1,
		CompletionTarget: 2,
	})
	s.Require().NoError(err)
	s.Equal(250, p.CurrentScore)
	s.Equal(2, p.ScansCount)
	s.True(p.IsFinished)
	s.True(end.Equal(*p.GameEndedAt))

	scans, err := s.Store.ListScans(s.Ctx, "ev-1", "p-1")
	s.Require().NoError(err)
	s.Len(scans, 2)
	total := 0
	for _, sc := range scans {
		total += sc.Points
	}
	s.Equal(p.CurrentScore, total)
}

func (s *StorageSuite) TestCommitScanRejectsDuplicate() {
	s.event("ev-1")
	s.player("ev-1", "p-1")

	commit := model.ScanCommit{
		Scan:          s.scan("ev-1", "p-1", "CODE-A", 100, epoch.Add(time.Second)),
		ConfigVersion: 1,
	}
	_, err := s.Store.CommitScan(s.Ctx, commit)
	s.Require().NoError(err)

	commit.Scan.ID = "another-id"
	_, err = s.Store.CommitScan(s.Ctx, commit)
	s.ErrorIs(err, model.ErrAlreadyScanned)

	p, err := s.Store.GetPlayer(s.Ctx, "ev-1", "p-1")
	s.Require().NoError(err)
	s.Equal(100, p.CurrentScore)
	s.Equal(1, p.ScansCount)
}

func (s *StorageSuite) TestCommitScanConcurrentDuplicates() {
	s.event("ev-1")
	s.player("ev-1", "p-1")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sc := s.scan("ev-1", "p-1", "CODE-A", 100, epoch.Add(time.Second))
			sc.ID = model.ScanID(fmt.Sprintf("attempt-%d", i))
			_, errs[i] = s.Store.CommitScan(context.Background(), model.ScanCommit{Scan: sc, ConfigVersion: 1})
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		s.ErrorIs(err, model.ErrAlreadyScanned)
	}
	s.Equal(1, accepted)

	p, err := s.Store.GetPlayer(s.Ctx, "ev-1", "p-1")
	s.Require().NoError(err)
	s.Equal(100, p.CurrentScore)
}

func (s *StorageSuite) TestCommitScanConfigConflict() {
	e := s.event("ev-1")
	s.player("ev-1", "p-1")

	next, err := e.Game.SetCodeActive("a", false)
	s.Require().NoError(err)
	_, err = s.Store.UpdateGameConfig(s.Ctx, "ev-1", 1, next, epoch)
	s.Require().NoError(err)

	_, err = s.Store.CommitScan(s.Ctx, model.ScanCommit{
		Scan:          s.scan("ev-1", "p-1", "CODE-A", 100, epoch),
		ConfigVersion: 1,
	})
	s.ErrorIs(err, model.ErrConfigConflict)

	scans, err := s.Store.ListScans(s.Ctx, "ev-1", "p-1")
	s.Require().NoError(err)
	s.Empty(scans)
}

func (s *StorageSuite) TestCommitScanFinishedPlayer() {
	s.event("ev-1")
	s.player("ev-1", "p-1")
	_, err := s.Store.FinishPlayer(s.Ctx, "ev-1", "p-1", epoch)
	s.Require().NoError(err)

	_, err = s.Store.CommitScan(s.Ctx, model.ScanCommit{
		Scan:          s.scan("ev-1", "p-1", "CODE-A", 100, epoch),
		ConfigVersion: 1,
	})
	s.ErrorIs(err, model.ErrPlayerFinished)
}

func (s *StorageSuite) TestCommitScanUnknownPlayer() {
	s.event("ev-1")
	_, err := s.Store.CommitScan(s.Ctx, model.ScanCommit{
		Scan:          s.scan("ev-1", "ghost", "CODE-A", 100, epoch),
		ConfigVersion: 1,
	})
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestDeleteEventData() {
	s.event("ev-1")
	s.event("ev-2")
	s.player("ev-1", "p-1")
	s.player("ev-2", "p-1")
	for _, ev := range []model.EventID{"ev-1", "ev-2"} {
		_, err := s.Store.CommitScan(s.Ctx, model.ScanCommit{
			Scan:          s.scan(ev, "p-1", "CODE-A", 100, epoch),
			ConfigVersion: 1,
		})
		s.Require().NoError(err)
	}

	s.Require().NoError(s.Store.DeleteEventData(s.Ctx, "ev-1"))

	players, err := s.Store.ListPlayers(s.Ctx, "ev-1")
	s.Require().NoError(err)
	s.Empty(players)
	scans, err := s.Store.ListEventScans(s.Ctx, "ev-1")
	s.Require().NoError(err)
	s.Empty(scans)

	_, err = s.Store.GetEvent(s.Ctx, "ev-1")
	s.NoError(err, "the event itself survives a reset")

	scans, err = s.Store.ListEventScans(s.Ctx, "ev-2")
	s.Require().NoError(err)
	s.Len(scans, 1)

	// the same player can score the same code again after a reset
	s.player("ev-1", "p-1")
	_, err = s.Store.CommitScan(s.Ctx, model.ScanCommit{
		Scan:          s.scan("ev-1", "p-1", "CODE-A", 100, epoch),
		ConfigVersion: 1,
	})
	s.NoError(err)
}
