package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/qhunt/internal/model"
	"github.com/mcoot/qhunt/internal/storage"
	"github.com/mcoot/qhunt/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.StorageSuite
}

func TestStorageSuite(t *testing.T) {
	s := new(StorageSuite)
	s.New = func() storage.Storage { return New() }
	suite.Run(t, s)
}

func (s *StorageSuite) TestReturnedRecordsAreCopies() {
	now := time.Now()
	event := &model.Event{
		ID:   "ev-copy",
		Game: model.NewGameConfig(model.GameRules{Codes: []model.Code{{ID: "a", Value: "A", Points: 1, Active: true}}}, now),
	}
	s.Require().NoError(s.Store.CreateEvent(s.Ctx, event))
	event.Game.Codes[0].Active = false

	got, err := s.Store.GetEvent(s.Ctx, "ev-copy")
	s.Require().NoError(err)
	s.True(got.Game.Codes[0].Active)

	got.Game.Codes[0].Points = 1000
	again, err := s.Store.GetEvent(s.Ctx, "ev-copy")
	s.Require().NoError(err)
	s.Equal(1, again.Game.Codes[0].Points)

	player := &model.Player{ID: "p-1", EventID: "ev-copy", Name: "Ann"}
	s.Require().NoError(s.Store.CreatePlayer(s.Ctx, player))
	player.Name = "Changed"
	p, err := s.Store.GetPlayer(s.Ctx, "ev-copy", "p-1")
	s.Require().NoError(err)
	s.Equal("Ann", p.Name)
}
