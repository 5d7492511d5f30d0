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

// RealtimeSuite exercises a storage.Realtime. Embed it and set New before the suite runs.
type RealtimeSuite struct {
	suite.Suite

	// New returns an empty projection store for each test
	New func() storage.Realtime

	Store storage.Realtime
	Ctx   context.Context
}

func (s *RealtimeSuite) SetupTest() {
	s.Store = s.New()
	s.Ctx = context.Background()
}

func ranked(n int) []model.LeaderboardEntry {
	entries := make([]model.LeaderboardEntry, n)
	for i := range entries {
		entries[i] = model.LeaderboardEntry{
			PlayerID: model.PlayerID(fmt.Sprintf("p-%d", i+1)),
			Name:     fmt.Sprintf("Player %d", i+1),
			Score:    (n - i) * 100,
			Rank:     i + 1,
		}
	}
	return entries
}

func (s *RealtimeSuite) TestLeaderboardRoundTrip() {
	entries := ranked(3)
	gt := 95 * time.Second
	entries[0].IsFinished = true
	entries[0].GameTime = &gt

	s.Require().NoError(s.Store.ReplaceLeaderboard(s.Ctx, "ev-1", entries))

	got, err := s.Store.Leaderboard(s.Ctx, "ev-1")
	s.Require().NoError(err)
	s.Equal(entries, got)
}

func (s *RealtimeSuite) TestReplaceLeaderboardDropsStaleEntries() {
	s.Require().NoError(s.Store.ReplaceLeaderboard(s.Ctx, "ev-1", ranked(3)))
	s.Require().NoError(s.Store.ReplaceLeaderboard(s.Ctx, "ev-1", ranked(1)))

	got, err := s.Store.Leaderboard(s.Ctx, "ev-1")
	s.Require().NoError(err)
	s.Len(got, 1)

	_, err = s.Store.Entry(s.Ctx, "ev-1", "p-3")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *RealtimeSuite) TestTopAndEntry() {
	s.Require().NoError(s.Store.ReplaceLeaderboard(s.Ctx, "ev-1", ranked(5)))

	top, err := s.Store.Top(s.Ctx, "ev-1", 2)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal(model.PlayerID("p-1"), top[0].PlayerID)
	s.Equal(model.PlayerID("p-2"), top[1].PlayerID)

	all, err := s.Store.Top(s.Ctx, "ev-1", 50)
	s.Require().NoError(err)
	s.Len(all, 5)

	e, err := s.Store.Entry(s.Ctx, "ev-1", "p-4")
	s.Require().NoError(err)
	s.Equal(4, e.Rank)
	s.Equal(200, e.Score)
}

func (s *RealtimeSuite) TestEmptyLeaderboard() {
	got, err := s.Store.Leaderboard(s.Ctx, "ev-1")
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *RealtimeSuite) TestUpdateStats() {
	stats, err := s.Store.Stats(s.Ctx, "ev-1")
	s.Require().NoError(err)
	s.Equal(model.Stats{}, *stats)

	asOf := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	got, err := s.Store.UpdateStats(s.Ctx, "ev-1", func(st *model.Stats) bool {
		st.PlayersCount = 4
		st.TotalScans = 7
		st.TopScore = 300
		st.AsOf = asOf
		return true
	})
	s.Require().NoError(err)
	s.Equal(4, got.PlayersCount)

	got, err = s.Store.UpdateStats(s.Ctx, "ev-1", func(st *model.Stats) bool {
		st.PlayersCount = 99
		return false
	})
	s.Require().NoError(err)
	s.Equal(4, got.PlayersCount, "declined updates are not written")

	stats, err = s.Store.Stats(s.Ctx, "ev-1")
	s.Require().NoError(err)
	s.Equal(4, stats.PlayersCount)
	s.Equal(7, stats.TotalScans)
	s.True(asOf.Equal(stats.AsOf))
}

func (s *RealtimeSuite) TestUpdateStatsConcurrentIncrements() {
	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Store.UpdateStats(context.Background(), "ev-1", func(st *model.Stats) bool {
				st.TotalScans++
				return true
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	stats, err := s.Store.Stats(s.Ctx, "ev-1")
	s.Require().NoError(err)
	s.Equal(workers, stats.TotalScans)
}

func (s *RealtimeSuite) TestRecentScansBoundedAndDeduplicated() {
	base := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	for i := 0; i < model.RecentScansLimit+5; i++ {
		err := s.Store.PushRecentScan(s.Ctx, "ev-1", model.RecentScan{
			ScanID:    model.ScanID(fmt.Sprintf("scan-%02d", i)),
			PlayerID:  "p-1",
			Points:    10,
			ScannedAt: base.Add(time.Duration(i) * time.Second),
		})
		s.Require().NoError(err)
	}
	// re-delivery of the newest scan
	err := s.Store.PushRecentScan(s.Ctx, "ev-1", model.RecentScan{ScanID: "scan-24", PlayerID: "p-1"})
	s.Require().NoError(err)

	feed, err := s.Store.RecentScans(s.Ctx, "ev-1")
	s.Require().NoError(err)
	s.Len(feed, model.RecentScansLimit)
	s.Equal(model.ScanID("scan-24"), feed[0].ScanID)
	s.Equal(model.ScanID("scan-05"), feed[len(feed)-1].ScanID)
	s.Equal(10, feed[0].Points)
}

func (s *RealtimeSuite) TestTeamScores() {
	scores := []model.TeamScore{
		{TeamID: "t2", Name: "Foxes", Score: 300, Players: 2, Rank: 1},
		{TeamID: "t1", Name: "Owls", Score: 100, Players: 1, Rank: 2},
	}
	s.Require().NoError(s.Store.ReplaceTeamScores(s.Ctx, "ev-1", scores))

	got, err := s.Store.TeamScores(s.Ctx, "ev-1")
	s.Require().NoError(err)
	s.Equal(scores, got)
}

func (s *RealtimeSuite) TestClearEvent() {
	s.Require().NoError(s.Store.ReplaceLeaderboard(s.Ctx, "ev-1", ranked(2)))
	s.Require().NoError(s.Store.ReplaceLeaderboard(s.Ctx, "ev-2", ranked(2)))
	s.Require().NoError(s.Store.PushRecentScan(s.Ctx, "ev-1", model.RecentScan{ScanID: "s1"}))
	_, err := s.Store.UpdateStats(s.Ctx, "ev-1", func(st *model.Stats) bool {
		st.TotalScans = 3
		return true
	})
	s.Require().NoError(err)
	s.Require().NoError(s.Store.ReplaceTeamScores(s.Ctx, "ev-1", []model.TeamScore{{TeamID: "t1", Rank: 1}}))

	s.Require().NoError(s.Store.ClearEvent(s.Ctx, "ev-1"))

	board, err := s.Store.Leaderboard(s.Ctx, "ev-1")
	s.Require().NoError(err)
	s.Empty(board)
	feed, err := s.Store.RecentScans(s.Ctx, "ev-1")
	s.Require().NoError(err)
	s.Empty(feed)
	stats, err := s.Store.Stats(s.Ctx, "ev-1")
	s.Require().NoError(err)
	s.Zero(stats.TotalScans)
	teams, err := s.Store.TeamScores(s.Ctx, "ev-1")
	s.Require().NoError(err)
	s.Empty(teams)

	other, err := s.Store.Leaderboard(s.Ctx, "ev-2")
	s.Require().NoError(err)
	s.Len(other, 2)
}
