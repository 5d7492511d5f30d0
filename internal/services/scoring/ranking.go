// Package scoring holds the pure ranking rules shared by the projector and the team aggregator.
package scoring

import (
	"sort"
	"time"

	"github.com/mcoot/qhunt/internal/model"
)

// RankLeaderboard builds ranked leaderboard entries from the full player set.
//
// Entries are ordered by score descending. Among equal scores, players with a
// recorded game time come first, fastest first. Remaining ties fall back to
// registration order and then player id so the result is a pure function of its input.
// Ranks are assigned 1..N in that order.
func RankLeaderboard(players []*model.Player) []model.LeaderboardEntry {
	type keyed struct {
		entry        model.LeaderboardEntry
		registeredAt time.Time
	}

	rows := make([]keyed, len(players))
	for i, p := range players {
		rows[i] = keyed{entry: model.NewLeaderboardEntry(p), registeredAt: p.RegisteredAt}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.entry.Score != b.entry.Score {
			return a.entry.Score > b.entry.Score
		}
		switch {
		case a.entry.GameTime != nil && b.entry.GameTime == nil:
			return true
		case a.entry.GameTime == nil && b.entry.GameTime != nil:
			return false
		case a.entry.GameTime != nil && *a.entry.GameTime != *b.entry.GameTime:
			return *a.entry.GameTime < *b.entry.GameTime
		}
		if !a.registeredAt.Equal(b.registeredAt) {
			return a.registeredAt.Before(b.registeredAt)
		}
		return a.entry.PlayerID < b.entry.PlayerID
	})

	entries := make([]model.LeaderboardEntry, len(rows))
	for i, r := range rows {
		r.entry.Rank = i + 1
		entries[i] = r.entry
	}
	return entries
}

// ComputeStats derives the aggregate counters from the full player set
func ComputeStats(players []*model.Player, asOf time.Time) model.Stats {
	stats := model.Stats{PlayersCount: len(players), AsOf: asOf}
	for _, p := range players {
		switch {
		case p.IsFinished:
			stats.PlayersFinished++
		case p.HasStarted():
			stats.PlayersPlaying++
		}
		stats.TotalScans += p.ScansCount
		if p.CurrentScore > stats.TopScore {
			stats.TopScore = p.CurrentScore
		}
	}
	return stats
}
