package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/qhunt/internal/model"
	"github.com/mcoot/qhunt/internal/storage"
)

// Realtime is an in-memory projection store
type Realtime struct {
	mu sync.RWMutex

	leaderboards map[model.EventID]map[model.PlayerID]model.LeaderboardEntry
	stats        map[model.EventID]model.Stats
	recent       map[model.EventID][]model.RecentScan
	teams        map[model.EventID][]model.TeamScore
}

// NewRealtime creates an empty in-memory projection store
func NewRealtime() *Realtime {
	return &Realtime{
		leaderboards: make(map[model.EventID]map[model.PlayerID]model.LeaderboardEntry),
		stats:        make(map[model.EventID]model.Stats),
		recent:       make(map[model.EventID][]model.RecentScan),
		teams:        make(map[model.EventID][]model.TeamScore),
	}
}

var _ storage.Realtime = (*Realtime)(nil)

func (r *Realtime) ReplaceLeaderboard(ctx context.Context, eventID model.EventID, entries []model.LeaderboardEntry) error {
	board := make(map[model.PlayerID]model.LeaderboardEntry, len(entries))
	for _, e := range entries {
		board[e.PlayerID] = e
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaderboards[eventID] = board
	return nil
}

func (r *Realtime) Leaderboard(ctx context.Context, eventID model.EventID) ([]model.LeaderboardEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]model.LeaderboardEntry, 0, len(r.leaderboards[eventID]))
	for _, e := range r.leaderboards[eventID] {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Rank < entries[j].Rank })
	return entries, nil
}

func (r *Realtime) Top(ctx context.Context, eventID model.EventID, n int) ([]model.LeaderboardEntry, error) {
	if n <= 0 {
		return []model.LeaderboardEntry{}, nil
	}
	entries, err := r.Leaderboard(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if n < len(entries) {
		entries = entries[:n]
	}
	return entries, nil
}

func (r *Realtime) Entry(ctx context.Context, eventID model.EventID, playerID model.PlayerID) (*model.LeaderboardEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.leaderboards[eventID][playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return &e, nil
}

func (r *Realtime) UpdateStats(ctx context.Context, eventID model.EventID, fn func(stats *model.Stats) bool) (*model.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.stats[eventID]
	if fn(&current) {
		r.stats[eventID] = current
	} else {
		current = r.stats[eventID]
	}
	return &current, nil
}

func (r *Realtime) Stats(ctx context.Context, eventID model.EventID) (*model.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := r.stats[eventID]
	return &stats, nil
}

func (r *Realtime) PushRecentScan(ctx context.Context, eventID model.EventID, scan model.RecentScan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	feed := r.recent[eventID]
	for _, existing := range feed {
		if existing.ScanID == scan.ScanID {
			return nil
		}
	}
	feed = append([]model.RecentScan{scan}, feed...)
	if len(feed) > model.RecentScansLimit {
		feed = feed[:model.RecentScansLimit]
	}
	r.recent[eventID] = feed
	return nil
}

func (r *Realtime) RecentScans(ctx context.Context, eventID model.EventID) ([]model.RecentScan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.RecentScan{}, r.recent[eventID]...), nil
}

func (r *Realtime) ReplaceTeamScores(ctx context.Context, eventID model.EventID, scores []model.TeamScore) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teams[eventID] = append([]model.TeamScore(nil), scores...)
	return nil
}

func (r *Realtime) TeamScores(ctx context.Context, eventID model.EventID) ([]model.TeamScore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.TeamScore{}, r.teams[eventID]...), nil
}

func (r *Realtime) ClearEvent(ctx context.Context, eventID model.EventID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.leaderboards, eventID)
	delete(r.stats, eventID)
	delete(r.recent, eventID)
	delete(r.teams, eventID)
	return nil
}
