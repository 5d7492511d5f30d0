package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/qhunt/internal/model"
	"github.com/mcoot/qhunt/internal/storage"
)

// Realtime is a Redis-backed projection store
type Realtime struct {
	client *redis.Client
	cfg    Config
}

// New connects to Redis and returns a projection store
func New(cfg Config) (*Realtime, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a projection store with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Realtime {
	if cfg.MaxTxRetries <= 0 {
		cfg.MaxTxRetries = 1
	}
	return &Realtime{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (r *Realtime) Close() error {
	return r.client.Close()
}

var _ storage.Realtime = (*Realtime)(nil)

// Leaderboard

func (r *Realtime) ReplaceLeaderboard(ctx context.Context, eventID model.EventID, entries []model.LeaderboardEntry) error {
	fields := make(map[string]any, len(entries))
	members := make([]redis.Z, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		fields[string(e.PlayerID)] = data
		members = append(members, redis.Z{Score: float64(e.Rank), Member: string(e.PlayerID)})
	}

	hash, ranking := leaderboardKey(eventID), rankingKey(eventID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, hash, ranking)
		if len(entries) > 0 {
			pipe.HSet(ctx, hash, fields)
			pipe.ZAdd(ctx, ranking, members...)
			r.expire(ctx, pipe, hash, ranking)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis.ReplaceLeaderboard: %w", err)
	}
	return nil
}

func (r *Realtime) Leaderboard(ctx context.Context, eventID model.EventID) ([]model.LeaderboardEntry, error) {
	return r.ranked(ctx, eventID, -1)
}

func (r *Realtime) Top(ctx context.Context, eventID model.EventID, n int) ([]model.LeaderboardEntry, error) {
	if n <= 0 {
		return []model.LeaderboardEntry{}, nil
	}
	return r.ranked(ctx, eventID, int64(n-1))
}

// ranked reads entries in rank order up to the zero-based stop index (-1 for all)
func (r *Realtime) ranked(ctx context.Context, eventID model.EventID, stop int64) ([]model.LeaderboardEntry, error) {
	ids, err := r.client.ZRange(ctx, rankingKey(eventID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis.ranked: %w", err)
	}
	entries := make([]model.LeaderboardEntry, 0, len(ids))
	if len(ids) == 0 {
		return entries, nil
	}

	values, err := r.client.HMGet(ctx, leaderboardKey(eventID), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis.ranked: %w", err)
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// replaced between the two reads
			continue
		}
		var e model.LeaderboardEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *Realtime) Entry(ctx context.Context, eventID model.EventID, playerID model.PlayerID) (*model.LeaderboardEntry, error) {
	data, err := r.client.HGet(ctx, leaderboardKey(eventID), string(playerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var e model.LeaderboardEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Stats

func (r *Realtime) UpdateStats(ctx context.Context, eventID model.EventID, fn func(stats *model.Stats) bool) (*model.Stats, error) {
	key := statsKey(eventID)
	var result model.Stats

	txf := func(tx *redis.Tx) error {
		current, err := readStats(ctx, tx, key)
		if err != nil {
			return err
		}
		if !fn(current) {
			// re-read so the caller sees the stored document, not its rejected edit
			current, err = readStats(ctx, tx, key)
			if err != nil {
				return err
			}
			result = *current
			return nil
		}
		data, err := json.Marshal(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.cfg.ProjectionTTL)
			return nil
		})
		if err == nil {
			result = *current
		}
		return err
	}

	if err := r.watch(ctx, txf, key); err != nil {
		return nil, fmt.Errorf("redis.UpdateStats: %w", err)
	}
	return &result, nil
}

func (r *Realtime) Stats(ctx context.Context, eventID model.EventID) (*model.Stats, error) {
	stats, err := readStats(ctx, r.client, statsKey(eventID))
	if err != nil {
		return nil, fmt.Errorf("redis.Stats: %w", err)
	}
	return stats, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readStats(ctx context.Context, c getter, key string) (*model.Stats, error) {
	var stats model.Stats
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &stats, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Recent activity

func (r *Realtime) PushRecentScan(ctx context.Context, eventID model.EventID, scan model.RecentScan) error {
	key := recentKey(eventID)
	data, err := json.Marshal(scan)
	if err != nil {
		return err
	}

	txf := func(tx *redis.Tx) error {
		existing, err := tx.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return err
		}
		for _, raw := range existing {
			var s model.RecentScan
			if json.Unmarshal([]byte(raw), &s) == nil && s.ScanID == scan.ScanID {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LPush(ctx, key, data)
			pipe.LTrim(ctx, key, 0, model.RecentScansLimit-1)
			r.expire(ctx, pipe, key)
			return nil
		})
		return err
	}

	if err := r.watch(ctx, txf, key); err != nil {
		return fmt.Errorf("redis.PushRecentScan: %w", err)
	}
	return nil
}

func (r *Realtime) RecentScans(ctx context.Context, eventID model.EventID) ([]model.RecentScan, error) {
	values, err := r.client.LRange(ctx, recentKey(eventID), 0, model.RecentScansLimit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis.RecentScans: %w", err)
	}
	scans := make([]model.RecentScan, 0, len(values))
	for _, raw := range values {
		var s model.RecentScan
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, err
		}
		scans = append(scans, s)
	}
	return scans, nil
}

// Teams

func (r *Realtime) ReplaceTeamScores(ctx context.Context, eventID model.EventID, scores []model.TeamScore) error {
	data, err := json.Marshal(scores)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, teamsKey(eventID), data, r.cfg.ProjectionTTL).Err()
}

func (r *Realtime) TeamScores(ctx context.Context, eventID model.EventID) ([]model.TeamScore, error) {
	scores := []model.TeamScore{}
	data, err := r.client.Get(ctx, teamsKey(eventID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return scores, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &scores); err != nil {
		return nil, err
	}
	return scores, nil
}

func (r *Realtime) ClearEvent(ctx context.Context, eventID model.EventID) error {
	return r.client.Del(ctx, eventKeys(eventID)...).Err()
}

// watch runs txf under WATCH on keys, retrying when another client touched them first
func (r *Realtime) watch(ctx context.Context, txf func(tx *redis.Tx) error, keys ...string) error {
	for i := 0; i < r.cfg.MaxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return redis.TxFailedErr
}

func (r *Realtime) expire(ctx context.Context, pipe redis.Pipeliner, keys ...string) {
	if r.cfg.ProjectionTTL <= 0 {
		return
	}
	for _, k := range keys {
		pipe.Expire(ctx, k, r.cfg.ProjectionTTL)
	}
}
