package redis

import (
	"fmt"

	"github.com/mcoot/qhunt/internal/model"
)

// Key prefix for all projection data
const keyPrefix = "qhunt"

// leaderboardKey returns the HASH of player id -> entry JSON
func leaderboardKey(id model.EventID) string {
	return fmt.Sprintf("%s:event:%s:leaderboard", keyPrefix, id)
}

// rankingKey returns the ZSET of player ids scored by rank
func rankingKey(id model.EventID) string {
	return fmt.Sprintf("%s:event:%s:ranking", keyPrefix, id)
}

// statsKey returns the stats document key
func statsKey(id model.EventID) string {
	return fmt.Sprintf("%s:event:%s:stats", keyPrefix, id)
}

// recentKey returns the LIST of recent scans, newest at the head
func recentKey(id model.EventID) string {
	return fmt.Sprintf("%s:event:%s:recent", keyPrefix, id)
}

// teamsKey returns the team scores document key
func teamsKey(id model.EventID) string {
	return fmt.Sprintf("%s:event:%s:teams", keyPrefix, id)
}

func eventKeys(id model.EventID) []string {
	return []string{leaderboardKey(id), rankingKey(id), statsKey(id), recentKey(id), teamsKey(id)}
}
