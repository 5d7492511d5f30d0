package sse

import (
	"encoding/json"
)

// Event names pushed to spectators
const (
	EventLeaderboard = "leaderboard"
	EventStats       = "stats"
	EventRecentScan  = "recent-scan"
	EventTeams       = "teams"
	EventPhase       = "phase"
	EventReset       = "reset"
)

// RenderEvent encodes payload as JSON inside an SSE frame
func RenderEvent(eventName string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return formatSSEMessage(eventName, string(data)), nil
}
