package scoring

import (
	"sort"

	"github.com/mcoot/qhunt/internal/model"
)

// AggregateTeams sums member scores per configured team and ranks the teams 1..N
// by score descending. Equal scores keep configuration order. Players whose team
// is not configured are ignored.
func AggregateTeams(teams []model.Team, players []*model.Player) []model.TeamScore {
	index := make(map[model.TeamID]int, len(teams))
	scores := make([]model.TeamScore, len(teams))
	for i, t := range teams {
		index[t.ID] = i
		scores[i] = model.TeamScore{TeamID: t.ID, Name: t.Name, Color: t.Color}
	}

	for _, p := range players {
		i, ok := index[p.TeamID]
		if !ok {
			continue
		}
		scores[i].Score += p.CurrentScore
		scores[i].Players++
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	for i := range scores {
		scores[i].Rank = i + 1
	}
	return scores
}
