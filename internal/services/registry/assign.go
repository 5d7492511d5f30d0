package registry

import (
	"github.com/mcoot/qhunt/internal/dependencies/random"
	"github.com/mcoot/qhunt/internal/model"
)

// AssignType picks a hunt type for a new player: uniformly at random among the
// available types that currently have the fewest players assigned.
// Assignments to types no longer available are not counted.
func AssignType(available []model.CodeType, players []*model.Player, rnd random.Random) model.CodeType {
	if len(available) == 0 {
		return ""
	}

	counts := make(map[model.CodeType]int, len(available))
	for _, t := range available {
		counts[t] = 0
	}
	for _, p := range players {
		if _, ok := counts[p.AssignedType]; ok {
			counts[p.AssignedType]++
		}
	}

	least := -1
	var candidates []model.CodeType
	for _, t := range available {
		switch c := counts[t]; {
		case least < 0 || c < least:
			least = c
			candidates = []model.CodeType{t}
		case c == least:
			candidates = append(candidates, t)
		}
	}

	return candidates[rnd.Intn(len(candidates))]
}
