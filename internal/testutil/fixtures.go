package testutil

import (
	"fmt"

	"github.com/mcoot/qhunt/internal/model"
)

// Code builds an active code whose value is "CODE-<id>"
func Code(id string, t model.CodeType, points int) model.Code {
	return model.Code{
		ID:     model.CodeID(id),
		Value:  "CODE-" + id,
		Type:   t,
		Points: points,
		Active: true,
	}
}

// IndividualRules is an individual-mode game with three untyped codes worth 100/150/200
// and a target of three scans
func IndividualRules() model.GameRules {
	return model.GameRules{
		Mode:            model.ModeIndividual,
		TargetCodeCount: 3,
		Codes: []model.Code{
			Code("a", "", 100),
			Code("b", "", 150),
			Code("c", "", 200),
			Code("d", "", 50),
		},
	}
}

// TypedRules is a type-hunting game with two codes each of "red" and "blue"
func TypedRules() model.GameRules {
	return model.GameRules{
		Mode:                   model.ModeIndividual,
		EnableTypeBasedHunting: true,
		AvailableCodeTypes:     []model.CodeType{"red", "blue"},
		Codes: []model.Code{
			Code("r1", "red", 100),
			Code("r2", "red", 100),
			Code("b1", "blue", 100),
			Code("b2", "blue", 100),
		},
	}
}

// TeamRules is a team-mode game with teams "t1" and "t2"
func TeamRules() model.GameRules {
	rules := IndividualRules()
	rules.Mode = model.ModeTeams
	rules.TargetCodeCount = 0
	rules.Teams = []model.Team{
		{ID: "t1", Name: "Owls", Color: "#112233"},
		{ID: "t2", Name: "Foxes", Color: "#aa5500"},
	}
	return rules
}

// ManyCodes returns n active untyped codes worth one point each
func ManyCodes(n int) []model.Code {
	codes := make([]model.Code, n)
	for i := range codes {
		codes[i] = Code(fmt.Sprintf("m%d", i), "", 1)
	}
	return codes
}
