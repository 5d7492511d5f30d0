package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mcoot/qhunt/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Event:
		o.printEvent(v)
	case response.Player:
		o.printPlayer(v)
	case response.RegisterResponse:
		o.printPlayer(v.Player)
	case response.ScanResponse:
		o.printScanResult(v)
	case []response.Scan:
		o.printScans(v)
	case response.Leaderboard:
		o.printLeaderboard(v)
	case response.Stats:
		o.printStats(v)
	case []response.RecentScan:
		o.printRecent(v)
	case []response.TeamScore:
		o.printTeams(v)
	case response.HealthResponse:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) table() *tabwriter.Writer {
	return tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
}

func (o *Output) printEvent(e response.Event) {
	g := e.Game
	fmt.Fprintf(o.w, "Event: %s (%s)\n", e.Title, e.ID)
	fmt.Fprintf(o.w, "Phase: %s (since %s)\n", g.Phase, g.PhaseChangedAt.Format(time.RFC3339))
	fmt.Fprintf(o.w, "Mode: %s\n", g.Mode)
	if g.GameDurationSeconds > 0 {
		fmt.Fprintf(o.w, "Time limit: %s\n", time.Duration(g.GameDurationSeconds)*time.Second)
	}
	if g.TargetCodeCount > 0 {
		fmt.Fprintf(o.w, "Target: %d codes\n", g.TargetCodeCount)
	}
	if g.EnableTypeBasedHunting {
		fmt.Fprintf(o.w, "Hunt types: %s\n", strings.Join(g.AvailableCodeTypes, ", "))
	}
	if len(g.Teams) > 0 {
		fmt.Fprintf(o.w, "Teams (%d):\n", len(g.Teams))
		for _, t := range g.Teams {
			fmt.Fprintf(o.w, "  - %s (%s)\n", t.Name, t.ID)
		}
	}

	fmt.Fprintf(o.w, "Codes (%d):\n", len(g.Codes))
	tw := o.table()
	for _, c := range g.Codes {
		state := "active"
		if !c.Active {
			state = "disabled"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%d pts\t%s\n", c.ID, c.Value, c.Type, c.Points, state)
	}
	_ = tw.Flush()
}

func (o *Output) printPlayer(p response.Player) {
	fmt.Fprintf(o.w, "Player: %s (%s)\n", p.Name, p.ID)
	if p.TeamID != "" {
		fmt.Fprintf(o.w, "Team: %s\n", p.TeamID)
	}
	if p.AssignedType != "" {
		fmt.Fprintf(o.w, "Hunting: %s\n", p.AssignedType)
	}
	fmt.Fprintf(o.w, "Score: %d (%d scans)\n", p.CurrentScore, p.ScansCount)
	if p.Rank > 0 {
		fmt.Fprintf(o.w, "Rank: #%d\n", p.Rank)
	}
	switch {
	case p.IsFinished:
		fmt.Fprintln(o.w, "Status: finished")
	case p.GameStartedAt != nil:
		fmt.Fprintf(o.w, "Status: playing since %s\n", p.GameStartedAt.Format(time.RFC3339))
	default:
		fmt.Fprintln(o.w, "Status: not started")
	}
}

func (o *Output) printScanResult(r response.ScanResponse) {
	fmt.Fprintf(o.w, "Found %s (+%d)\n", r.Scan.CodeValue, r.Scan.Points)
	fmt.Fprintf(o.w, "Score: %d\n", r.NewScore)
	if r.Hint != nil {
		fmt.Fprintln(o.w, r.Hint.Message)
	}
	if r.IsGameComplete {
		fmt.Fprintln(o.w, "Game complete!")
	}
}

func (o *Output) printScans(scans []response.Scan) {
	if len(scans) == 0 {
		fmt.Fprintln(o.w, "No scans yet")
		return
	}
	tw := o.table()
	fmt.Fprintln(tw, "TIME\tCODE\tTYPE\tPOINTS\tMETHOD")
	for _, s := range scans {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.ScannedAt.Format(time.TimeOnly), s.CodeValue, s.CodeType, s.Points, s.Method)
	}
	_ = tw.Flush()
}

func (o *Output) printLeaderboard(l response.Leaderboard) {
	if len(l.Entries) == 0 {
		fmt.Fprintln(o.w, "No players yet")
		return
	}
	tw := o.table()
	fmt.Fprintln(tw, "RANK\tPLAYER\tTEAM\tSCORE\tSCANS\tTIME")
	for _, e := range l.Entries {
		gameTime := "-"
		if e.GameTimeMs != nil {
			gameTime = (time.Duration(*e.GameTimeMs) * time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%d\t%s %s\t%s\t%d\t%d\t%s\n", e.Rank, e.AvatarValue, e.Name, e.TeamID, e.Score, e.ScansCount, gameTime)
	}
	_ = tw.Flush()
}

func (o *Output) printStats(s response.Stats) {
	fmt.Fprintf(o.w, "Players: %d (%d playing, %d finished)\n", s.PlayersCount, s.PlayersPlaying, s.PlayersFinished)
	fmt.Fprintf(o.w, "Scans: %d\n", s.TotalScans)
	fmt.Fprintf(o.w, "Top score: %d\n", s.TopScore)
}

func (o *Output) printRecent(scans []response.RecentScan) {
	if len(scans) == 0 {
		fmt.Fprintln(o.w, "No activity yet")
		return
	}
	for _, s := range scans {
		fmt.Fprintf(o.w, "[%s] %s %s found a %s code (+%d)\n",
			s.ScannedAt.Format(time.TimeOnly), s.AvatarValue, s.PlayerName, codeTypeLabel(s.CodeType), s.Points)
	}
}

func (o *Output) printTeams(scores []response.TeamScore) {
	if len(scores) == 0 {
		fmt.Fprintln(o.w, "No teams")
		return
	}
	tw := o.table()
	fmt.Fprintln(tw, "RANK\tTEAM\tSCORE\tPLAYERS")
	for _, t := range scores {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", t.Rank, t.Name, t.Score, t.Players)
	}
	_ = tw.Flush()
}

func codeTypeLabel(t string) string {
	if t == "" {
		return "hidden"
	}
	return t
}
