// Package export renders an event's results as a spreadsheet for the operator.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mcoot/qhunt/internal/model"
	"github.com/mcoot/qhunt/internal/services/scoring"
	"github.com/mcoot/qhunt/internal/storage"
)

// Sheet names
const (
	SheetLeaderboard = "Leaderboard"
	SheetScans       = "Scans"
	SheetTeams       = "Teams"
)

// ContentType is the MIME type of the written workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Service builds results workbooks from the ledger
type Service struct {
	storage storage.Storage
	logger  *slog.Logger
}

// NewService creates a new export Service
func NewService(storage storage.Storage, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger.With(slog.String("component", "export")),
	}
}

// WriteResults writes the event's final standings, scan log and (in team mode)
// team standings to w as an xlsx workbook. Rankings are computed from the
// ledger rather than the realtime projection.
func (s *Service) WriteResults(ctx context.Context, eventID model.EventID, w io.Writer) error {
	event, err := s.storage.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	players, err := s.storage.ListPlayers(ctx, eventID)
	if err != nil {
		return err
	}
	scans, err := s.storage.ListEventScans(ctx, eventID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetLeaderboard); err != nil {
		return fmt.Errorf("export.WriteResults: %w", err)
	}

	names := make(map[model.PlayerID]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}

	if err := writeLeaderboard(f, scoring.RankLeaderboard(players), players); err != nil {
		return fmt.Errorf("export.WriteResults: %w", err)
	}
	if err := writeScans(f, scans, names); err != nil {
		return fmt.Errorf("export.WriteResults: %w", err)
	}
	if event.Game.Mode == model.ModeTeams {
		if err := writeTeams(f, scoring.AggregateTeams(event.Game.Teams, players)); err != nil {
			return fmt.Errorf("export.WriteResults: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export.WriteResults: %w", err)
	}

	s.logger.Info("results exported",
		slog.String("event_id", string(eventID)),
		slog.Int("players", len(players)),
		slog.Int("scans", len(scans)),
	)
	return nil
}

func writeLeaderboard(f *excelize.File, entries []model.LeaderboardEntry, players []*model.Player) error {
	assigned := make(map[model.PlayerID]model.CodeType, len(players))
	for _, p := range players {
		assigned[p.ID] = p.AssignedType
	}

	rows := [][]any{{"Rank", "Player", "Team", "Hunt type", "Score", "Scans", "Finished", "Game time (s)"}}
	for _, e := range entries {
		var gameTime any
		if e.GameTime != nil {
			gameTime = e.GameTime.Seconds()
		}
		rows = append(rows, []any{
			e.Rank, e.Name, string(e.TeamID), string(assigned[e.PlayerID]),
			e.Score, e.ScansCount, e.IsFinished, gameTime,
		})
	}
	return writeRows(f, SheetLeaderboard, rows)
}

func writeScans(f *excelize.File, scans []*model.Scan, names map[model.PlayerID]string) error {
	if _, err := f.NewSheet(SheetScans); err != nil {
		return err
	}
	rows := [][]any{{"Scanned at", "Player", "Code", "Type", "Points", "Method", "Since previous (ms)"}}
	for _, sc := range scans {
		rows = append(rows, []any{
			sc.ScannedAt.UTC().Format(time.RFC3339),
			names[sc.PlayerID],
			string(sc.CodeID),
			string(sc.CodeType),
			sc.Points,
			string(sc.Method),
			sc.ScanDuration.Milliseconds(),
		})
	}
	return writeRows(f, SheetScans, rows)
}

func writeTeams(f *excelize.File, scores []model.TeamScore) error {
	if _, err := f.NewSheet(SheetTeams); err != nil {
		return err
	}
	rows := [][]any{{"Rank", "Team", "Score", "Players"}}
	for _, ts := range scores {
		rows = append(rows, []any{ts.Rank, ts.Name, ts.Score, ts.Players})
	}
	return writeRows(f, SheetTeams, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return err
		}
	}
	return nil
}
