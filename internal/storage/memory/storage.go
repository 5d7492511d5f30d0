package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/qhunt/internal/model"
	"github.com/mcoot/qhunt/internal/storage"
)

// Storage is an in-memory implementation of the authoritative store.
// Records are copied on the way in and out so callers never share state with it.
type Storage struct {
	mu sync.RWMutex

	events  map[model.EventID]*model.Event
	players map[playerKey]*model.Player
	scans   map[model.EventID][]*model.Scan
	scanned map[scanKey]bool
}

type playerKey struct {
	eventID  model.EventID
	playerID model.PlayerID
}

type scanKey struct {
	playerKey
	codeValue string
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		events:  make(map[model.EventID]*model.Event),
		players: make(map[playerKey]*model.Player),
		scans:   make(map[model.EventID][]*model.Scan),
		scanned: make(map[scanKey]bool),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Event operations

func (s *Storage) CreateEvent(ctx context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; ok {
		return model.ErrEventExists
	}
	s.events[event.ID] = copyEvent(event)
	return nil
}

func (s *Storage) GetEvent(ctx context.Context, id model.EventID) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	if !ok {
		return nil, model.ErrEventNotFound
	}
	return copyEvent(event), nil
}

func (s *Storage) UpdateGameConfig(ctx context.Context, id model.EventID, expectedVersion int64, cfg model.GameConfig, at time.Time) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return nil, model.ErrEventNotFound
	}
	if event.Game.Version != expectedVersion {
		return nil, model.ErrConfigConflict
	}
	event.Game = copyConfig(cfg)
	event.UpdatedAt = at
	return copyEvent(event), nil
}

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[player.EventID]; !ok {
		return model.ErrEventNotFound
	}
	key := playerKey{player.EventID, player.ID}
	if _, ok := s.players[key]; ok {
		return model.ErrPlayerExists
	}
	s.players[key] = copyPlayer(player)
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, eventID model.EventID, playerID model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[playerKey{eventID, playerID}]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return copyPlayer(player), nil
}

func (s *Storage) ListPlayers(ctx context.Context, eventID model.EventID) ([]*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var players []*model.Player
	for key, p := range s.players {
		if key.eventID == eventID {
			players = append(players, copyPlayer(p))
		}
	}
	sort.Slice(players, func(i, j int) bool {
		if !players[i].RegisteredAt.Equal(players[j].RegisteredAt) {
			return players[i].RegisteredAt.Before(players[j].RegisteredAt)
		}
		return players[i].ID < players[j].ID
	})
	return players, nil
}

func (s *Storage) UpdatePlayerProfile(ctx context.Context, eventID model.EventID, playerID model.PlayerID, profile model.Profile) (*model.Player, error) {
	return s.mutatePlayer(eventID, playerID, func(p *model.Player) {
		p.Name = profile.Name
		p.AvatarType = profile.AvatarType
		p.AvatarValue = profile.AvatarValue
	})
}

func (s *Storage) StartPlayer(ctx context.Context, eventID model.EventID, playerID model.PlayerID, at time.Time) (*model.Player, error) {
	return s.mutatePlayer(eventID, playerID, func(p *model.Player) {
		if p.GameStartedAt == nil {
			p.GameStartedAt = &at
		}
	})
}

func (s *Storage) FinishPlayer(ctx context.Context, eventID model.EventID, playerID model.PlayerID, end time.Time) (*model.Player, error) {
	return s.mutatePlayer(eventID, playerID, func(p *model.Player) {
		if !p.IsFinished {
			p.FinishAt(end)
		}
	})
}

func (s *Storage) mutatePlayer(eventID model.EventID, playerID model.PlayerID, fn func(p *model.Player)) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[playerKey{eventID, playerID}]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	fn(player)
	return copyPlayer(player), nil
}

// Ledger operations

func (s *Storage) CommitScan(ctx context.Context, commit model.ScanCommit) (*model.Player, error) {
	scan := commit.Scan

	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[scan.EventID]
	if !ok {
		return nil, model.ErrEventNotFound
	}
	if event.Game.Version != commit.ConfigVersion {
		return nil, model.ErrConfigConflict
	}
	pk := playerKey{scan.EventID, scan.PlayerID}
	player, ok := s.players[pk]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	if player.IsFinished {
		return nil, model.ErrPlayerFinished
	}
	sk := scanKey{pk, model.NormalizeCodeValue(scan.CodeValue)}
	if s.scanned[sk] {
		return nil, model.ErrAlreadyScanned
	}

	stored := scan
	s.scans[scan.EventID] = append(s.scans[scan.EventID], &stored)
	if scan.IsValid {
		s.scanned[sk] = true
	}

	score, count := 0, 0
	for _, sc := range s.scans[scan.EventID] {
		if sc.PlayerID == scan.PlayerID && sc.IsValid {
			score += sc.Points
			count++
		}
	}
	player.LastScanAt = &stored.ScannedAt
	player.ApplyTotals(score, count, commit.CompletionTarget, scan.ScannedAt)

	return copyPlayer(player), nil
}

func (s *Storage) ListScans(ctx context.Context, eventID model.EventID, playerID model.PlayerID) ([]*model.Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var scans []*model.Scan
	for _, sc := range s.scans[eventID] {
		if sc.PlayerID == playerID {
			c := *sc
			scans = append(scans, &c)
		}
	}
	return scans, nil
}

func (s *Storage) ListEventScans(ctx context.Context, eventID model.EventID) ([]*model.Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scans := make([]*model.Scan, 0, len(s.scans[eventID]))
	for _, sc := range s.scans[eventID] {
		c := *sc
		scans = append(scans, &c)
	}
	return scans, nil
}

func (s *Storage) DeleteEventData(ctx context.Context, eventID model.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.players {
		if key.eventID == eventID {
			delete(s.players, key)
		}
	}
	for key := range s.scanned {
		if key.eventID == eventID {
			delete(s.scanned, key)
		}
	}
	delete(s.scans, eventID)
	return nil
}

func copyEvent(e *model.Event) *model.Event {
	c := *e
	c.Game = copyConfig(e.Game)
	return &c
}

func copyConfig(cfg model.GameConfig) model.GameConfig {
	c := cfg
	c.AvailableCodeTypes = append([]model.CodeType(nil), cfg.AvailableCodeTypes...)
	c.Teams = append([]model.Team(nil), cfg.Teams...)
	c.Codes = append([]model.Code(nil), cfg.Codes...)
	return c
}

func copyPlayer(p *model.Player) *model.Player {
	c := *p
	return &c
}
