package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tatianab/mahes-quest/internal/models"
	"github.com/tatianab/mahes-quest/internal/progression"
)

const (
	StateKeyPrefix = "mahesAdventure_saveSlot"
	LeaderboardKey = "mahesAdventure_leaderboard"
)

// Saves reads and writes the two game records: the active state of one slot
// and the shared leaderboard.
type Saves struct {
	kv       KV
	stateKey string
	now      func() time.Time
	logger   *slog.Logger
}

// NewSaves binds a KV to a save slot. An empty slot means slot "1".
func NewSaves(kv KV, slot string, logger *slog.Logger) *Saves {
	if slot == "" {
		slot = "1"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Saves{
		kv:       kv,
		stateKey: StateKeyPrefix + slot,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock overrides the timestamp source.
func (s *Saves) WithClock(now func() time.Time) *Saves {
	cp := *s
	cp.now = now
	return &cp
}

// LoadState returns the saved state. Missing or unreadable records report false.
func (s *Saves) LoadState(ctx context.Context) (models.GameState, bool) {
	data, ok, err := s.kv.Get(ctx, s.stateKey)
	if err != nil {
		s.logger.Warn("load state failed", "key", s.stateKey, "error", err)
		return models.GameState{}, false
	}
	if !ok {
		return models.GameState{}, false
	}
	state, err := models.DecodeState(data)
	if err != nil {
		s.logger.Warn("discarding unreadable save", "key", s.stateKey, "error", err)
		return models.GameState{}, false
	}
	return progression.Restore(state), true
}

// SaveState stamps the state with the current time and writes it.
// The stamped state is returned even when the write fails.
func (s *Saves) SaveState(ctx context.Context, state models.GameState) (models.GameState, error) {
	stamped := state.Clone()
	stamped.Timestamp = s.now().UTC()
	data, err := models.EncodeState(stamped)
	if err != nil {
		return stamped, err
	}
	if err := s.kv.Set(ctx, s.stateKey, data); err != nil {
		return stamped, fmt.Errorf("save state: %w", err)
	}
	return stamped, nil
}

// LoadLeaderboard returns the stored entries, or an empty list on any failure.
func (s *Saves) LoadLeaderboard(ctx context.Context) []models.LeaderboardEntry {
	data, ok, err := s.kv.Get(ctx, LeaderboardKey)
	if err != nil {
		s.logger.Warn("load leaderboard failed", "error", err)
		return []models.LeaderboardEntry{}
	}
	if !ok {
		return []models.LeaderboardEntry{}
	}
	entries, err := models.DecodeLeaderboard(data)
	if err != nil {
		s.logger.Warn("discarding unreadable leaderboard", "error", err)
		return []models.LeaderboardEntry{}
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	return entries
}

func (s *Saves) SaveLeaderboard(ctx context.Context, entries []models.LeaderboardEntry) error {
	data, err := models.EncodeLeaderboard(entries)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, LeaderboardKey, data); err != nil {
		return fmt.Errorf("save leaderboard: %w", err)
	}
	return nil
}

// ClearState deletes the state record of the slot.
func (s *Saves) ClearState(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.stateKey); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	return nil
}

// ClearLeaderboard deletes the shared leaderboard record.
func (s *Saves) ClearLeaderboard(ctx context.Context) error {
	if err := s.kv.Delete(ctx, LeaderboardKey); err != nil {
		return fmt.Errorf("clear leaderboard: %w", err)
	}
	return nil
}
