package models

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var errEmptyRecord = errors.New("empty record")

// EncodeState serializes a game state for the save record.
func EncodeState(s GameState) ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// DecodeState parses a save record. A record without a version tag is rejected.
func DecodeState(data []byte) (GameState, error) {
	if len(data) == 0 {
		return GameState{}, fmt.Errorf("decode state: %w", errEmptyRecord)
	}
	var s GameState
	if err := yaml.Unmarshal(data, &s); err != nil {
		return GameState{}, fmt.Errorf("decode state: %w", err)
	}
	if s.Version == "" {
		return GameState{}, fmt.Errorf("decode state: missing version")
	}
	return s, nil
}

// EncodeLeaderboard serializes the leaderboard record.
func EncodeLeaderboard(entries []LeaderboardEntry) ([]byte, error) {
	if entries == nil {
		entries = []LeaderboardEntry{}
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode leaderboard: %w", err)
	}
	return data, nil
}

// DecodeLeaderboard parses the leaderboard record.
func DecodeLeaderboard(data []byte) ([]LeaderboardEntry, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("decode leaderboard: %w", errEmptyRecord)
	}
	var entries []LeaderboardEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode leaderboard: %w", err)
	}
	return entries, nil
}
