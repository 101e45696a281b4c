package models

import (
	"errors"
	"testing"
	"time"
)

func TestGameStateYAML(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	state := GameState{
		Version:   "1.0.0",
		Timestamp: start.Add(time.Minute),
		Player:    Player{Name: "Mahes", Avatar: "avatar2", Difficulty: DifficultyLegendary},
		Progress: Progress{
			CurrentRegion:       2,
			CompletedChallenges: []string{"q001", "q002"},
			UnlockedRegions:     []int{1, 2},
		},
		Stats: Stats{Score: 250, Karma: 65, StartTime: start, PlayTime: 0, HintsUsed: 1},
		Inventory: Inventory{
			Fragments: Fragments{
				Crown: []bool{true, false, true},
				Sash:  []bool{false, false},
			},
			Hints: 2,
		},
		Settings: Settings{MusicVolume: 0.7, SFXVolume: 0.8, Accessibility: map[string]any{"highContrast": true}},
	}

	data, err := EncodeState(state)
	if err != nil {
		t.Fatalf("Failed to encode state: %v", err)
	}

	got, err := DecodeState(data)
	if err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}

	if got.Player != state.Player {
		t.Errorf("Expected player %+v, got %+v", state.Player, got.Player)
	}
	if !got.Stats.StartTime.Equal(start) {
		t.Errorf("Expected start time %v, got %v", start, got.Stats.StartTime)
	}
	if len(got.Progress.CompletedChallenges) != 2 || got.Progress.CompletedChallenges[1] != "q002" {
		t.Errorf("Unexpected completed challenges %v", got.Progress.CompletedChallenges)
	}
	if len(got.Inventory.Fragments.Crown) != 3 || !got.Inventory.Fragments.Crown[2] {
		t.Errorf("Unexpected crown track %v", got.Inventory.Fragments.Crown)
	}
	if got.Settings.Accessibility["highContrast"] != true {
		t.Errorf("Expected accessibility flag to survive, got %v", got.Settings.Accessibility)
	}
}

func TestDecodeStateRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "{{{not yaml", "player: {name: x}"} {
		if _, err := DecodeState([]byte(input)); err == nil {
			t.Errorf("Expected error decoding %q", input)
		}
	}
}

func TestPlayerValidate(t *testing.T) {
	tests := []struct {
		name   string
		player Player
		want   error
	}{
		{"ok", Player{Name: "Mahes_01", Avatar: "avatar1", Difficulty: DifficultyAdventure}, nil},
		{"spaces ok", Player{Name: "Sri Mahes", Avatar: "avatar5", Difficulty: DifficultyCasual}, nil},
		{"too short", Player{Name: "ab", Avatar: "avatar1", Difficulty: DifficultyAdventure}, ErrInvalidName},
		{"short after trim", Player{Name: "  ab  ", Avatar: "avatar1", Difficulty: DifficultyAdventure}, ErrInvalidName},
		{"too long", Player{Name: "abcdefghijklmnop", Avatar: "avatar1", Difficulty: DifficultyAdventure}, ErrInvalidName},
		{"bad charset", Player{Name: "mahes!", Avatar: "avatar1", Difficulty: DifficultyAdventure}, ErrInvalidName},
		{"bad avatar", Player{Name: "Mahes", Avatar: "avatar9", Difficulty: DifficultyAdventure}, ErrInvalidAvatar},
		{"bad difficulty", Player{Name: "Mahes", Avatar: "avatar1", Difficulty: "nightmare"}, ErrInvalidDifficulty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.player.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDifficultyTimeLimit(t *testing.T) {
	if got := DifficultyCasual.TimeLimit(60); got != 90 {
		t.Errorf("casual: expected 90, got %d", got)
	}
	if got := DifficultyAdventure.TimeLimit(60); got != 60 {
		t.Errorf("adventure: expected 60, got %d", got)
	}
	if got := DifficultyLegendary.TimeLimit(60); got != 45 {
		t.Errorf("legendary: expected 45, got %d", got)
	}
	if got := DifficultyLegendary.TimeLimit(0); got != 0 {
		t.Errorf("untimed should stay untimed, got %d", got)
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	s := GameState{
		Progress:  Progress{CompletedChallenges: []string{"q001"}, UnlockedRegions: []int{1}},
		Inventory: Inventory{Fragments: Fragments{Crown: []bool{false}, Sash: []bool{false}}},
		Settings:  Settings{Accessibility: map[string]any{}},
	}
	c := s.Clone()
	c.Progress.CompletedChallenges[0] = "changed"
	c.Inventory.Fragments.Crown[0] = true
	c.Settings.Accessibility["k"] = 1

	if s.Progress.CompletedChallenges[0] != "q001" {
		t.Errorf("completed challenges aliased")
	}
	if s.Inventory.Fragments.Crown[0] {
		t.Errorf("crown track aliased")
	}
	if _, ok := s.Settings.Accessibility["k"]; ok {
		t.Errorf("accessibility map aliased")
	}
}
