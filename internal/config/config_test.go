package config

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/tatianab/mahes-quest/internal/session"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store != "file" || cfg.Slot != "1" || cfg.Addr != ":3001" || cfg.LeaderboardCapacity != 50 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Policy() != session.TimeoutCosmetic || cfg.EnforceKarmaGate {
		t.Fatalf("expected cosmetic timeouts and no karma gate")
	}
	if level, _ := cfg.Level(); level != slog.LevelInfo {
		t.Fatalf("expected info level, got %v", level)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAHES_STORE", "sqlite")
	t.Setenv("MAHES_TIMEOUT_POLICY", "forfeit")
	t.Setenv("MAHES_ENFORCE_KARMA_GATE", "true")
	t.Setenv("MAHES_SEED", "42")
	t.Setenv("MAHES_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store != "sqlite" || cfg.Policy() != session.TimeoutForfeit || !cfg.EnforceKarmaGate || cfg.Seed != 42 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if level, _ := cfg.Level(); level != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", level)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"MAHES_STORE", "redis", "MAHES_STORE"},
		{"MAHES_TIMEOUT_POLICY", "pause", "MAHES_TIMEOUT_POLICY"},
		{"MAHES_LOG_LEVEL", "loud", "MAHES_LOG_LEVEL"},
		{"MAHES_LEADERBOARD_CAPACITY", "0", "MAHES_LEADERBOARD_CAPACITY"},
		{"MAHES_SEED", "not-a-number", "parse env:"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in error, got %v", tt.want, err)
			}
		})
	}
}
