package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/tatianab/mahes-quest/internal/catalog"
	"github.com/tatianab/mahes-quest/internal/config"
	"github.com/tatianab/mahes-quest/internal/leaderboard"
	"github.com/tatianab/mahes-quest/internal/narrator"
	"github.com/tatianab/mahes-quest/internal/session"
	"github.com/tatianab/mahes-quest/internal/store"
	"github.com/tatianab/mahes-quest/internal/tui"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the TUI, so logs go to a file.
	logger, closeLog, err := openLog(cfg)
	if err != nil {
		fmt.Printf("Error opening log: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	kv, err := store.Open(cfg.Store, cfg.SaveDir, cfg.SQLitePath)
	if err != nil {
		fmt.Printf("Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer kv.Close()

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	}
	cat, err := catalog.Load(rng)
	if err != nil {
		fmt.Printf("Error loading catalog: %v\n", err)
		os.Exit(1)
	}

	saves := store.NewSaves(kv, cfg.Slot, logger)
	sess := session.New(cat, saves, leaderboard.NewRanker(saves, cfg.LeaderboardCapacity), session.Options{
		TimeoutPolicy:    cfg.Policy(),
		EnforceKarmaGate: cfg.EnforceKarmaGate,
		Logger:           logger,
	})

	narr := narrator.New(nil, logger)
	if cfg.GeminiAPIKey != "" {
		gem, err := narrator.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			fmt.Printf("Error creating narrator: %v\n", err)
			os.Exit(1)
		}
		defer gem.Close()
		narr = narrator.New(gem, logger)
	}

	logger.Info("game starting", "store", cfg.Store, "slot", cfg.Slot, "timeout_policy", cfg.TimeoutPolicy, "narrator", narr.Enabled())
	if err := tui.Run(ctx, sess, narr); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

func openLog(cfg *config.Config) (*slog.Logger, func(), error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, func() { f.Close() }, nil
}
