package main

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tatianab/mahes-quest/internal/catalog"
	"github.com/tatianab/mahes-quest/internal/config"
	"github.com/tatianab/mahes-quest/internal/narrator"
	"github.com/tatianab/mahes-quest/internal/server"
	"github.com/tatianab/mahes-quest/internal/session"
	"github.com/tatianab/mahes-quest/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, err := store.Open(cfg.Store, cfg.SaveDir, cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Store, "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	cat, err := catalog.Load(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	if err != nil {
		slog.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}

	narr := narrator.New(nil, logger)
	if cfg.GeminiAPIKey != "" {
		gem, err := narrator.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			slog.Error("failed to create narrator", "error", err)
			os.Exit(1)
		}
		defer gem.Close()
		narr = narrator.New(gem, logger)
	}

	srv := server.New(server.Config{
		Catalog: cat,
		KV:      kv,
		Session: session.Options{
			TimeoutPolicy:    cfg.Policy(),
			EnforceKarmaGate: cfg.EnforceKarmaGate,
		},
		LeaderboardCapacity: cfg.LeaderboardCapacity,
		Narrator:            narr,
		Logger:              logger,
		Seed:                cfg.Seed,
	})

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Handler(),
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr, "store", cfg.Store, "narrator", narr.Enabled())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
