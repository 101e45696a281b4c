package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/tatianab/mahes-quest/internal/catalog"
	"github.com/tatianab/mahes-quest/internal/config"
	"github.com/tatianab/mahes-quest/internal/leaderboard"
	"github.com/tatianab/mahes-quest/internal/models"
	"github.com/tatianab/mahes-quest/internal/narrator"
	"github.com/tatianab/mahes-quest/internal/session"
	"github.com/tatianab/mahes-quest/internal/store"
)

const maxTurns = 200

// chooser picks an option id for the current challenge.
type chooser func(ctx context.Context, q models.Challenge) string

func main() {
	strategy := flag.String("strategy", "best", "how the player answers: best, worst, random or gemini")
	difficulty := flag.String("difficulty", "adventure", "player difficulty")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	cat, err := catalog.Load(rng)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	var gem *narrator.Gemini
	if cfg.GeminiAPIKey != "" {
		gem, err = narrator.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("Failed to create Gemini client: %v", err)
		}
		defer gem.Close()
	}

	choose, err := pickChooser(*strategy, rng, gem)
	if err != nil {
		log.Fatal(err)
	}

	saves := store.NewSaves(store.NewMemoryKV(), "sim", logger)
	sess := session.New(cat, saves, leaderboard.NewRanker(saves, cfg.LeaderboardCapacity), session.Options{
		TimeoutPolicy:    cfg.Policy(),
		EnforceKarmaGate: cfg.EnforceKarmaGate,
		Logger:           logger,
	})

	fmt.Printf("--- Simulating a run (strategy=%s, seed=%d) ---\n", *strategy, seed)
	must(sess.Start(ctx))
	must(sess.SubmitProfile(ctx, models.Player{Name: "Simulated Mahes", Avatar: "avatar1", Difficulty: models.Difficulty(*difficulty)}))

	for turn := 1; turn <= maxTurns && sess.Phase() != session.PhaseEnding; turn++ {
		v := sess.View()
		for _, n := range v.Notices {
			fmt.Printf("  * %s\n", n.Message)
		}
		switch v.Phase {
		case session.PhaseMap:
			region := nextRegion(v.Regions)
			fmt.Printf("--- Turn %d: entering region %d ---\n", turn, region)
			must(sess.SelectRegion(ctx, region))
		case session.PhaseChallenge:
			q, ok := cat.ByID(v.Challenge.ID)
			if !ok {
				log.Fatalf("challenge %s missing from catalog", v.Challenge.ID)
			}
			id := choose(ctx, q)
			fmt.Printf("--- Turn %d: %s ---\n%s\nPlayer answers: %s\n", turn, q.Title, q.Question, id)
			if err := sess.SubmitAnswer(ctx, id); err != nil {
				fmt.Printf("Answer rejected (%v), falling back to %s\n", err, q.Options[0].ID)
				must(sess.SubmitAnswer(ctx, q.Options[0].ID))
			}
		case session.PhaseFeedback:
			fb := v.Feedback
			fmt.Printf("Outcome: %s (score %+d, karma %+d)\n", fb.Effect.Feedback, fb.Effect.Score, fb.Effect.Karma)
			if fb.Effect.Item != "" {
				fmt.Printf("FOUND: %s\n", fb.Effect.Item)
			}
			st := v.State.Stats
			fmt.Printf("Stats: Score=%d, Karma=%d\n\n", st.Score, st.Karma)
			must(sess.Continue(ctx))
		default:
			log.Fatalf("unexpected phase %s", v.Phase)
		}
	}

	if sess.Phase() != session.PhaseEnding {
		fmt.Printf("Run did not finish within %d turns.\n", maxTurns)
		return
	}
	v := sess.View()
	text := narrator.Describe(v.Ending.Ending)
	fmt.Printf("Game Ended: %s [%s]\n", text.Title, text.Badge)
	fmt.Printf("Score=%d Karma=%d Crown=%d Sash=%d PlayTime=%s\n",
		v.Ending.Stats.Score, v.Ending.Stats.Karma,
		v.Ending.Fragments.Crown, v.Ending.Fragments.Sash,
		narrator.FormatPlayTime(v.Ending.Stats.PlayTime))

	var gen narrator.Generator
	if gem != nil {
		gen = gem
	}
	fmt.Println(narrator.New(gen, logger).Epilogue(ctx, v.State, v.Ending.Ending))
}

// nextRegion returns the first unlocked region with challenges left, or the
// last unlocked region so an exhausted one gets completed.
func nextRegion(regions []session.RegionStatus) int {
	last := 0
	for _, r := range regions {
		if !r.Unlocked {
			continue
		}
		if r.Completed < r.Total {
			return r.ID
		}
		last = r.ID
	}
	return last
}

func pickChooser(strategy string, rng *rand.Rand, gem *narrator.Gemini) (chooser, error) {
	switch strategy {
	case "best":
		return func(_ context.Context, q models.Challenge) string { return ranked(q, 1) }, nil
	case "worst":
		return func(_ context.Context, q models.Challenge) string { return ranked(q, -1) }, nil
	case "random":
		return func(_ context.Context, q models.Challenge) string {
			return q.Options[rng.IntN(len(q.Options))].ID
		}, nil
	case "gemini":
		if gem == nil {
			return nil, fmt.Errorf("strategy gemini needs GEMINI_API_KEY")
		}
		return func(ctx context.Context, q models.Challenge) string { return askGemini(ctx, gem, q) }, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
}

// ranked picks the option with the highest (sign 1) or lowest (sign -1)
// combined score and karma.
func ranked(q models.Challenge, sign int) string {
	best := q.Options[0]
	for _, o := range q.Options[1:] {
		if sign*(o.Effect.Score+o.Effect.Karma) > sign*(best.Effect.Score+best.Effect.Karma) {
			best = o
		}
	}
	return best.ID
}

func askGemini(ctx context.Context, gem *narrator.Gemini, q models.Challenge) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are playing a quiz adventure game.\n%s\n%s\n\nOptions:\n", q.Scenario, q.Question)
	for _, o := range q.Options {
		fmt.Fprintf(&b, "%s) %s\n", o.ID, o.Text)
	}
	b.WriteString("\nWhich option do you choose? Return ONLY the option letter.")

	resp, err := gem.Generate(ctx, b.String())
	if err != nil {
		return q.Options[0].ID
	}
	return strings.ToLower(strings.Trim(strings.TrimSpace(resp), ".)"))
}

func must(err error) {
	if err != nil {
		log.Fatalf("simulation failed: %v", err)
	}
}
