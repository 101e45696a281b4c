// Package leaderboard ranks completed runs.
package leaderboard

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/tatianab/mahes-quest/internal/models"
)

// DefaultCapacity is the number of entries kept.
const DefaultCapacity = 50

// Store is the persistence the ranker needs.
type Store interface {
	LoadLeaderboard(ctx context.Context) []models.LeaderboardEntry
	SaveLeaderboard(ctx context.Context, entries []models.LeaderboardEntry) error
	ClearLeaderboard(ctx context.Context) error
}

// Ranker records runs on the leaderboard. It is safe for concurrent use by
// sessions sharing one store.
type Ranker struct {
	mu       sync.Mutex
	store    Store
	capacity int
	newID    func() string
}

func NewRanker(store Store, capacity int) *Ranker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ranker{
		store:    store,
		capacity: capacity,
		newID:    func() string { return uuid.New().String() },
	}
}

// List reads the stored entries.
func (r *Ranker) List(ctx context.Context) []models.LeaderboardEntry {
	return r.store.LoadLeaderboard(ctx)
}

// Record stores a run summary under a fresh id and returns the ranked list.
// The returned list reflects the new ranking even if persisting it failed.
func (r *Ranker) Record(ctx context.Context, entry models.LeaderboardEntry) ([]models.LeaderboardEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = r.newID()
	entries := append(r.store.LoadLeaderboard(ctx), entry)
	ranked := Rank(entries, r.capacity)
	if err := r.store.SaveLeaderboard(ctx, ranked); err != nil {
		return ranked, err
	}
	return ranked, nil
}

// Clear deletes every entry. It waits for a Record in flight, so a cleared
// board is never written back.
func (r *Ranker) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.ClearLeaderboard(ctx)
}

// Rank orders entries by score, highest first, keeping insertion order among
// equal scores, and truncates to capacity.
func Rank(entries []models.LeaderboardEntry, capacity int) []models.LeaderboardEntry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b models.LeaderboardEntry) int {
		return b.Score - a.Score
	})
	if capacity >= 0 && len(out) > capacity {
		out = out[:capacity]
	}
	return out
}
