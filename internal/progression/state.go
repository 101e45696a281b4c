// Package progression holds the pure transitions over a game state.
//
// Every function takes a state value and returns a new one; the input is never
// modified and the result shares no slices or maps with it.
package progression

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tatianab/mahes-quest/internal/models"
)

const (
	SchemaVersion = "1.0.0"

	InitialKarma = 50
	MinKarma     = 0
	MaxKarma     = 100

	CrownSlots   = 10
	SashSlots    = 9
	InitialHints = 3

	FirstRegion = 1

	HintItem = "hint"
)

// NewGameState returns the state of a fresh run.
func NewGameState(now time.Time) models.GameState {
	return models.GameState{
		Version:   SchemaVersion,
		Timestamp: now.UTC(),
		Player: models.Player{
			Avatar:     models.Avatars[0],
			Difficulty: models.DifficultyAdventure,
		},
		Progress: models.Progress{
			CurrentRegion:       FirstRegion,
			CompletedChallenges: []string{},
			UnlockedRegions:     []int{FirstRegion},
		},
		Stats: models.Stats{
			Karma:     InitialKarma,
			StartTime: now.UTC(),
		},
		Inventory: models.Inventory{
			Fragments: models.Fragments{
				Crown: make([]bool, CrownSlots),
				Sash:  make([]bool, SashSlots),
			},
			Hints:        InitialHints,
			SpecialItems: []string{},
		},
		Settings: models.Settings{
			MusicVolume:   0.7,
			SFXVolume:     0.8,
			Accessibility: map[string]any{},
		},
	}
}

// WithPlayer sets the profile, starts the run clock and applies the tier's hint allowance.
func WithPlayer(s models.GameState, p models.Player, now time.Time) models.GameState {
	next := s.Clone()
	next.Player = p
	next.Stats.StartTime = now.UTC()
	next.Inventory.Hints = p.Difficulty.HintAllowance()
	return next
}

func WithScoreDelta(s models.GameState, delta int) models.GameState {
	next := s.Clone()
	next.Stats.Score = max(0, s.Stats.Score+delta)
	return next
}

func WithKarmaDelta(s models.GameState, delta int) models.GameState {
	next := s.Clone()
	next.Stats.Karma = min(MaxKarma, max(MinKarma, s.Stats.Karma+delta))
	return next
}

// WithFragmentGranted marks the slot named by a fragment_<kind>_<n> token.
// Unknown kinds, malformed tokens and out-of-range slots leave the state as is.
func WithFragmentGranted(s models.GameState, token string) models.GameState {
	kind, slot, ok := parseFragment(token)
	if !ok {
		return s.Clone()
	}
	next := s.Clone()
	var track []bool
	switch kind {
	case "crown":
		track = next.Inventory.Fragments.Crown
	case "sash":
		track = next.Inventory.Fragments.Sash
	}
	if slot < 1 || slot > len(track) {
		return next
	}
	track[slot-1] = true
	return next
}

func parseFragment(token string) (kind string, slot int, ok bool) {
	parts := strings.Split(token, "_")
	if len(parts) != 3 || parts[0] != "fragment" {
		return "", 0, false
	}
	if parts[1] != "crown" && parts[1] != "sash" {
		return "", 0, false
	}
	digits := parts[2]
	if digits == "" || digits[0] == '0' || strings.TrimLeft(digits, "0123456789") != "" {
		return "", 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return "", 0, false
	}
	return parts[1], n, true
}

func WithHintGranted(s models.GameState) models.GameState {
	next := s.Clone()
	next.Inventory.Hints++
	return next
}

// WithHintConsumed spends one hint. With none left the state is returned unchanged.
func WithHintConsumed(s models.GameState) models.GameState {
	next := s.Clone()
	if s.Inventory.Hints <= 0 {
		return next
	}
	next.Inventory.Hints--
	next.Stats.HintsUsed++
	return next
}

// WithItemGranted dispatches an effect item: fragment tokens fill a slot, "hint" adds a hint.
// Anything else is ignored.
func WithItemGranted(s models.GameState, item string) models.GameState {
	switch {
	case item == "":
		return s.Clone()
	case item == HintItem:
		return WithHintGranted(s)
	case strings.HasPrefix(item, "fragment_"):
		return WithFragmentGranted(s, item)
	default:
		return s.Clone()
	}
}

// WithChallengeCompleted records a challenge once.
func WithChallengeCompleted(s models.GameState, challengeID string) models.GameState {
	next := s.Clone()
	if !slices.Contains(next.Progress.CompletedChallenges, challengeID) {
		next.Progress.CompletedChallenges = append(next.Progress.CompletedChallenges, challengeID)
	}
	return next
}

func WithRegionUnlocked(s models.GameState, region int) models.GameState {
	next := s.Clone()
	if !slices.Contains(next.Progress.UnlockedRegions, region) {
		next.Progress.UnlockedRegions = append(next.Progress.UnlockedRegions, region)
	}
	return next
}

func WithCurrentRegion(s models.GameState, region int) models.GameState {
	next := s.Clone()
	next.Progress.CurrentRegion = region
	return next
}

// WithPlayTime stores the elapsed run time in whole seconds.
func WithPlayTime(s models.GameState, now time.Time) models.GameState {
	next := s.Clone()
	elapsed := int(now.Sub(s.Stats.StartTime) / time.Second)
	next.Stats.PlayTime = max(0, elapsed)
	return next
}

// ApplyEffect applies an answered option's effect and marks the challenge completed.
func ApplyEffect(s models.GameState, challengeID string, e models.Effect) models.GameState {
	next := WithScoreDelta(s, e.Score)
	next = WithKarmaDelta(next, e.Karma)
	next = WithItemGranted(next, e.Item)
	return WithChallengeCompleted(next, challengeID)
}

func IsCompleted(s models.GameState, challengeID string) bool {
	return slices.Contains(s.Progress.CompletedChallenges, challengeID)
}

func IsUnlocked(s models.GameState, region int) bool {
	return slices.Contains(s.Progress.UnlockedRegions, region)
}

func CountFragments(s models.GameState) models.FragmentCounts {
	crown := countTrue(s.Inventory.Fragments.Crown)
	sash := countTrue(s.Inventory.Fragments.Sash)
	return models.FragmentCounts{Crown: crown, Sash: sash, Total: crown + sash}
}

// HasAllFragments reports whether every slot of both tracks is collected.
// A track of the wrong length is never complete.
func HasAllFragments(s models.GameState) bool {
	crown, sash := s.Inventory.Fragments.Crown, s.Inventory.Fragments.Sash
	return len(crown) == CrownSlots && !slices.Contains(crown, false) &&
		len(sash) == SashSlots && !slices.Contains(sash, false)
}

// Restore fits a loaded state to the current record layout. Fragment tracks
// are padded with empty slots or cut to their fixed lengths, missing lists
// become empty, the first region is unlocked and hints are never negative.
func Restore(s models.GameState) models.GameState {
	next := s.Clone()
	next.Inventory.Fragments.Crown = fitTrack(next.Inventory.Fragments.Crown, CrownSlots)
	next.Inventory.Fragments.Sash = fitTrack(next.Inventory.Fragments.Sash, SashSlots)
	if next.Progress.CompletedChallenges == nil {
		next.Progress.CompletedChallenges = []string{}
	}
	if !slices.Contains(next.Progress.UnlockedRegions, FirstRegion) {
		next.Progress.UnlockedRegions = append([]int{FirstRegion}, next.Progress.UnlockedRegions...)
	}
	if next.Progress.CurrentRegion == 0 {
		next.Progress.CurrentRegion = FirstRegion
	}
	if next.Inventory.SpecialItems == nil {
		next.Inventory.SpecialItems = []string{}
	}
	next.Inventory.Hints = max(next.Inventory.Hints, 0)
	return next
}

func fitTrack(track []bool, size int) []bool {
	out := make([]bool, size)
	copy(out, track)
	return out
}

func countTrue(track []bool) int {
	n := 0
	for _, v := range track {
		if v {
			n++
		}
	}
	return n
}
