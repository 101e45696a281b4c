package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Difficulty is the tier a player picks at setup.
type Difficulty string

const (
	DifficultyCasual    Difficulty = "casual"
	DifficultyAdventure Difficulty = "adventure"
	DifficultyLegendary Difficulty = "legendary"
)

// HintAllowance is the number of hints a fresh run starts with at this tier.
func (d Difficulty) HintAllowance() int {
	switch d {
	case DifficultyCasual:
		return 5
	case DifficultyLegendary:
		return 1
	default:
		return 3
	}
}

// TimeLimit scales a challenge's base time limit for this tier. Untimed stays untimed.
func (d Difficulty) TimeLimit(base int) int {
	if base <= 0 {
		return 0
	}
	switch d {
	case DifficultyCasual:
		return base * 3 / 2
	case DifficultyLegendary:
		return (base*3 + 2) / 4
	default:
		return base
	}
}

// Avatars lists the selectable avatar identifiers.
var Avatars = []string{"avatar1", "avatar2", "avatar3", "avatar4", "avatar5"}

var (
	ErrInvalidName       = errors.New("invalid player name")
	ErrInvalidAvatar     = errors.New("invalid avatar")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
)

var playerNameRe = regexp.MustCompile(`^[A-Za-z0-9_ ]+$`)

// Player is the identity chosen at setup.
type Player struct {
	Name       string     `yaml:"name" json:"name"`
	Avatar     string     `yaml:"avatar" json:"avatar"`
	Difficulty Difficulty `yaml:"difficulty" json:"difficulty"`
}

// Normalize trims the display name.
func (p Player) Normalize() Player {
	p.Name = strings.TrimSpace(p.Name)
	return p
}

// Validate checks the name, avatar and difficulty of a normalized player.
func (p Player) Validate() error {
	name := strings.TrimSpace(p.Name)
	if len(name) < 3 {
		return fmt.Errorf("%w: must be at least 3 characters", ErrInvalidName)
	}
	if len(name) > 15 {
		return fmt.Errorf("%w: must be at most 15 characters", ErrInvalidName)
	}
	if !playerNameRe.MatchString(name) {
		return fmt.Errorf("%w: only letters, digits, underscore and space are allowed", ErrInvalidName)
	}
	known := false
	for _, a := range Avatars {
		if a == p.Avatar {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %q", ErrInvalidAvatar, p.Avatar)
	}
	switch p.Difficulty {
	case DifficultyCasual, DifficultyAdventure, DifficultyLegendary:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDifficulty, p.Difficulty)
	}
	return nil
}

// Progress tracks where the player is on the map.
type Progress struct {
	CurrentRegion       int      `yaml:"current_region" json:"currentRegion"`
	CompletedChallenges []string `yaml:"completed_challenges" json:"completedChallenges"`
	UnlockedRegions     []int    `yaml:"unlocked_regions" json:"unlockedRegions"`
}

// Stats holds the scored values of a run.
type Stats struct {
	Score     int       `yaml:"score" json:"score"`
	Karma     int       `yaml:"karma" json:"karma"`
	StartTime time.Time `yaml:"start_time" json:"startTime"`
	PlayTime  int       `yaml:"play_time" json:"playTime"` // seconds
	HintsUsed int       `yaml:"hints_used" json:"hintsUsed"`
}

// Fragments are the two collectible tracks.
type Fragments struct {
	Crown []bool `yaml:"crown" json:"crown"`
	Sash  []bool `yaml:"sash" json:"sash"`
}

// FragmentCounts is the number of collected slots per track.
type FragmentCounts struct {
	Crown int `yaml:"crown" json:"crown"`
	Sash  int `yaml:"sash" json:"sash"`
	Total int `yaml:"total,omitempty" json:"total,omitempty"`
}

type Inventory struct {
	Fragments    Fragments `yaml:"fragments" json:"fragments"`
	Hints        int       `yaml:"hints" json:"hints"`
	SpecialItems []string  `yaml:"special_items" json:"specialItems"`
}

type Settings struct {
	MusicVolume   float64        `yaml:"music_volume" json:"musicVolume"`
	SFXVolume     float64        `yaml:"sfx_volume" json:"sfxVolume"`
	Accessibility map[string]any `yaml:"accessibility" json:"accessibility"`
}

// GameState is the aggregate persisted as one record.
type GameState struct {
	Version   string    `yaml:"version" json:"version"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	Player    Player    `yaml:"player" json:"player"`
	Progress  Progress  `yaml:"progress" json:"progress"`
	Stats     Stats     `yaml:"stats" json:"stats"`
	Inventory Inventory `yaml:"inventory" json:"inventory"`
	Settings  Settings  `yaml:"settings" json:"settings"`
}

// Clone returns a deep copy that shares no slices or maps with s.
func (s GameState) Clone() GameState {
	c := s
	c.Progress.CompletedChallenges = cloneSlice(s.Progress.CompletedChallenges)
	c.Progress.UnlockedRegions = cloneSlice(s.Progress.UnlockedRegions)
	c.Inventory.Fragments.Crown = cloneSlice(s.Inventory.Fragments.Crown)
	c.Inventory.Fragments.Sash = cloneSlice(s.Inventory.Fragments.Sash)
	c.Inventory.SpecialItems = cloneSlice(s.Inventory.SpecialItems)
	if s.Settings.Accessibility != nil {
		c.Settings.Accessibility = make(map[string]any, len(s.Settings.Accessibility))
		for k, v := range s.Settings.Accessibility {
			c.Settings.Accessibility[k] = v
		}
	}
	return c
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// HasProfile reports whether a player has been set up.
func (s GameState) HasProfile() bool {
	return s.Player.Name != ""
}

// ChallengeType tags the flavor of a challenge.
type ChallengeType string

const (
	ChallengePuzzle ChallengeType = "puzzle"
	ChallengeMoral  ChallengeType = "moral"
	ChallengeTrivia ChallengeType = "trivia"
	ChallengeEvent  ChallengeType = "event"
)

// Effect is what choosing an option does to the run.
type Effect struct {
	Score    int    `yaml:"score" json:"score"`
	Karma    int    `yaml:"karma" json:"karma"`
	Item     string `yaml:"item,omitempty" json:"item,omitempty"`
	Feedback string `yaml:"feedback" json:"feedback"`
}

// Option is one answer of a challenge. IsCorrect is cosmetic; outcomes come from Effect.
type Option struct {
	ID        string `yaml:"id" json:"id"`
	Text      string `yaml:"text" json:"text"`
	IsCorrect bool   `yaml:"is_correct" json:"isCorrect"`
	Effect    Effect `yaml:"effect" json:"effect"`
}

// Challenge is a single authored question.
type Challenge struct {
	ID            string        `yaml:"id" json:"id"`
	Region        string        `yaml:"region" json:"region"`
	Type          ChallengeType `yaml:"type" json:"type"`
	Category      string        `yaml:"category,omitempty" json:"category,omitempty"`
	Difficulty    int           `yaml:"difficulty" json:"difficulty"`
	Title         string        `yaml:"title" json:"title"`
	Scenario      string        `yaml:"scenario,omitempty" json:"scenario,omitempty"`
	Question      string        `yaml:"question" json:"question"`
	Options       []Option      `yaml:"options" json:"options"`
	Hints         []string      `yaml:"hints" json:"hints"`
	TimeLimit     int           `yaml:"time_limit" json:"timeLimit"` // seconds, 0 = untimed
	RequiredKarma *int          `yaml:"required_karma,omitempty" json:"requiredKarma,omitempty"`
	Tags          []string      `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Option looks up an option by id.
func (c Challenge) Option(id string) (Option, bool) {
	for _, o := range c.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Ending is the terminal classification of a run.
type Ending string

const (
	EndingGood    Ending = "good"
	EndingNeutral Ending = "neutral"
	EndingBad     Ending = "bad"
)

// LeaderboardEntry is a frozen summary of a completed run.
type LeaderboardEntry struct {
	ID        string         `yaml:"id" json:"id"`
	Name      string         `yaml:"name" json:"name"`
	Score     int            `yaml:"score" json:"score"`
	Karma     int            `yaml:"karma" json:"karma"`
	Time      int            `yaml:"time" json:"time"` // seconds
	Date      time.Time      `yaml:"date" json:"date"`
	Ending    Ending         `yaml:"ending" json:"ending"`
	Fragments FragmentCounts `yaml:"fragments" json:"fragments"`
}
