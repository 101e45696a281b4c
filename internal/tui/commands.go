package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tatianab/mahes-quest/internal/models"
)

type Verb string

const (
	VerbStart    Verb = "start"
	VerbBoard    Verb = "board"
	VerbRegion   Verb = "region"
	VerbAnswer   Verb = "answer"
	VerbHint     Verb = "hint"
	VerbContinue Verb = "continue"
	VerbSave     Verb = "save"
	VerbAgain    Verb = "again"
	VerbReset    Verb = "reset"
	VerbYes      Verb = "yes"
	VerbNo       Verb = "no"
	VerbClose    Verb = "close"
	VerbHelp     Verb = "help"
	VerbQuit     Verb = "quit"
)

// Command is one parsed line of player input.
type Command struct {
	Verb Verb
	Arg  string
}

var ErrUnknownCommand = errors.New("unknown command")

type alias struct {
	verb Verb
	word string
}

var aliases = []alias{
	{VerbStart, "start"}, {VerbStart, "play"}, {VerbStart, "begin"},
	{VerbBoard, "board"}, {VerbBoard, "leaderboard"}, {VerbBoard, "scores"},
	{VerbRegion, "region"}, {VerbRegion, "go"}, {VerbRegion, "travel"},
	{VerbAnswer, "answer"}, {VerbAnswer, "choose"},
	{VerbHint, "hint"}, {VerbHint, "clue"},
	{VerbContinue, "continue"}, {VerbContinue, "next"},
	{VerbSave, "save"}, {VerbSave, "record"},
	{VerbAgain, "again"}, {VerbAgain, "restart"}, {VerbAgain, "replay"},
	{VerbReset, "reset"}, {VerbReset, "wipe"},
	{VerbYes, "yes"}, {VerbYes, "y"}, {VerbYes, "confirm"},
	{VerbNo, "no"}, {VerbNo, "n"}, {VerbNo, "cancel"},
	{VerbClose, "close"}, {VerbClose, "back"}, {VerbClose, "map"},
	{VerbHelp, "help"}, {VerbHelp, "?"}, {VerbHelp, "commands"},
	{VerbQuit, "/quit"}, {VerbQuit, "quit"}, {VerbQuit, "exit"},
}

// ParseCommand reads a command line. Region numbers and option letters may be
// typed bare; verbs tolerate prefixes and small typos.
func ParseCommand(input string) (Command, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(input)))
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty input", ErrUnknownCommand)
	}
	head, rest := fields[0], strings.Join(fields[1:], " ")

	if len(fields) == 1 {
		if _, err := strconv.Atoi(head); err == nil {
			return Command{Verb: VerbRegion, Arg: head}, nil
		}
		if len(head) == 1 && head[0] >= 'a' && head[0] <= 'f' {
			return Command{Verb: VerbAnswer, Arg: head}, nil
		}
	}

	verb, ok := matchVerb(head)
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, head)
	}
	return Command{Verb: verb, Arg: rest}, nil
}

func matchVerb(word string) (Verb, bool) {
	for _, a := range aliases {
		if a.word == word {
			return a.verb, true
		}
	}
	if len(word) >= 2 {
		var found Verb
		hits := 0
		for _, a := range aliases {
			if strings.HasPrefix(a.word, word) && a.verb != found {
				found = a.verb
				hits++
			}
		}
		if hits == 1 {
			return found, true
		}
	}
	if len(word) < 3 {
		return "", false
	}
	best, bestDist := Verb(""), -1
	for _, a := range aliases {
		dist := levenshtein.ComputeDistance(word, a.word)
		if dist > distanceLimit(len(a.word)) {
			continue
		}
		if bestDist == -1 || dist < bestDist {
			best, bestDist = a.verb, dist
		}
	}
	return best, bestDist != -1
}

func distanceLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

// ParseDifficulty matches a tier by name, prefix or close spelling. Empty picks adventure.
func ParseDifficulty(input string) (models.Difficulty, error) {
	in := strings.ToLower(strings.TrimSpace(input))
	tiers := []models.Difficulty{models.DifficultyCasual, models.DifficultyAdventure, models.DifficultyLegendary}
	if in == "" {
		return models.DifficultyAdventure, nil
	}
	if n, err := strconv.Atoi(in); err == nil && n >= 1 && n <= len(tiers) {
		return tiers[n-1], nil
	}
	for _, d := range tiers {
		if strings.HasPrefix(string(d), in) {
			return d, nil
		}
	}
	for _, d := range tiers {
		if levenshtein.ComputeDistance(in, string(d)) <= distanceLimit(len(d)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", models.ErrInvalidDifficulty, input)
}

// ParseAvatar accepts an avatar number or identifier. Empty picks the first avatar.
func ParseAvatar(input string) (string, error) {
	in := strings.ToLower(strings.TrimSpace(input))
	if in == "" {
		return models.Avatars[0], nil
	}
	if n, err := strconv.Atoi(in); err == nil && n >= 1 && n <= len(models.Avatars) {
		return models.Avatars[n-1], nil
	}
	for _, a := range models.Avatars {
		if a == in {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", models.ErrInvalidAvatar, input)
}
