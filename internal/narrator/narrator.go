// Package narrator tells the player how their run ended.
package narrator

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/tatianab/mahes-quest/internal/models"
	"github.com/tatianab/mahes-quest/internal/progression"
)

//go:embed prompts/epilogue.txt
var epiloguePrompt string

var epilogueTmpl = template.Must(template.New("epilogue").Parse(epiloguePrompt))

// Text is the fixed wording of an ending.
type Text struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Badge       string `json:"badge"`
}

var endings = map[models.Ending]Text{
	models.EndingGood: {
		Title:       "True Hero!",
		Description: "You gathered both artifacts with a noble heart. The Crown of Mahes and the light blue Sash shine in your hands, and the tale of your journey will be remembered forever.",
		Badge:       "Hero",
	},
	models.EndingNeutral: {
		Title:       "Steadfast Adventurer",
		Description: "Mission complete! You hold both artifacts, though your road was full of hard choices. The journey taught you a great deal about yourself.",
		Badge:       "Steadfast",
	},
	models.EndingBad: {
		Title:       "The Journey Is Not Over",
		Description: "The artifacts are still incomplete, or the karma you gathered falls short. Do not give up: every great adventurer has failed before finding glory.",
		Badge:       "Unfinished",
	},
}

// Describe returns the fixed text of an ending. Unknown endings read as neutral.
func Describe(e models.Ending) Text {
	if t, ok := endings[e]; ok {
		return t
	}
	return endings[models.EndingNeutral]
}

// Generator produces free text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Narrator struct {
	gen    Generator
	logger *slog.Logger
}

// New returns a narrator. With a nil generator every epilogue is the fixed description.
func New(gen Generator, logger *slog.Logger) *Narrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Narrator{gen: gen, logger: logger}
}

// Enabled reports whether epilogues are generated rather than fixed.
func (n *Narrator) Enabled() bool {
	return n != nil && n.gen != nil
}

// Epilogue writes the closing words of a finished run, falling back to the
// fixed description when no generator is configured or generation fails.
func (n *Narrator) Epilogue(ctx context.Context, s models.GameState, ending models.Ending) string {
	fallback := Describe(ending).Description
	if !n.Enabled() {
		return fallback
	}
	prompt, err := Prompt(s, ending)
	if err != nil {
		n.logger.Warn("render epilogue prompt", "error", err)
		return fallback
	}
	text, err := n.gen.Generate(ctx, prompt)
	if err != nil {
		n.logger.Warn("generate epilogue", "error", err)
		return fallback
	}
	text = clean(text)
	if text == "" {
		return fallback
	}
	return text
}

// Prompt renders the epilogue prompt for a finished run.
func Prompt(s models.GameState, ending models.Ending) (string, error) {
	frags := progression.CountFragments(s)
	data := struct {
		Name      string
		Ending    models.Ending
		Title     string
		Score     int
		Karma     int
		Crown     int
		Sash      int
		HintsUsed int
		PlayTime  string
	}{
		Name:      s.Player.Name,
		Ending:    ending,
		Title:     Describe(ending).Title,
		Score:     s.Stats.Score,
		Karma:     s.Stats.Karma,
		Crown:     frags.Crown,
		Sash:      frags.Sash,
		HintsUsed: s.Stats.HintsUsed,
		PlayTime:  FormatPlayTime(s.Stats.PlayTime),
	}
	var buf bytes.Buffer
	if err := epilogueTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// clean strips code fences the model sometimes wraps prose in.
func clean(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// FormatPlayTime renders seconds as m:ss, or h:mm:ss from one hour up.
func FormatPlayTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, sec := seconds/3600, seconds%3600/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
