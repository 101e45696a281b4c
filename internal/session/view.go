package session

import (
	"slices"

	"github.com/tatianab/mahes-quest/internal/models"
	"github.com/tatianab/mahes-quest/internal/progression"
)

type NoticeKind string

const (
	NoticeWelcome        NoticeKind = "welcome"
	NoticeRegionComplete NoticeKind = "region_complete"
	NoticeRegionUnlocked NoticeKind = "region_unlocked"
	NoticeRunSaved       NoticeKind = "run_saved"
)

// Notice is a transient message produced by the last intent.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// Feedback is the outcome of the last answered challenge.
type Feedback struct {
	ChallengeID string        `json:"challengeId"`
	OptionID    string        `json:"optionId,omitempty"`
	Correct     bool          `json:"correct"`
	TimedOut    bool          `json:"timedOut,omitempty"`
	Effect      models.Effect `json:"effect"`
}

type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ChallengeView is the current challenge without its outcomes.
type ChallengeView struct {
	ID            string               `json:"id"`
	Region        int                  `json:"region"`
	Type          models.ChallengeType `json:"type"`
	Category      string               `json:"category,omitempty"`
	Title         string               `json:"title"`
	Scenario      string               `json:"scenario,omitempty"`
	ScenarioHTML  string               `json:"scenarioHtml,omitempty"`
	Question      string               `json:"question"`
	Options       []OptionView         `json:"options"`
	RevealedHints []string             `json:"revealedHints"`
	HintsLeft     int                  `json:"hintsLeft"` // unrevealed hints of this challenge
	TimeLimit     int                  `json:"timeLimit"`
	TimeLeft      int                  `json:"timeLeft"`
	Expired       bool                 `json:"expired"`
}

type EndingView struct {
	Ending       models.Ending         `json:"ending"`
	Stats        models.Stats          `json:"stats"`
	Fragments    models.FragmentCounts `json:"fragments"`
	AllFragments bool                  `json:"allFragments"`
}

// RegionStatus is one region as shown on the map.
type RegionStatus struct {
	ID          int    `json:"id"`
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Unlocked    bool   `json:"unlocked"`
	Completed   int    `json:"completed"`
	Total       int    `json:"total"`
}

// View is a read-only projection of the session for presentation layers.
type View struct {
	Phase       Phase                     `json:"phase"`
	State       models.GameState          `json:"state"`
	Regions     []RegionStatus            `json:"regions"`
	Challenge   *ChallengeView            `json:"challenge,omitempty"`
	Feedback    *Feedback                 `json:"feedback,omitempty"`
	Ending      *EndingView               `json:"ending,omitempty"`
	Leaderboard []models.LeaderboardEntry `json:"leaderboard,omitempty"`
	Notices     []Notice                  `json:"notices,omitempty"`
	SaveError   string                    `json:"saveError,omitempty"`
}

func (s *Session) View() View {
	v := View{
		Phase:     s.phase,
		State:     s.state.Clone(),
		Regions:   s.Regions(),
		Notices:   slices.Clone(s.notices),
		SaveError: s.saveErr,
	}
	switch s.phase {
	case PhaseChallenge:
		v.Challenge = s.challengeView()
	case PhaseFeedback:
		fb := *s.feedback
		v.Feedback = &fb
	case PhaseEnding:
		v.Ending = &EndingView{
			Ending:       s.ending,
			Stats:        s.state.Stats,
			Fragments:    progression.CountFragments(s.state),
			AllFragments: progression.HasAllFragments(s.state),
		}
		if len(s.leaderboard) > 0 {
			v.Leaderboard = slices.Clone(s.leaderboard)
		}
	case PhaseLeaderboard:
		v.Leaderboard = slices.Clone(s.leaderboard)
		if v.Leaderboard == nil {
			v.Leaderboard = []models.LeaderboardEntry{}
		}
	}
	return v
}

// Regions reports unlock state and completion per region.
func (s *Session) Regions() []RegionStatus {
	done := make(map[int]int)
	for _, id := range s.state.Progress.CompletedChallenges {
		if q, ok := s.catalog.ByID(id); ok {
			done[s.catalog.RegionOf(q)]++
		}
	}
	var out []RegionStatus
	for _, r := range s.catalog.Regions() {
		out = append(out, RegionStatus{
			ID:          r.ID,
			Key:         r.Key,
			Title:       r.Title,
			Description: r.Description,
			Unlocked:    progression.IsUnlocked(s.state, r.ID),
			Completed:   done[r.ID],
			Total:       s.catalog.RegionSize(r.ID),
		})
	}
	return out
}

func (s *Session) challengeView() *ChallengeView {
	q := s.challenge
	opts := make([]OptionView, 0, len(q.Options))
	for _, o := range q.Options {
		opts = append(opts, OptionView{ID: o.ID, Text: o.Text})
	}
	return &ChallengeView{
		ID:            q.ID,
		Region:        s.catalog.RegionOf(*q),
		Type:          q.Type,
		Category:      q.Category,
		Title:         q.Title,
		Scenario:      q.Scenario,
		Question:      q.Question,
		Options:       opts,
		RevealedHints: slices.Clone(q.Hints[:s.revealed]),
		HintsLeft:     len(q.Hints) - s.revealed,
		TimeLimit:     q.TimeLimit,
		TimeLeft:      s.timeLeft,
		Expired:       s.expired(),
	}
}
