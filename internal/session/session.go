// Package session drives one run through its phases: landing, setup, the
// region map, challenges and their feedback, the ending and the leaderboard.
//
// A Session owns its game state exclusively and is not safe for concurrent
// use. Presentation layers create one per player and feed it intents.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tatianab/mahes-quest/internal/catalog"
	"github.com/tatianab/mahes-quest/internal/models"
	"github.com/tatianab/mahes-quest/internal/progression"
)

type Phase string

const (
	PhaseLanding     Phase = "landing"
	PhaseSetup       Phase = "setup"
	PhaseMap         Phase = "map"
	PhaseChallenge   Phase = "challenge"
	PhaseFeedback    Phase = "feedback"
	PhaseEnding      Phase = "ending"
	PhaseLeaderboard Phase = "leaderboard"
)

// TimeoutPolicy decides what an expired countdown does.
type TimeoutPolicy string

const (
	// TimeoutCosmetic only marks the challenge as expired in the view.
	TimeoutCosmetic TimeoutPolicy = "cosmetic"
	// TimeoutBlock rejects answers once the countdown reaches zero.
	TimeoutBlock TimeoutPolicy = "block"
	// TimeoutForfeit resolves the challenge with no effect when the countdown reaches zero.
	TimeoutForfeit TimeoutPolicy = "forfeit"
)

// ParseTimeoutPolicy accepts the policy names; empty means cosmetic.
func ParseTimeoutPolicy(s string) (TimeoutPolicy, error) {
	switch p := TimeoutPolicy(s); p {
	case "":
		return TimeoutCosmetic, nil
	case TimeoutCosmetic, TimeoutBlock, TimeoutForfeit:
		return p, nil
	default:
		return "", fmt.Errorf("unknown timeout policy %q", s)
	}
}

// TimeUpFeedback is the feedback text of a forfeited challenge.
const TimeUpFeedback = "Time's up! The moment passed before you could decide."

var (
	ErrWrongPhase           = errors.New("intent not available in this phase")
	ErrRegionLocked         = errors.New("region is locked")
	ErrUnknownOption        = errors.New("unknown option")
	ErrNoHints              = errors.New("no hint available")
	ErrTimeExpired          = errors.New("time has run out")
	ErrConfirmationRequired = errors.New("reset requires confirmation")
)

// StateStore persists the active run.
type StateStore interface {
	LoadState(ctx context.Context) (models.GameState, bool)
	SaveState(ctx context.Context, s models.GameState) (models.GameState, error)
	ClearState(ctx context.Context) error
}

// Board reads and appends leaderboard entries.
type Board interface {
	List(ctx context.Context) []models.LeaderboardEntry
	Record(ctx context.Context, entry models.LeaderboardEntry) ([]models.LeaderboardEntry, error)
	Clear(ctx context.Context) error
}

type Options struct {
	TimeoutPolicy    TimeoutPolicy
	EnforceKarmaGate bool
	Now              func() time.Time
	Logger           *slog.Logger
}

type Session struct {
	catalog *catalog.Catalog
	states  StateStore
	board   Board
	opts    Options

	phase Phase
	state models.GameState

	challenge *models.Challenge
	revealed  int
	timeLeft  int

	feedback    *Feedback
	ending      models.Ending
	leaderboard []models.LeaderboardEntry
	notices     []Notice
	saveErr     string
}

// New starts a session on the landing screen with a fresh state.
func New(cat *catalog.Catalog, states StateStore, board Board, opts Options) *Session {
	if opts.TimeoutPolicy == "" {
		opts.TimeoutPolicy = TimeoutCosmetic
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Session{
		catalog: cat,
		states:  states,
		board:   board,
		opts:    opts,
		phase:   PhaseLanding,
		state:   progression.NewGameState(opts.Now()),
	}
}

func (s *Session) Phase() Phase { return s.phase }

// Policy returns the timeout policy in effect.
func (s *Session) Policy() TimeoutPolicy { return s.opts.TimeoutPolicy }

// State returns a copy of the current game state.
func (s *Session) State() models.GameState { return s.state.Clone() }

// Start resumes a saved run on the map, or opens the profile setup.
func (s *Session) Start(ctx context.Context) error {
	if err := s.expect(PhaseLanding); err != nil {
		return err
	}
	if saved, ok := s.states.LoadState(ctx); ok && saved.HasProfile() {
		s.state = saved
		s.setPhase(PhaseMap)
		s.notify(NoticeWelcome, fmt.Sprintf("Welcome back, %s!", saved.Player.Name))
		return nil
	}
	s.setPhase(PhaseSetup)
	return nil
}

// SubmitProfile validates the player, starts the run clock and opens the map.
func (s *Session) SubmitProfile(ctx context.Context, p models.Player) error {
	if err := s.expect(PhaseSetup); err != nil {
		return err
	}
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}
	s.state = progression.WithPlayer(s.state, p, s.opts.Now())
	s.setPhase(PhaseMap)
	s.notify(NoticeWelcome, fmt.Sprintf("Welcome, %s! Your journey begins.", p.Name))
	s.persist(ctx)
	return nil
}

// SelectRegion opens the next open challenge of an unlocked region. A region
// with nothing left to play is completed instead and the map stays up.
func (s *Session) SelectRegion(ctx context.Context, region int) error {
	if err := s.expect(PhaseMap); err != nil {
		return err
	}
	if !progression.IsUnlocked(s.state, region) {
		return fmt.Errorf("%w: %d", ErrRegionLocked, region)
	}
	s.state = progression.WithCurrentRegion(s.state, region)
	if remaining := s.remaining(region); len(remaining) > 0 {
		s.begin(remaining[0])
	} else {
		s.completeRegion(region)
	}
	s.persist(ctx)
	return nil
}

// SubmitAnswer applies the chosen option and shows its feedback.
func (s *Session) SubmitAnswer(ctx context.Context, optionID string) error {
	if err := s.expect(PhaseChallenge); err != nil {
		return err
	}
	if s.opts.TimeoutPolicy == TimeoutBlock && s.expired() {
		return ErrTimeExpired
	}
	opt, ok := s.challenge.Option(optionID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOption, optionID)
	}
	s.state = progression.ApplyEffect(s.state, s.challenge.ID, opt.Effect)
	s.feedback = &Feedback{
		ChallengeID: s.challenge.ID,
		OptionID:    opt.ID,
		Correct:     opt.IsCorrect,
		Effect:      opt.Effect,
	}
	s.challenge = nil
	s.setPhase(PhaseFeedback)
	s.persist(ctx)
	return nil
}

// UseHint spends one hint and reveals the next hint of the current challenge.
func (s *Session) UseHint(ctx context.Context) (string, error) {
	if err := s.expect(PhaseChallenge); err != nil {
		return "", err
	}
	if s.revealed >= len(s.challenge.Hints) {
		return "", fmt.Errorf("%w: every hint is already revealed", ErrNoHints)
	}
	if s.state.Inventory.Hints <= 0 {
		return "", fmt.Errorf("%w: out of hints", ErrNoHints)
	}
	s.state = progression.WithHintConsumed(s.state)
	hint := s.challenge.Hints[s.revealed]
	s.revealed++
	s.persist(ctx)
	return hint, nil
}

// Continue moves on from feedback to the next challenge of the region, or
// completes the region when none is left. Under the block policy it also
// leaves an expired challenge for the map; the challenge stays open.
func (s *Session) Continue(ctx context.Context) error {
	if s.phase == PhaseChallenge && s.opts.TimeoutPolicy == TimeoutBlock && s.expired() {
		s.opts.Logger.Debug("left expired challenge", "challenge", s.challenge.ID)
		s.challenge = nil
		s.revealed = 0
		s.timeLeft = 0
		s.notices = nil
		s.setPhase(PhaseMap)
		s.persist(ctx)
		return nil
	}
	if err := s.expect(PhaseFeedback); err != nil {
		return err
	}
	s.feedback = nil
	region := s.state.Progress.CurrentRegion
	if remaining := s.remaining(region); len(remaining) > 0 {
		s.begin(remaining[0])
	} else {
		s.completeRegion(region)
	}
	s.persist(ctx)
	return nil
}

// Tick advances the countdown of a timed challenge by one second. It is a
// no-op outside a timed challenge or once the countdown has stopped.
func (s *Session) Tick(ctx context.Context) {
	s.notices = nil
	if s.phase != PhaseChallenge || s.challenge.TimeLimit <= 0 || s.timeLeft <= 0 {
		return
	}
	s.timeLeft--
	if s.timeLeft > 0 {
		return
	}
	s.opts.Logger.Debug("challenge timer expired", "challenge", s.challenge.ID, "policy", s.opts.TimeoutPolicy)
	if s.opts.TimeoutPolicy != TimeoutForfeit {
		return
	}
	s.state = progression.WithChallengeCompleted(s.state, s.challenge.ID)
	s.feedback = &Feedback{
		ChallengeID: s.challenge.ID,
		TimedOut:    true,
		Effect:      models.Effect{Feedback: TimeUpFeedback},
	}
	s.challenge = nil
	s.setPhase(PhaseFeedback)
	s.persist(ctx)
}

// PlayAgain discards the finished run and opens a fresh setup.
func (s *Session) PlayAgain(ctx context.Context) error {
	if err := s.expect(PhaseEnding); err != nil {
		return err
	}
	s.clear()
	s.state = progression.NewGameState(s.opts.Now())
	s.setPhase(PhaseSetup)
	return nil
}

// ShowLeaderboard reads the stored leaderboard and displays it.
func (s *Session) ShowLeaderboard(ctx context.Context) error {
	if err := s.expect(PhaseLanding, PhaseMap, PhaseEnding); err != nil {
		return err
	}
	from := s.phase
	s.leaderboard = s.board.List(ctx)
	s.setPhase(PhaseLeaderboard)
	if from != PhaseLanding {
		s.persist(ctx)
	}
	return nil
}

// CloseLeaderboard returns to the map when a run is in progress, else to landing.
func (s *Session) CloseLeaderboard(ctx context.Context) error {
	if err := s.expect(PhaseLeaderboard); err != nil {
		return err
	}
	s.leaderboard = nil
	if !s.state.HasProfile() {
		s.setPhase(PhaseLanding)
		return nil
	}
	s.setPhase(PhaseMap)
	s.persist(ctx)
	return nil
}

// SaveRun records the finished run on the leaderboard. Each call adds a new entry.
func (s *Session) SaveRun(ctx context.Context) error {
	if err := s.expect(PhaseEnding); err != nil {
		return err
	}
	entry := models.LeaderboardEntry{
		Name:      s.state.Player.Name,
		Score:     s.state.Stats.Score,
		Karma:     s.state.Stats.Karma,
		Time:      s.state.Stats.PlayTime,
		Date:      s.opts.Now().UTC(),
		Ending:    progression.ResolveState(s.state),
		Fragments: progression.CountFragments(s.state),
	}
	entries, err := s.board.Record(ctx, entry)
	s.leaderboard = entries
	if err != nil {
		s.opts.Logger.Warn("save leaderboard failed", "error", err)
		s.saveErr = err.Error()
		return nil
	}
	s.saveErr = ""
	s.notify(NoticeRunSaved, "Your score was added to the leaderboard.")
	return nil
}

// ResetData deletes the saved run and the leaderboard and starts over on the
// landing screen. It does nothing unless confirmed.
func (s *Session) ResetData(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	err := errors.Join(s.states.ClearState(ctx), s.board.Clear(ctx))
	s.clear()
	s.state = progression.NewGameState(s.opts.Now())
	s.setPhase(PhaseLanding)
	if err != nil {
		s.opts.Logger.Warn("reset data failed", "error", err)
		s.saveErr = err.Error()
	}
	return nil
}

// expect checks the phase and clears the notices of the previous intent.
func (s *Session) expect(phases ...Phase) error {
	s.notices = nil
	for _, p := range phases {
		if s.phase == p {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrWrongPhase, s.phase)
}

func (s *Session) setPhase(p Phase) {
	if s.phase != p {
		s.opts.Logger.Debug("phase transition", "from", s.phase, "to", p)
	}
	s.phase = p
}

func (s *Session) clear() {
	s.challenge = nil
	s.revealed = 0
	s.timeLeft = 0
	s.feedback = nil
	s.ending = ""
	s.leaderboard = nil
	s.saveErr = ""
}

// persist writes the state unless the session is on landing or setup.
// A failed write is logged and shown on the view; the transition stands.
func (s *Session) persist(ctx context.Context) {
	if s.phase == PhaseLanding || s.phase == PhaseSetup {
		return
	}
	stamped, err := s.states.SaveState(ctx, s.state)
	s.state = stamped
	if err != nil {
		s.opts.Logger.Warn("save state failed", "phase", s.phase, "error", err)
		s.saveErr = err.Error()
		return
	}
	s.saveErr = ""
}

func (s *Session) begin(q models.Challenge) {
	q.TimeLimit = s.state.Player.Difficulty.TimeLimit(q.TimeLimit)
	s.challenge = &q
	s.revealed = 0
	s.timeLeft = q.TimeLimit
	s.setPhase(PhaseChallenge)
}

func (s *Session) expired() bool {
	return s.challenge != nil && s.challenge.TimeLimit > 0 && s.timeLeft <= 0
}

// remaining lists the playable, uncompleted challenges of a region in catalog order.
func (s *Session) remaining(region int) []models.Challenge {
	var out []models.Challenge
	for _, q := range s.catalog.ByRegion(region) {
		if progression.IsCompleted(s.state, q.ID) || s.gated(q) {
			continue
		}
		out = append(out, q)
	}
	return out
}

func (s *Session) gated(q models.Challenge) bool {
	return s.opts.EnforceKarmaGate && q.RequiredKarma != nil && s.state.Stats.Karma < *q.RequiredKarma
}

// completeRegion unlocks the following region, or finishes the run when the
// last region is done and nothing playable is left anywhere.
func (s *Session) completeRegion(region int) {
	s.challenge = nil
	if region == s.catalog.LastRegion() && s.runComplete() {
		s.finish()
		return
	}
	title := fmt.Sprintf("Region %d", region)
	if r, ok := s.catalog.Region(region); ok {
		title = r.Title
	}
	s.notify(NoticeRegionComplete, fmt.Sprintf("%s is complete.", title))
	if next, ok := s.nextRegion(region); ok && !progression.IsUnlocked(s.state, next) {
		s.state = progression.WithRegionUnlocked(s.state, next)
		if r, ok := s.catalog.Region(next); ok {
			s.notify(NoticeRegionUnlocked, fmt.Sprintf("%s is now open.", r.Title))
		}
	}
	s.setPhase(PhaseMap)
}

func (s *Session) nextRegion(region int) (int, bool) {
	regions := s.catalog.Regions()
	for i, r := range regions {
		if r.ID == region && i+1 < len(regions) {
			return regions[i+1].ID, true
		}
	}
	return 0, false
}

func (s *Session) runComplete() bool {
	for _, r := range s.catalog.Regions() {
		if len(s.remaining(r.ID)) > 0 {
			return false
		}
	}
	return true
}

// finish stops the run clock and resolves the ending.
func (s *Session) finish() {
	s.state = progression.WithPlayTime(s.state, s.opts.Now())
	s.ending = progression.ResolveState(s.state)
	s.setPhase(PhaseEnding)
	s.opts.Logger.Info("run finished",
		"player", s.state.Player.Name,
		"score", s.state.Stats.Score,
		"karma", s.state.Stats.Karma,
		"ending", s.ending,
	)
}

func (s *Session) notify(kind NoticeKind, msg string) {
	s.notices = append(s.notices, Notice{Kind: kind, Message: msg})
}
