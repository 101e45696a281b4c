package tui

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tatianab/mahes-quest/internal/catalog"
	"github.com/tatianab/mahes-quest/internal/leaderboard"
	"github.com/tatianab/mahes-quest/internal/models"
	"github.com/tatianab/mahes-quest/internal/narrator"
	"github.com/tatianab/mahes-quest/internal/session"
	"github.com/tatianab/mahes-quest/internal/store"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestModel(t *testing.T, policy session.TimeoutPolicy) model {
	t.Helper()
	cat, err := catalog.Load(rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	saves := store.NewSaves(store.NewMemoryKV(), "1", quiet)
	sess := session.New(cat, saves, leaderboard.NewRanker(saves, 0), session.Options{
		TimeoutPolicy: policy,
		Logger:        quiet,
	})
	return NewModel(context.Background(), sess, narrator.New(nil, quiet))
}

func enter(t *testing.T, m model, line string) (model, tea.Cmd) {
	t.Helper()
	m.textInput.SetValue(line)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(model), cmd
}

func TestSetupFlow(t *testing.T) {
	m := newTestModel(t, session.TimeoutCosmetic)
	if !strings.Contains(m.gameLog, "MAHES ADVENTURE") {
		t.Fatalf("expected landing screen in log")
	}

	m, _ = enter(t, m, "start")
	if m.sess.Phase() != session.PhaseSetup {
		t.Fatalf("expected setup, got %s", m.sess.Phase())
	}
	m, _ = enter(t, m, "x")
	if m.step != stepName || !strings.Contains(m.gameLog, "invalid player name") {
		t.Fatalf("short name should be rejected at the name step")
	}
	m, _ = enter(t, m, "Mahes")
	m, _ = enter(t, m, "")
	m, _ = enter(t, m, "legendary")

	if m.sess.Phase() != session.PhaseMap {
		t.Fatalf("expected map, got %s", m.sess.Phase())
	}
	st := m.sess.State()
	if st.Player != (models.Player{Name: "Mahes", Avatar: "avatar1", Difficulty: models.DifficultyLegendary}) {
		t.Fatalf("unexpected player %+v", st.Player)
	}
	if !strings.Contains(m.gameLog, "THE MAP") {
		t.Fatalf("expected map screen in log")
	}
}

func playToMap(t *testing.T, m model) model {
	t.Helper()
	for _, line := range []string{"start", "Mahes", "1", "adventure"} {
		m, _ = enter(t, m, line)
	}
	return m
}

func TestChallengeAndHint(t *testing.T) {
	m := playToMap(t, newTestModel(t, session.TimeoutCosmetic))
	m, _ = enter(t, m, "1")
	if m.sess.Phase() != session.PhaseChallenge {
		t.Fatalf("expected challenge, got %s", m.sess.Phase())
	}
	m, _ = enter(t, m, "hint")
	if !strings.Contains(m.gameLog, "Hint:") {
		t.Fatalf("expected a revealed hint in log")
	}
	if m.sess.State().Inventory.Hints != 2 {
		t.Fatalf("expected 2 hints left, got %d", m.sess.State().Inventory.Hints)
	}

	m, _ = enter(t, m, "z")
	if !strings.Contains(m.gameLog, "unknown command") {
		t.Fatalf("expected unknown command error")
	}
	m, _ = enter(t, m, "a")
	if m.sess.Phase() != session.PhaseFeedback {
		t.Fatalf("expected feedback, got %s", m.sess.Phase())
	}
	m, _ = enter(t, m, "continue")
	if p := m.sess.Phase(); p != session.PhaseChallenge {
		t.Fatalf("expected next challenge, got %s", p)
	}
}

func TestResetAsksForConfirmation(t *testing.T) {
	m := playToMap(t, newTestModel(t, session.TimeoutCosmetic))
	m, _ = enter(t, m, "reset")
	if !m.confirmReset || m.sess.Phase() != session.PhaseMap {
		t.Fatalf("reset should wait for confirmation")
	}
	m, _ = enter(t, m, "no")
	if m.confirmReset {
		t.Fatalf("no should cancel the reset")
	}
	m, _ = enter(t, m, "yes")
	if m.sess.Phase() != session.PhaseMap {
		t.Fatalf("yes without a pending reset must do nothing")
	}
	m, _ = enter(t, m, "reset")
	m, _ = enter(t, m, "yes")
	if m.sess.Phase() != session.PhaseLanding || m.sess.State().HasProfile() {
		t.Fatalf("expected landing with fresh state after reset")
	}
}

func TestTimerTicks(t *testing.T) {
	m := playToMap(t, newTestModel(t, session.TimeoutForfeit))
	// Region 1 holds timed challenges; answer until one starts a countdown.
	m, cmd := enter(t, m, "1")
	for i := 0; cmd == nil && i < 5; i++ {
		m, _ = enter(t, m, "a")
		m, cmd = enter(t, m, "continue")
	}
	if cmd == nil {
		t.Fatalf("expected a countdown to start")
	}
	v := m.sess.View()
	if v.Challenge == nil || v.Challenge.TimeLimit == 0 {
		t.Fatalf("expected a timed challenge, got %+v", v.Challenge)
	}

	stale, _ := m.Update(tickMsg{id: m.timerID - 1})
	if got := stale.(model).sess.View().Challenge.TimeLeft; got != v.Challenge.TimeLimit {
		t.Fatalf("stale tick changed the countdown to %d", got)
	}

	next := tea.Model(m)
	for i := 0; i < v.Challenge.TimeLimit; i++ {
		next, _ = next.Update(tickMsg{id: m.timerID})
	}
	final := next.(model)
	if final.sess.Phase() != session.PhaseFeedback {
		t.Fatalf("expected forfeit to show feedback, got %s", final.sess.Phase())
	}
	if !strings.Contains(final.gameLog, "TIME'S UP") {
		t.Fatalf("expected time's up screen in log")
	}
}

func TestFormatting(t *testing.T) {
	if got := formatNumber(1250); got != "1,250" {
		t.Errorf("formatNumber = %q", got)
	}
	if got := formatSigned(15); got != "+15" {
		t.Errorf("formatSigned = %q", got)
	}
	if got := describeItem("fragment_sash_4"); got != "Sash fragment 4" {
		t.Errorf("describeItem = %q", got)
	}
	table := formatLeaderboard([]models.LeaderboardEntry{
		{Name: "Mahes", Score: 1520, Karma: 90, Time: 754, Date: time.Now(), Ending: models.EndingGood},
	})
	for _, want := range []string{"Mahes", "1,520", "12:34", "Hero"} {
		if !strings.Contains(table, want) {
			t.Errorf("leaderboard table missing %q:\n%s", want, table)
		}
	}
	if formatLeaderboard(nil) != "No runs recorded yet." {
		t.Errorf("unexpected empty leaderboard text")
	}
}

func TestBlockedTimerReturnsToMap(t *testing.T) {
	m := playToMap(t, newTestModel(t, session.TimeoutBlock))
	m, cmd := enter(t, m, "1")
	for i := 0; cmd == nil && i < 5; i++ {
		m, _ = enter(t, m, "a")
		m, cmd = enter(t, m, "continue")
	}
	if cmd == nil {
		t.Fatalf("expected a countdown to start")
	}
	limit := m.sess.View().Challenge.TimeLimit

	next := tea.Model(m)
	for i := 0; i < limit; i++ {
		next, _ = next.Update(tickMsg{id: m.timerID})
	}
	m = next.(model)
	if !strings.Contains(m.gameLog, "return to the map") || strings.Contains(m.gameLog, "You can still answer") {
		t.Fatalf("expected the blocked expiry message in log")
	}
	m, _ = enter(t, m, "a")
	if !strings.Contains(m.gameLog, "time has run out") {
		t.Fatalf("expected a rejected late answer")
	}
	m, _ = enter(t, m, "continue")
	if m.sess.Phase() != session.PhaseMap {
		t.Fatalf("expected map, got %s", m.sess.Phase())
	}
}
