package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tatianab/mahes-quest/internal/catalog"
	"github.com/tatianab/mahes-quest/internal/models"
	"github.com/tatianab/mahes-quest/internal/session"
	"github.com/tatianab/mahes-quest/internal/store"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cat, err := catalog.Load(rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	srv := New(Config{
		Catalog: cat,
		KV:      store.NewMemoryKV(),
		Logger:  quiet,
		Seed:    7,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server, slot string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?slot=" + slot
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
	return conn
}

// await reads messages until match accepts one. Countdown updates may arrive
// in between.
func await(t *testing.T, conn *websocket.Conn, match func(serverMessage) bool) serverMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg serverMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read message: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msg clientMessage) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msg.Intent, err)
	}
}

func inPhase(p session.Phase) func(serverMessage) bool {
	return func(m serverMessage) bool { return m.View != nil && m.View.Phase == p }
}

func withError(m serverMessage) bool { return m.Error != "" }

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestRegionsAndLeaderboard(t *testing.T) {
	srv, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/regions")
	if err != nil {
		t.Fatal(err)
	}
	var regions []catalog.Region
	err = json.NewDecoder(resp.Body).Decode(&regions)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode regions: %v", err)
	}
	if len(regions) != len(srv.cfg.Catalog.Regions()) {
		t.Fatalf("got %d regions, want %d", len(regions), len(srv.cfg.Catalog.Regions()))
	}

	resp, err = http.Get(ts.URL + "/api/leaderboard")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("empty leaderboard should encode as [], got %s", body)
	}
}

func TestPlayOverWebsocket(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, "alpha")

	await(t, conn, inPhase(session.PhaseLanding))

	send(t, conn, clientMessage{Intent: intentStart})
	await(t, conn, inPhase(session.PhaseSetup))

	send(t, conn, clientMessage{Intent: intentProfile, Player: &models.Player{Name: "x"}})
	if msg := await(t, conn, withError); msg.Code != "invalid_name" {
		t.Fatalf("code = %q, want invalid_name", msg.Code)
	}

	send(t, conn, clientMessage{Intent: intentProfile, Player: &models.Player{
		Name: "Mahes", Avatar: "avatar2", Difficulty: models.DifficultyAdventure,
	}})
	msg := await(t, conn, inPhase(session.PhaseMap))
	if msg.View.State.Player.Name != "Mahes" || len(msg.View.Notices) == 0 {
		t.Fatalf("unexpected map view %+v", msg.View)
	}

	send(t, conn, clientMessage{Intent: intentRegion, Region: 2})
	if msg := await(t, conn, withError); msg.Code != "region_locked" {
		t.Fatalf("code = %q, want region_locked", msg.Code)
	}

	send(t, conn, clientMessage{Intent: intentRegion, Region: 1})
	msg = await(t, conn, inPhase(session.PhaseChallenge))
	ch := msg.View.Challenge
	if ch == nil || len(ch.Options) == 0 {
		t.Fatalf("expected a challenge, got %+v", msg.View)
	}
	if ch.Scenario != "" && ch.ScenarioHTML == "" {
		t.Fatalf("scenario was not rendered")
	}

	send(t, conn, clientMessage{Intent: intentHint})
	msg = await(t, conn, func(m serverMessage) bool { return m.Hint != "" || m.Error != "" })
	if msg.Error != "" && msg.Code != "no_hints" {
		t.Fatalf("hint failed: %s", msg.Error)
	}

	send(t, conn, clientMessage{Intent: intentAnswer, Option: "nope"})
	if msg := await(t, conn, withError); msg.Code != "unknown_option" {
		t.Fatalf("code = %q, want unknown_option", msg.Code)
	}

	send(t, conn, clientMessage{Intent: intentAnswer, Option: ch.Options[0].ID})
	msg = await(t, conn, inPhase(session.PhaseFeedback))
	if msg.View.Feedback == nil || msg.View.Feedback.ChallengeID != ch.ID {
		t.Fatalf("unexpected feedback %+v", msg.View.Feedback)
	}
}

func TestIntentErrors(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, "beta")
	await(t, conn, inPhase(session.PhaseLanding))

	tests := []struct {
		msg  clientMessage
		code string
	}{
		{clientMessage{Intent: "dance"}, "unknown_intent"},
		{clientMessage{Intent: intentContinue}, "wrong_phase"},
		{clientMessage{Intent: intentReset}, "confirmation_required"},
	}
	for _, tt := range tests {
		send(t, conn, tt.msg)
		if got := await(t, conn, withError); got.Code != tt.code {
			t.Errorf("%s: code = %q, want %q", tt.msg.Intent, got.Code, tt.code)
		}
	}

	send(t, conn, clientMessage{Intent: intentLeaderboard})
	msg := await(t, conn, inPhase(session.PhaseLeaderboard))
	if msg.View.Leaderboard == nil {
		t.Fatalf("leaderboard view should carry an empty list")
	}
}

func TestSlotHasOneOwner(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, "gamma")
	await(t, conn, inPhase(session.PhaseLanding))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?slot=gamma"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if !errors.Is(err, websocket.ErrBadHandshake) {
		t.Fatalf("expected a refused handshake, got %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	// Another slot is free.
	other := dial(t, ts, "delta")
	await(t, other, inPhase(session.PhaseLanding))
}

func TestInvalidSlot(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/ws?slot=" + strings.Repeat("a", 40))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestResumeAcrossConnections(t *testing.T) {
	srv, ts := newTestServer(t)
	conn := dial(t, ts, "eps")
	await(t, conn, inPhase(session.PhaseLanding))
	send(t, conn, clientMessage{Intent: intentStart})
	await(t, conn, inPhase(session.PhaseSetup))
	send(t, conn, clientMessage{Intent: intentProfile, Player: &models.Player{
		Name: "Mahes", Avatar: "avatar1", Difficulty: models.DifficultyCasual,
	}})
	await(t, conn, inPhase(session.PhaseMap))
	conn.Close()

	// The slot is released once the handler returns.
	deadline := time.Now().Add(5 * time.Second)
	for !srv.claim("eps") {
		if time.Now().After(deadline) {
			t.Fatalf("slot was never released")
		}
		time.Sleep(10 * time.Millisecond)
	}
	srv.release("eps")

	again := dial(t, ts, "eps")
	await(t, again, inPhase(session.PhaseLanding))
	send(t, again, clientMessage{Intent: intentStart})
	msg := await(t, again, inPhase(session.PhaseMap))
	if msg.View.State.Player.Name != "Mahes" {
		t.Fatalf("expected the saved run to resume, got %+v", msg.View.State.Player)
	}
}

func TestRenderMarkdown(t *testing.T) {
	got := renderMarkdown("The **Crown** awaits.\n[run](javascript:alert(1))")
	if !strings.Contains(got, "<strong>Crown</strong>") {
		t.Errorf("missing emphasis: %s", got)
	}
	if strings.Contains(got, "javascript:") {
		t.Errorf("unsafe link kept: %s", got)
	}
	if renderMarkdown("") != "" {
		t.Errorf("empty input should render empty")
	}
}

func TestWriteJSONLogsEncodeFailure(t *testing.T) {
	var logs bytes.Buffer
	srv := New(Config{KV: store.NewMemoryKV(), Logger: slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))})
	rec := httptest.NewRecorder()
	srv.writeJSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})
	if !strings.Contains(logs.String(), "encode response failed") {
		t.Fatalf("expected the encode failure to be logged, got %q", logs.String())
	}
}

func TestErrorCode(t *testing.T) {
	wrapped := fmt.Errorf("select: %w", session.ErrRegionLocked)
	if got := errorCode(wrapped); got != "region_locked" {
		t.Errorf("errorCode = %q", got)
	}
	if got := errorCode(errors.New("boom")); got != "internal" {
		t.Errorf("errorCode = %q", got)
	}
}
