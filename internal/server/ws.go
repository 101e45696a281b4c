package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tatianab/mahes-quest/internal/models"
	"github.com/tatianab/mahes-quest/internal/narrator"
	"github.com/tatianab/mahes-quest/internal/session"
)

const (
	tickInterval = time.Second
	writeWait    = 10 * time.Second
)

// Intents accepted from the client.
const (
	intentStart       = "start"
	intentProfile     = "profile"
	intentRegion      = "region"
	intentAnswer      = "answer"
	intentHint        = "hint"
	intentContinue    = "continue"
	intentAgain       = "again"
	intentLeaderboard = "leaderboard"
	intentClose       = "close"
	intentSave        = "save"
	intentReset       = "reset"
	intentView        = "view"
)

type clientMessage struct {
	Intent    string         `json:"intent"`
	Region    int            `json:"region,omitempty"`
	Option    string         `json:"option,omitempty"`
	Player    *models.Player `json:"player,omitempty"`
	Confirmed bool           `json:"confirmed,omitempty"`
}

type serverMessage struct {
	View       *session.View  `json:"view,omitempty"`
	Hint       string         `json:"hint,omitempty"`
	EndingText *narrator.Text `json:"endingText,omitempty"`
	Epilogue   string         `json:"epilogue,omitempty"`
	Error      string         `json:"error,omitempty"`
	Code       string         `json:"code,omitempty"`
}

var errorCodes = []struct {
	err  error
	code string
}{
	{session.ErrWrongPhase, "wrong_phase"},
	{session.ErrRegionLocked, "region_locked"},
	{session.ErrUnknownOption, "unknown_option"},
	{session.ErrNoHints, "no_hints"},
	{session.ErrTimeExpired, "time_expired"},
	{session.ErrConfirmationRequired, "confirmation_required"},
	{models.ErrInvalidName, "invalid_name"},
	{models.ErrInvalidAvatar, "invalid_avatar"},
	{models.ErrInvalidDifficulty, "invalid_difficulty"},
	{errUnknownIntent, "unknown_intent"},
}

var errUnknownIntent = errors.New("unknown intent")

func errorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal"
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	slot := r.URL.Query().Get("slot")
	if slot == "" {
		slot = "1"
	}
	if !slotRe.MatchString(slot) {
		http.Error(w, "invalid slot", http.StatusBadRequest)
		return
	}
	if !s.claim(slot) {
		http.Error(w, "slot already in use", http.StatusConflict)
		return
	}
	defer s.release(slot)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "slot", slot, "error", err)
		return
	}
	defer conn.Close()

	logger := s.logger.With("slot", slot)
	logger.Info("player connected")
	defer logger.Info("player disconnected")

	c := &client{
		srv:       s,
		conn:      conn,
		sess:      s.newSession(slot),
		epilogues: make(chan string, 1),
	}
	c.run(r.Context())
}

// client owns one connection and its session. Only run touches the session
// and writes to the connection.
type client struct {
	srv       *Server
	conn      *websocket.Conn
	sess      *session.Session
	epilogues chan string
	narrated  bool
}

func (c *client) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan clientMessage)
	go c.read(ctx, in, cancel)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	if !c.sendView(serverMessage{}) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-in:
			if !c.handle(ctx, msg) {
				return
			}
		case <-ticker.C:
			if !c.ticking() {
				continue
			}
			c.sess.Tick(ctx)
			if !c.sendView(serverMessage{}) {
				return
			}
		case text := <-c.epilogues:
			if !c.write(serverMessage{Epilogue: text}) {
				return
			}
		}
	}
}

func (c *client) read(ctx context.Context, in chan<- clientMessage, cancel context.CancelFunc) {
	defer cancel()
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.srv.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.srv.logger.Debug("discarding malformed message", "error", err)
			continue
		}
		select {
		case in <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// ticking reports whether the current challenge has a running countdown.
func (c *client) ticking() bool {
	v := c.sess.View()
	return v.Phase == session.PhaseChallenge && v.Challenge != nil &&
		v.Challenge.TimeLimit > 0 && v.Challenge.TimeLeft > 0
}

// handle applies one intent and answers with the resulting view. It returns
// false once the connection is unusable.
func (c *client) handle(ctx context.Context, msg clientMessage) bool {
	var (
		reply serverMessage
		err   error
	)
	sess := c.sess
	switch msg.Intent {
	case intentStart:
		err = sess.Start(ctx)
	case intentProfile:
		if msg.Player == nil {
			err = models.ErrInvalidName
			break
		}
		err = sess.SubmitProfile(ctx, *msg.Player)
	case intentRegion:
		err = sess.SelectRegion(ctx, msg.Region)
	case intentAnswer:
		err = sess.SubmitAnswer(ctx, msg.Option)
	case intentHint:
		reply.Hint, err = sess.UseHint(ctx)
	case intentContinue:
		err = sess.Continue(ctx)
	case intentAgain:
		err = sess.PlayAgain(ctx)
	case intentLeaderboard:
		err = sess.ShowLeaderboard(ctx)
	case intentClose:
		err = sess.CloseLeaderboard(ctx)
	case intentSave:
		err = sess.SaveRun(ctx)
	case intentReset:
		err = sess.ResetData(ctx, msg.Confirmed)
	case intentView:
	default:
		err = errUnknownIntent
	}
	if err != nil {
		return c.write(serverMessage{Error: err.Error(), Code: errorCode(err)})
	}
	return c.sendView(reply)
}

// sendView attaches the current view to msg and writes it. Entering the
// ending phase also attaches the ending text and starts the epilogue.
func (c *client) sendView(msg serverMessage) bool {
	v := c.sess.View()
	if v.Challenge != nil {
		v.Challenge.ScenarioHTML = renderMarkdown(v.Challenge.Scenario)
	}
	msg.View = &v
	if v.Ending != nil {
		text := narrator.Describe(v.Ending.Ending)
		msg.EndingText = &text
		if !c.narrated {
			c.narrated = true
			c.narrate(v.State, v.Ending.Ending)
		}
	} else {
		c.narrated = false
	}
	return c.write(msg)
}

func (c *client) narrate(state models.GameState, ending models.Ending) {
	narr := c.srv.cfg.Narrator
	if !narr.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		text := narr.Epilogue(ctx, state, ending)
		select {
		case c.epilogues <- text:
		default:
		}
	}()
}

func (c *client) write(msg serverMessage) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.srv.logger.Warn("websocket write failed", "error", err)
		return false
	}
	return true
}
