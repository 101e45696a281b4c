// Package server exposes game sessions over a websocket, one session per
// connection, plus a few read-only JSON endpoints.
package server

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"regexp"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/tatianab/mahes-quest/internal/catalog"
	"github.com/tatianab/mahes-quest/internal/leaderboard"
	"github.com/tatianab/mahes-quest/internal/models"
	"github.com/tatianab/mahes-quest/internal/narrator"
	"github.com/tatianab/mahes-quest/internal/session"
	"github.com/tatianab/mahes-quest/internal/store"
)

var slotRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

type Config struct {
	Catalog             *catalog.Catalog
	KV                  store.KV
	Session             session.Options
	LeaderboardCapacity int
	Narrator            *narrator.Narrator
	Logger              *slog.Logger
	// Seed pins the shuffle of every connection's catalog view; 0 means random.
	Seed uint64
}

type Server struct {
	cfg      Config
	logger   *slog.Logger
	board    *leaderboard.Ranker
	upgrader websocket.Upgrader

	mu     sync.Mutex
	slots  map[string]bool
	nextID uint64
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Session.Logger = logger
	return &Server{
		cfg:    cfg,
		logger: logger,
		board:  leaderboard.NewRanker(store.NewSaves(cfg.KV, "", logger), cfg.LeaderboardCapacity),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		slots: make(map[string]bool),
	}
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.health)
	mux.HandleFunc("GET /api/leaderboard", s.leaderboard)
	mux.HandleFunc("GET /api/regions", s.regions)
	mux.HandleFunc("GET /ws", s.serveWS)
	return LogRequest(s.logger, mux)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	entries := s.board.List(r.Context())
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) regions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cfg.Catalog.Regions())
}

// claim reserves a slot for one connection. A slot has a single owner.
func (s *Server) claim(slot string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slots[slot] {
		return false
	}
	s.slots[slot] = true
	return true
}

func (s *Server) release(slot string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, slot)
}

// newSession builds a session bound to a slot, with its own catalog view.
func (s *Server) newSession(slot string) *session.Session {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.mu.Unlock()

	var rng *rand.Rand
	if s.cfg.Seed != 0 {
		rng = rand.New(rand.NewPCG(s.cfg.Seed, id))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	saves := store.NewSaves(s.cfg.KV, slot, s.logger)
	return session.New(s.cfg.Catalog.WithRand(rng), saves, s.board, s.cfg.Session)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("encode response failed", "error", err)
	}
}
