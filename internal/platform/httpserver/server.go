package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"tapcoins/contexts/game-core/leaderboard"
	tapengine "tapcoins/contexts/game-core/tap-engine"
	"tapcoins/internal/platform/metrics"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "tapcoins/internal/platform/httpserver/docs"
)

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	addr        string
	tapEngine   tapengine.Module
	leaderboard leaderboard.Module

	enableSwagger bool
}

type Options struct {
	Addr          string
	EnableSwagger bool
}

func New(
	tapEngineModule tapengine.Module,
	leaderboardModule leaderboard.Module,
	logger *slog.Logger,
	opts Options,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}

	s := &Server{
		mux:           http.NewServeMux(),
		logger:        logger,
		addr:          opts.Addr,
		tapEngine:     tapEngineModule,
		leaderboard:   leaderboardModule,
		enableSwagger: opts.EnableSwagger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the routed mux for httptest-driven tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	if s.enableSwagger {
		s.mux.Handle("/swagger/", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}
	s.mux.Handle("GET /metrics", metrics.Handler())

	s.mux.HandleFunc("POST /v1/sessions", s.handleStartSession)
	s.mux.HandleFunc("DELETE /v1/sessions/{user_id}", s.handleEndSession)
	s.mux.HandleFunc("POST /v1/users/{user_id}/taps", s.handleTap)
	s.mux.HandleFunc("GET /v1/users/{user_id}", s.handleGetProgress)
	s.mux.HandleFunc("GET /v1/users/{user_id}/achievements", s.handleListAchievements)
	s.mux.HandleFunc("POST /v1/users/{user_id}/referrals", s.handleApplyReferral)

	s.mux.HandleFunc("GET /v1/leaderboard", s.handleGetLeaderboard)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
