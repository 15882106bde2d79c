package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	subjectroster "demesne/contexts/realm-community/subject-roster"
	treasuryservice "demesne/contexts/realm-economy/treasury-service"

	_ "demesne/internal/platform/httpserver/docs"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	addr     string
	treasury treasuryservice.Module
	roster   subjectroster.Module
}

func New(
	treasury treasuryservice.Module,
	roster subjectroster.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		treasury: treasury,
		roster:   roster,
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

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/settlements", s.handleFoundSettlement)
	s.mux.HandleFunc("GET /v1/settlements/{settlement_id}", s.handleGetSettlement)
	s.mux.HandleFunc("POST /v1/settlements/{settlement_id}/treasury/income", s.handleAccrueIncome)
	s.mux.HandleFunc("POST /v1/settlements/{settlement_id}/treasury/distribute", s.handleDistribute)
	s.mux.HandleFunc("PUT /v1/settlements/{settlement_id}/treasury/reward-rate", s.handleSetRewardRate)
	s.mux.HandleFunc("GET /v1/settlements/{settlement_id}/treasury/cooldown", s.handleCooldown)
	s.mux.HandleFunc("GET /v1/settlements/{settlement_id}/treasury/history", s.handleHistory)
	s.mux.HandleFunc("GET /v1/settlements/{settlement_id}/treasury/estimated-share", s.handleEstimatedShare)

	s.mux.HandleFunc("POST /v1/subjects", s.handleRegisterSubject)
	s.mux.HandleFunc("GET /v1/subjects/{player_id}", s.handleGetSubject)
	s.mux.HandleFunc("PUT /v1/subjects/{player_id}/skills", s.handleTrainSkills)
	s.mux.HandleFunc("GET /v1/settlements/{settlement_id}/subjects", s.handleListRoster)
	s.mux.HandleFunc("POST /v1/settlements/{settlement_id}/subjects/{player_id}/join", s.handleJoinSettlement)
	s.mux.HandleFunc("POST /v1/settlements/{settlement_id}/subjects/{player_id}/check-in", s.handleCheckIn)
	s.mux.HandleFunc("POST /v1/settlements/{settlement_id}/subjects/{player_id}/reputation", s.handleAdjustReputation)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
