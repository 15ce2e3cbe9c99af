// Package api is the HTTP surface: REST endpoints plus the websocket route.
package api

import (
	"net/http"
	"strconv"
	"time"

	"crossServer/config"
	"crossServer/play"
	"crossServer/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server holds what the handlers need.
type Server struct {
	hub    *ws.Hub
	mode   play.Mode
	logger *zap.Logger
}

func NewServer(hub *ws.Hub, mode play.Mode, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{hub: hub, mode: mode, logger: logger}
}

// Routes sets up the HTTP routes
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           60 * 15,
	}))

	if s.hub != nil {
		r.Get("/ws", s.hub.HandleWS)
	}

	r.Route("/api", func(rr chi.Router) {
		rr.Use(middleware.Timeout(30 * time.Second))

		rr.Get("/health", s.handleHealth)
		rr.Get("/difficulties", s.handleDifficulties)
		rr.Get("/history", s.handleHistory)
		rr.Get("/history/{roundID}", s.handleRound)
		rr.Get("/recent", s.handleRecent)
		rr.Get("/leaderboard", s.handleLeaderboard)
		rr.Get("/players/{player}/session", s.handleSession)
		rr.Get("/players/{player}/last", s.handleLastRound)
		rr.Post("/verify", s.handleVerify)
	})

	return r
}

/* =========================
   RESPONSE HELPERS
========================= */

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("⚠️ Failed to write response", zap.Error(err))
	}
}

func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Success: false, Error: message})
}

// limitParam reads ?limit=, clamped to [1, config.MaxHistorySize].
func limitParam(r *http.Request, fallback int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > config.MaxHistorySize {
		return config.MaxHistorySize
	}
	return limit
}
