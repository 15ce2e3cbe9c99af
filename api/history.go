package api

import (
	"net/http"

	"crossServer/config"
	"crossServer/db"
	"crossServer/game"
	"crossServer/play"
	"crossServer/state"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

/* =========================
   HEALTH CHECK ENDPOINT
========================= */

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	redisHealth := "ok"
	if err := db.HealthCheckRedis(ctx); err != nil {
		redisHealth = "error: " + err.Error()
	}

	postgresHealth := "ok"
	if err := db.HealthCheckPostgres(ctx); err != nil {
		postgresHealth = "error: " + err.Error()
	}

	clients := 0
	if s.hub != nil {
		clients = s.hub.Clients()
	}

	s.sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"mode":     s.mode,
		"redis":    redisHealth,
		"postgres": postgresHealth,
		"clients":  clients,
		"message":  "Health check completed",
	})
}

/* =========================
   DIFFICULTY TABLES
========================= */

// DifficultiesResponse lists every tier's lane table.
type DifficultiesResponse struct {
	Success      bool             `json:"success"`
	Difficulties []DifficultyInfo `json:"difficulties"`
}

type DifficultyInfo struct {
	Name string `json:"name"`
	game.Profile
}

// handleDifficulties handles GET /api/difficulties
func (s *Server) handleDifficulties(w http.ResponseWriter, r *http.Request) {
	resp := DifficultiesResponse{Success: true}
	for _, tier := range game.Tiers {
		resp.Difficulties = append(resp.Difficulties, DifficultyInfo{Name: tier.String(), Profile: game.GetProfile(tier)})
	}
	s.sendJSON(w, http.StatusOK, resp)
}

/* =========================
   ROUND HISTORY
========================= */

type HistoryResponse struct {
	Success bool          `json:"success"`
	Rounds  []*play.Round `json:"rounds"`
}

// handleHistory handles GET /api/history
// Query params: player (optional), limit (optional)
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	rounds, err := db.RecentRounds(r.Context(), r.URL.Query().Get("player"), limitParam(r, config.DefaultHistorySize))
	if err != nil {
		s.logger.Error("❌ Failed to get round history", zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "Failed to retrieve history")
		return
	}
	s.sendJSON(w, http.StatusOK, HistoryResponse{Success: true, Rounds: rounds})
}

// handleRecent handles GET /api/recent, the cached feed of latest rounds.
func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	rounds, err := db.GetRecentRounds(r.Context(), limitParam(r, config.DefaultHistorySize))
	if err != nil {
		s.logger.Error("❌ Failed to get recent rounds", zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "Failed to retrieve recent rounds")
		return
	}
	s.sendJSON(w, http.StatusOK, HistoryResponse{Success: true, Rounds: rounds})
}

// handleRound handles GET /api/history/{roundID}
func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	roundID := chi.URLParam(r, "roundID")

	round, err := db.GetRound(r.Context(), roundID)
	if err != nil {
		s.logger.Error("❌ Failed to get round", zap.String("round", roundID), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "Failed to retrieve round")
		return
	}
	if round == nil {
		s.sendError(w, http.StatusNotFound, "Round not found")
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]interface{}{"success": true, "round": round})
}

/* =========================
   PLAYER STATE
========================= */

type SessionResponse struct {
	Success bool        `json:"success"`
	Session *state.View `json:"session"`
}

// handleSession handles GET /api/players/{player}/session, the last saved
// live session of a player.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")

	view, err := db.GetSessionSnapshot(r.Context(), player)
	if err != nil {
		s.logger.Error("❌ Failed to get session snapshot", zap.String("player", player), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "Failed to retrieve session")
		return
	}
	if view == nil {
		s.sendError(w, http.StatusNotFound, "No saved session")
		return
	}
	s.sendJSON(w, http.StatusOK, SessionResponse{Success: true, Session: view})
}

// handleLastRound handles GET /api/players/{player}/last
func (s *Server) handleLastRound(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")

	round, err := db.GetLastRound(r.Context(), player)
	if err != nil {
		s.logger.Error("❌ Failed to get last round", zap.String("player", player), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "Failed to retrieve last round")
		return
	}
	if round == nil {
		s.sendError(w, http.StatusNotFound, "No recent round")
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]interface{}{"success": true, "round": round})
}
