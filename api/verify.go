package api

import (
	"errors"
	"net/http"

	"crossServer/crypto"
	"crossServer/game"
)

/* =========================
   DEMO ROUND VERIFICATION
========================= */

// VerifyRequest carries the revealed inputs of a demo round.
type VerifyRequest struct {
	ServerSeed string `json:"serverSeed"`
	SeedHash   string `json:"seedHash,omitempty"`
	ClientSeed string `json:"clientSeed"`
	Nonce      uint64 `json:"nonce"`
	Difficulty string `json:"difficulty"`
	TargetLane int    `json:"targetLane"`
}

type VerifyResponse struct {
	Success bool `json:"success"`
	// HashMatches is only set when a seed hash was sent.
	HashMatches *bool        `json:"hashMatches,omitempty"`
	Outcome     game.Outcome `json:"outcome"`
}

// handleVerify handles POST /api/verify. It replays a demo round from its
// seeds so a player can check the outcome was fixed before the walk.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ServerSeed == "" || req.ClientSeed == "" {
		s.sendError(w, http.StatusBadRequest, "serverSeed and clientSeed are required")
		return
	}

	tier, ok := game.ParseTier(req.Difficulty)
	if !ok {
		s.sendError(w, http.StatusBadRequest, "Unknown difficulty")
		return
	}

	out, err := game.VerifyRound(req.ServerSeed, req.ClientSeed, req.Nonce, tier, req.TargetLane)
	if errors.Is(err, game.ErrInvalidLane) {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := VerifyResponse{Success: true, Outcome: out}
	if req.SeedHash != "" {
		matches := crypto.VerifySeed(req.ServerSeed, req.SeedHash)
		resp.HashMatches = &matches
	}
	s.sendJSON(w, http.StatusOK, resp)
}
