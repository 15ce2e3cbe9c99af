// api/leaderboard.go
package api

import (
	"net/http"

	"crossServer/config"
	"crossServer/db"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

/* =========================
   RESPONSE TYPES
========================= */

// LeaderboardEntryResponse represents a single leaderboard entry
type LeaderboardEntryResponse struct {
	Rank          int             `json:"rank"`
	WalletAddress string          `json:"walletAddress"`
	Pnl           decimal.Decimal `json:"pnl"`
	Rounds        int             `json:"rounds"`
}

// LeaderboardResponse represents the leaderboard API response
type LeaderboardResponse struct {
	Success      bool                       `json:"success"`
	Leaderboard  []LeaderboardEntryResponse `json:"leaderboard"`
	UserPosition *LeaderboardEntryResponse  `json:"userPosition,omitempty"`
}

func entryFrom(record *db.WalletPnLRecord) LeaderboardEntryResponse {
	return LeaderboardEntryResponse{
		Rank:          record.Rank,
		WalletAddress: record.WalletAddress,
		Pnl:           record.Amount,
		Rounds:        record.Rounds,
	}
}

/* =========================
   HTTP ENDPOINTS
========================= */

// handleLeaderboard handles GET /api/leaderboard
// Query params: wallet (optional) - get user's position
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := db.GetWalletPnLLeaderboard(ctx, config.LeaderboardSize)
	if err != nil {
		s.logger.Error("❌ Failed to get leaderboard", zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "Failed to retrieve leaderboard")
		return
	}

	response := LeaderboardResponse{
		Success:     true,
		Leaderboard: make([]LeaderboardEntryResponse, 0, len(records)),
	}
	for _, record := range records {
		response.Leaderboard = append(response.Leaderboard, entryFrom(record))
	}

	// Players outside the top list still get their own position
	if wallet := r.URL.Query().Get("wallet"); wallet != "" {
		inTop := false
		for _, entry := range response.Leaderboard {
			if entry.WalletAddress == wallet {
				inTop = true
				break
			}
		}

		if !inTop {
			record, err := db.GetWalletPnLRank(ctx, wallet)
			if err != nil {
				s.logger.Warn("⚠️ Failed to get user rank", zap.String("wallet", wallet), zap.Error(err))
			} else if record != nil {
				entry := entryFrom(record)
				response.UserPosition = &entry
			}
		}
	}

	s.sendJSON(w, http.StatusOK, response)
	s.logger.Debug("📋 Retrieved leaderboard", zap.Int("entries", len(records)))
}
