// Command seed_leaderboard fills cross_history and wallet_pnl with simulated
// demo rounds so the history and leaderboard endpoints have data locally.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"crossServer/config"
	"crossServer/db"
	"crossServer/game"
	"crossServer/play"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	rounds := flag.Int("rounds", 20, "rounds per wallet")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()
	db.SetLogger(logger)

	cfg, loaded, err := config.Load()
	if err != nil {
		logger.Fatal("❌ Invalid configuration", zap.Error(err))
	}
	if !loaded {
		logger.Warn("⚠️ .env not found")
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal("❌ DATABASE_URL not set")
	}

	ctx := context.Background()
	if err := db.InitPostgres(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatal("❌ Failed to init postgres", zap.Error(err))
	}
	defer db.ClosePostgres()

	// Test wallets with different appetites
	testWallets := []struct {
		addr string
		tier game.Tier
		lane int
		bet  int64
	}{
		{"0x1234567890123456789012345678901234567890", game.Easy, 3, 10},
		{"0xABCDEF0123456789ABCDEF0123456789ABCDEF01", game.Easy, 8, 25},
		{"0x9876543210987654321098765432109876543210", game.Medium, 5, 10},
		{"0xDEADBEEF00000000000000000000000DEADBEEF", game.Medium, 10, 5},
		{"0xCAFEBABE00000000000000000000000CAFEBABE", game.Hard, 4, 20},
		{"0xFEEDFACE00000000000000000000000FEEDFACE", game.Hard, 14, 1},
		{"0xBAADF00D00000000000000000000000BAADF00D", game.Daredevil, 2, 50},
		{"0x8BADF00D00000000000000000000000000000000", game.Daredevil, 16, 1},
	}

	source := play.NewSimulated(nil)
	fmt.Println("Seeding cross history with simulated rounds...")

	for _, w := range testWallets {
		bet := decimal.NewFromInt(w.bet)
		for i := 0; i < *rounds; i++ {
			out, err := source.SubmitOutcome(ctx, play.Request{Player: w.addr, Tier: w.tier, TargetLane: w.lane, Bet: bet})
			if err != nil {
				logger.Fatal("❌ Simulation failed", zap.Error(err))
			}

			// Seeded wallets stand in for live players. Demo rounds stay off the board.
			ended := time.Now()
			round := play.Round{
				ID:           uuid.NewString(),
				Player:       w.addr,
				Mode:         play.ModeLive,
				Tier:         w.tier,
				TargetLane:   w.lane,
				LanesCrossed: out.LanesCrossed,
				Bet:          bet,
				Win:          out.IsWin,
				Payout:       out.Payout,
				Accident:     out.Accident,
				Seed:         out.Seed,
				SeedHash:     out.SeedHash,
				ClientSeed:   out.ClientSeed,
				Nonce:        out.Nonce,
				StartedAt:    ended.Add(-time.Duration(out.LanesCrossed+1) * config.TickInterval),
				EndedAt:      ended,
			}
			if err := db.StoreRound(ctx, round); err != nil {
				logger.Warn("⚠️ Failed to store round", zap.String("wallet", w.addr[:10]), zap.Error(err))
			}
		}
		fmt.Printf("  %s... %s lane %d x%d\n", w.addr[:10], w.tier, w.lane, *rounds)
	}

	fmt.Println("\nDone! Testing leaderboard...")

	records, err := db.GetWalletPnLLeaderboard(ctx, config.LeaderboardSize)
	if err != nil {
		logger.Fatal("❌ Failed to get leaderboard", zap.Error(err))
	}

	fmt.Printf("\nLeaderboard (%d entries):\n", len(records))
	for _, r := range records {
		fmt.Printf("  #%d %s... %s over %d rounds\n", r.Rank, r.WalletAddress[:10], r.Amount.StringFixed(2), r.Rounds)
	}
}
