package db

import (
	"context"
	"os"
	"testing"
	"time"

	"crossServer/game"
	"crossServer/play"
	"crossServer/state"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func testRound(player string, bet, payout int64, win bool) play.Round {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return play.Round{
		ID:           uuid.NewString(),
		Player:       player,
		Mode:         play.ModeLive,
		Tier:         game.Easy,
		TargetLane:   3,
		LanesCrossed: 3,
		Bet:          decimal.NewFromInt(bet),
		Win:          win,
		Payout:       decimal.NewFromInt(payout),
		TxHash:       "0xabc",
		StartedAt:    now.Add(-2 * time.Second),
		EndedAt:      now,
	}
}

func TestCrossHistoryAndPnL(t *testing.T) {
	_ = godotenv.Load("../.env")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	if err := InitPostgres(ctx, databaseURL); err != nil {
		t.Fatalf("Failed to init postgres: %v", err)
	}
	defer ClosePostgres()

	testWallet := "0xTestWallet" + uuid.NewString()[:8]
	defer func() {
		_, _ = PostgresPool.Exec(ctx, "DELETE FROM cross_history WHERE player_address = $1", testWallet)
		_, _ = PostgresPool.Exec(ctx, "DELETE FROM wallet_pnl WHERE wallet_address = $1", testWallet)
	}()

	win := testRound(testWallet, 10, 36, true)
	loss := testRound(testWallet, 25, 0, false)
	loss.EndedAt = win.EndedAt.Add(time.Second)

	t.Run("StoreRound", func(t *testing.T) {
		if err := StoreRound(ctx, win); err != nil {
			t.Fatalf("StoreRound failed: %v", err)
		}
		if err := StoreRound(ctx, loss); err != nil {
			t.Fatalf("StoreRound failed: %v", err)
		}
		// A duplicate must not count twice.
		if err := StoreRound(ctx, win); err != nil {
			t.Fatalf("StoreRound duplicate failed: %v", err)
		}
		// Demo rounds are stored but stay off the leaderboard.
		demo := testRound(testWallet, 10, 500, true)
		demo.Mode = play.ModeDemo
		demo.EndedAt = win.EndedAt.Add(-time.Second)
		if err := StoreRound(ctx, demo); err != nil {
			t.Fatalf("StoreRound demo failed: %v", err)
		}
	})

	t.Run("GetRound", func(t *testing.T) {
		got, err := GetRound(ctx, win.ID)
		if err != nil || got == nil {
			t.Fatalf("GetRound failed: %v", err)
		}
		if !got.Payout.Equal(win.Payout) || got.Tier != game.Easy || got.TxHash != "0xabc" {
			t.Errorf("unexpected round %+v", got)
		}
		missing, err := GetRound(ctx, uuid.NewString())
		if err != nil || missing != nil {
			t.Errorf("expected nil for a missing round, got %+v / %v", missing, err)
		}
	})

	t.Run("RecentRounds", func(t *testing.T) {
		rounds, err := RecentRounds(ctx, testWallet, 10)
		if err != nil {
			t.Fatalf("RecentRounds failed: %v", err)
		}
		if len(rounds) != 3 || rounds[0].ID != loss.ID {
			t.Errorf("expected 3 rounds newest first, got %d", len(rounds))
		}
	})

	t.Run("WalletPnL", func(t *testing.T) {
		record, err := GetWalletPnLRank(ctx, testWallet)
		if err != nil || record == nil {
			t.Fatalf("GetWalletPnLRank failed: %v", err)
		}
		// +26 on the win, -25 on the loss
		if !record.Amount.Equal(decimal.NewFromInt(1)) || record.Rounds != 2 {
			t.Errorf("expected pnl 1 over 2 rounds, got %s over %d", record.Amount, record.Rounds)
		}
		if record.Rank < 1 {
			t.Errorf("expected a rank, got %d", record.Rank)
		}

		board, err := GetWalletPnLLeaderboard(ctx, 1000)
		if err != nil {
			t.Fatalf("GetWalletPnLLeaderboard failed: %v", err)
		}
		for i := 1; i < len(board); i++ {
			if board[i].Amount.GreaterThan(board[i-1].Amount) {
				t.Fatalf("leaderboard not sorted at %d", i)
			}
		}
	})
}

func TestSessionSnapshots(t *testing.T) {
	_ = godotenv.Load("../.env")

	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		t.Skip("REDIS_URL not set")
	}

	ctx := context.Background()
	if err := InitRedis(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0); err != nil {
		t.Fatalf("Failed to init redis: %v", err)
	}
	defer CloseRedis()

	player := "0xSnapshot" + uuid.NewString()[:8]
	defer DeleteSessionSnapshot(ctx, player)

	s := state.NewSession(decimal.NewFromInt(1000))
	if _, err := s.Start(4, decimal.NewFromInt(100), game.GetProfile(game.Medium), 2); err != nil {
		t.Fatal(err)
	}
	if err := SaveSessionSnapshot(ctx, player, s.Snapshot()); err != nil {
		t.Fatalf("SaveSessionSnapshot failed: %v", err)
	}

	view, err := GetSessionSnapshot(ctx, player)
	if err != nil || view == nil {
		t.Fatalf("GetSessionSnapshot failed: %v", err)
	}
	if view.TargetLane != 4 || !view.Balance.Equal(decimal.NewFromInt(900)) || view.Difficulty != game.Medium {
		t.Errorf("unexpected snapshot %+v", view)
	}

	ttl := RedisClient.TTL(ctx, "cross:session:"+player).Val()
	if ttl <= 0 || ttl > time.Hour {
		t.Errorf("expected a TTL of at most an hour, got %v", ttl)
	}

	round := testRound(player, 5, 0, false)
	if err := CacheRound(ctx, round); err != nil {
		t.Fatalf("CacheRound failed: %v", err)
	}
	last, err := GetLastRound(ctx, player)
	if err != nil || last == nil || last.ID != round.ID {
		t.Errorf("expected cached round %s, got %+v / %v", round.ID, last, err)
	}
	RedisClient.Del(ctx, "cross:outcome:"+player)
}
