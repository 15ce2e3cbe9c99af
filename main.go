package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crossServer/api"
	"crossServer/config"
	"crossServer/contract"
	"crossServer/db"
	"crossServer/play"
	"crossServer/walk"
	"crossServer/ws"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.AppEnv == "production" {
		zc = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc.Level = level
	return zc.Build()
}

func main() {
	cfg, loaded, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if loaded {
		logger.Info("✅ Loaded environment variables from .env")
	} else {
		logger.Warn("⚠️ .env file not found, using environment variables")
	}

	mode, err := play.ParseMode(cfg.Mode)
	if err != nil {
		logger.Fatal("❌ Invalid game mode", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db.SetLogger(logger)
	if err := db.InitPostgres(ctx, cfg.DatabaseURL); err != nil {
		logger.Warn("⚠️ PostgreSQL initialization failed, round history and leaderboard disabled", zap.Error(err))
	}
	defer db.ClosePostgres()

	if err := db.InitRedis(ctx, cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB); err != nil {
		logger.Warn("⚠️ Redis initialization failed, session snapshots disabled", zap.Error(err))
	}
	defer db.CloseRedis()

	// Live rounds are decided by the contract
	var crossing *contract.CrossingContract
	if mode == play.ModeLive {
		crossing, err = contract.NewCrossingContract(contract.Config{
			RPCURL:        cfg.RPCURL,
			ChainID:       cfg.ChainID,
			GameAddress:   cfg.GameContract,
			TokenAddress:  cfg.TokenContract,
			PrivateKeyHex: cfg.PlayerPrivateKey,
		}, logger)
		if err != nil {
			logger.Fatal("❌ Contract client initialization failed", zap.Error(err))
		}
		defer crossing.Close()
	}

	newGame := func(player string, listener walk.Listener, onRound play.RoundListener) (*play.Game, error) {
		opts := play.Options{
			Mode:     mode,
			Player:   player,
			Balance:  cfg.DemoBalance,
			Recorder: db.Recorder{},
			OnRound:  onRound,
			Listener: listener,
			Logger:   logger,
		}
		if crossing != nil {
			// One signing wallet: every live connection plays as it.
			opts.Player = crossing.Player()
			opts.Ledger = crossing
			opts.Balance = decimal.Zero
		}

		g, err := play.NewGame(opts)
		if err != nil {
			return nil, err
		}

		rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := g.RefreshBalance(rctx); err != nil {
			logger.Warn("⚠️ Failed to read token balance", zap.String("player", g.Player()), zap.Error(err))
		}
		return g, nil
	}

	hub := ws.NewHub(newGame, db.GetRecentRounds, logger)
	go hub.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewServer(hub, mode, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("🛑 Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("⚠️ Shutdown error", zap.Error(err))
		}
	}()

	logger.Info("🚀 Server starting",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("mode", string(mode)))
	logger.Info("📡 WebSocket endpoint: /ws?player=<id>")
	logger.Info("🔌 API endpoints: /api/health /api/difficulties /api/history /api/recent /api/leaderboard /api/verify")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("❌ Server error", zap.Error(err))
	}
}
