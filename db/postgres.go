package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crossServer/config"
	"crossServer/game"
	"crossServer/play"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// PostgresPool is the global PostgreSQL connection pool
	PostgresPool *pgxpool.Pool

	logger = zap.NewNop()
)

// SetLogger sets the logger used by the package.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}

// InitPostgres opens the pool and creates the schema.
func InitPostgres(ctx context.Context, databaseURL string) error {
	logger.Info("🔌 Connecting to PostgreSQL...")

	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = config.MaxOpenConns
	poolConfig.MinConns = config.MinIdleConns
	poolConfig.MaxConnLifetime = config.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	PostgresPool = pool

	logger.Info("✅ PostgreSQL connected successfully")

	if err := InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// ClosePostgres closes the PostgreSQL connection pool
func ClosePostgres() {
	if PostgresPool != nil {
		logger.Info("🔌 Closing PostgreSQL connection...")
		PostgresPool.Close()
		PostgresPool = nil
	}
}

// InitSchema creates the database tables if they don't exist
func InitSchema(ctx context.Context) error {
	logger.Info("📋 Initializing database schema...")

	crossHistorySchema := `
	CREATE TABLE IF NOT EXISTS cross_history (
		id SERIAL PRIMARY KEY,
		round_id TEXT NOT NULL UNIQUE,
		player_address TEXT NOT NULL,
		mode TEXT NOT NULL,
		difficulty SMALLINT NOT NULL,
		target_lane SMALLINT NOT NULL,
		lanes_crossed SMALLINT NOT NULL,
		bet_amount NUMERIC NOT NULL,
		payout_amount NUMERIC NOT NULL DEFAULT 0,
		win BOOLEAN NOT NULL,
		cashed_out BOOLEAN NOT NULL DEFAULT FALSE,
		accident TEXT NOT NULL DEFAULT '',
		server_seed TEXT NOT NULL DEFAULT '',
		seed_hash TEXT NOT NULL DEFAULT '',
		client_seed TEXT NOT NULL DEFAULT '',
		nonce BIGINT NOT NULL DEFAULT 0,
		transaction_hash TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	-- Index on player_address for player history
	CREATE INDEX IF NOT EXISTS idx_cross_history_player ON cross_history(player_address, ended_at DESC);

	-- Index on ended_at for the recent feed
	CREATE INDEX IF NOT EXISTS idx_cross_history_ended_at ON cross_history(ended_at DESC);
	`

	if _, err := PostgresPool.Exec(ctx, crossHistorySchema); err != nil {
		return fmt.Errorf("failed to create cross_history table: %w", err)
	}

	walletPnLSchema := `
	CREATE TABLE IF NOT EXISTS wallet_pnl (
		wallet_address TEXT PRIMARY KEY,
		amount NUMERIC NOT NULL DEFAULT 0,
		rounds INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_wallet_pnl_amount ON wallet_pnl(amount DESC);
	`

	if _, err := PostgresPool.Exec(ctx, walletPnLSchema); err != nil {
		return fmt.Errorf("failed to create wallet_pnl table: %w", err)
	}

	logger.Info("✅ Database schema initialized")
	return nil
}

// HealthCheckPostgres pings the pool.
func HealthCheckPostgres(ctx context.Context) error {
	if PostgresPool == nil {
		return fmt.Errorf("PostgreSQL not initialized")
	}
	return PostgresPool.Ping(ctx)
}

/* =========================
   CROSS GAME HISTORY
========================= */

const roundColumns = `
	round_id, player_address, mode, difficulty, target_lane, lanes_crossed,
	bet_amount::text, payout_amount::text, win, cashed_out, accident,
	server_seed, seed_hash, client_seed, nonce, transaction_hash,
	started_at, ended_at`

// StoreRound inserts a finished round and, for live rounds, applies its
// profit to the wallet's PnL in one transaction. Demo rounds are play money
// and never reach the leaderboard. A round already stored is ignored.
func StoreRound(ctx context.Context, round play.Round) error {
	if PostgresPool == nil {
		logger.Warn("⚠️ PostgreSQL not initialized, skipping round storage")
		return nil
	}

	err := pgx.BeginFunc(ctx, PostgresPool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO cross_history (
				round_id, player_address, mode, difficulty, target_lane, lanes_crossed,
				bet_amount, payout_amount, win, cashed_out, accident,
				server_seed, seed_hash, client_seed, nonce, transaction_hash,
				started_at, ended_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7::text::numeric, $8::text::numeric, $9, $10, $11,
				$12, $13, $14, $15, $16, $17, $18)
			ON CONFLICT (round_id) DO NOTHING`,
			round.ID, round.Player, string(round.Mode), int16(round.Tier), round.TargetLane, round.LanesCrossed,
			round.Bet.String(), round.Payout.String(), round.Win, round.CashedOut, string(round.Accident),
			round.Seed, round.SeedHash, round.ClientSeed, int64(round.Nonce), round.TxHash,
			round.StartedAt, round.EndedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert round: %w", err)
		}
		if tag.RowsAffected() == 0 || round.Mode != play.ModeLive {
			return nil
		}
		return addWalletPnL(ctx, tx, round.Player, round.Profit())
	})
	if err != nil {
		return err
	}

	logger.Debug("💾 Stored round", zap.String("round", round.ID), zap.String("player", round.Player))
	return nil
}

// GetRound returns one round by id, or nil when it does not exist.
func GetRound(ctx context.Context, roundID string) (*play.Round, error) {
	if PostgresPool == nil {
		return nil, nil
	}

	row := PostgresPool.QueryRow(ctx, `SELECT `+roundColumns+` FROM cross_history WHERE round_id = $1`, roundID)
	round, err := scanRound(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return round, nil
}

// RecentRounds returns the latest rounds, newest first. An empty player
// returns rounds of every player.
func RecentRounds(ctx context.Context, player string, limit int) ([]*play.Round, error) {
	if PostgresPool == nil {
		return []*play.Round{}, nil
	}

	var (
		rows pgx.Rows
		err  error
	)
	if player == "" {
		rows, err = PostgresPool.Query(ctx,
			`SELECT `+roundColumns+` FROM cross_history ORDER BY ended_at DESC LIMIT $1`, limit)
	} else {
		rows, err = PostgresPool.Query(ctx,
			`SELECT `+roundColumns+` FROM cross_history WHERE player_address = $1 ORDER BY ended_at DESC LIMIT $2`,
			player, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cross history: %w", err)
	}
	defer rows.Close()

	rounds := []*play.Round{}
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rounds = append(rounds, round)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return rounds, nil
}

func scanRound(row pgx.Row) (*play.Round, error) {
	var (
		r              play.Round
		mode, accident string
		tier           int16
		bet, payout    string
		nonce          int64
	)
	err := row.Scan(
		&r.ID, &r.Player, &mode, &tier, &r.TargetLane, &r.LanesCrossed,
		&bet, &payout, &r.Win, &r.CashedOut, &accident,
		&r.Seed, &r.SeedHash, &r.ClientSeed, &nonce, &r.TxHash,
		&r.StartedAt, &r.EndedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Mode = play.Mode(mode)
	r.Tier = game.Tier(tier)
	r.Accident = game.AccidentKind(accident)
	r.Nonce = uint64(nonce)
	if r.Bet, err = decimal.NewFromString(bet); err != nil {
		return nil, fmt.Errorf("bad bet amount %q: %w", bet, err)
	}
	if r.Payout, err = decimal.NewFromString(payout); err != nil {
		return nil, fmt.Errorf("bad payout amount %q: %w", payout, err)
	}
	return &r, nil
}

/* =========================
   WALLET PNL
========================= */

// WalletPnLRecord represents a wallet's cumulative PnL
type WalletPnLRecord struct {
	WalletAddress string          `json:"walletAddress"`
	Amount        decimal.Decimal `json:"amount"`
	Rounds        int             `json:"rounds"`
	Rank          int             `json:"rank,omitempty"`
}

func addWalletPnL(ctx context.Context, tx pgx.Tx, walletAddress string, profit decimal.Decimal) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO wallet_pnl (wallet_address, amount, rounds)
		VALUES ($1, $2::text::numeric, 1)
		ON CONFLICT (wallet_address) DO UPDATE
		SET amount = wallet_pnl.amount + EXCLUDED.amount,
		    rounds = wallet_pnl.rounds + 1`,
		walletAddress, profit.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update wallet PnL: %w", err)
	}
	logger.Debug("📈 Wallet PnL updated", zap.String("wallet", walletAddress), zap.String("profit", profit.String()))
	return nil
}

// GetWalletPnLLeaderboard returns top N wallets sorted by PnL descending
func GetWalletPnLLeaderboard(ctx context.Context, limit int) ([]*WalletPnLRecord, error) {
	if PostgresPool == nil {
		return []*WalletPnLRecord{}, nil
	}

	rows, err := PostgresPool.Query(ctx, `
		SELECT wallet_address, amount::text, rounds,
		       ROW_NUMBER() OVER (ORDER BY amount DESC) AS rank
		FROM wallet_pnl
		ORDER BY amount DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	records := []*WalletPnLRecord{}
	for rows.Next() {
		record, err := scanWalletPnL(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}

// GetWalletPnLRank returns a specific wallet's rank and PnL, or nil when
// the wallet has never played.
func GetWalletPnLRank(ctx context.Context, walletAddress string) (*WalletPnLRecord, error) {
	if PostgresPool == nil {
		return nil, nil
	}

	row := PostgresPool.QueryRow(ctx, `
		SELECT wallet_address, amount, rounds, rank FROM (
			SELECT wallet_address, amount::text AS amount, rounds,
			       ROW_NUMBER() OVER (ORDER BY wallet_pnl.amount DESC) AS rank
			FROM wallet_pnl
		) ranked
		WHERE wallet_address = $1`, walletAddress)

	record, err := scanWalletPnL(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet rank: %w", err)
	}
	return record, nil
}

func scanWalletPnL(row pgx.Row) (*WalletPnLRecord, error) {
	var (
		record WalletPnLRecord
		amount string
		rank   int64
	)
	if err := row.Scan(&record.WalletAddress, &amount, &record.Rounds, &rank); err != nil {
		return nil, err
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("bad pnl amount %q: %w", amount, err)
	}
	record.Amount = value
	record.Rank = int(rank)
	return &record, nil
}
