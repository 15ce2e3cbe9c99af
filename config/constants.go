package config

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

/* =========================
   NETWORK CONFIGURATION
========================= */

const (
	// Abstract Testnet
	DefaultRPC     = "https://api.testnet.abs.xyz"
	DefaultChainID = 11124
)

/* =========================
   CONTRACT CONFIGURATION
========================= */

const (
	// CrossForCoffee game contract and its ERC-20 bet token.
	// Both are overridable through GAME_CONTRACT / TOKEN_CONTRACT.
	DefaultGameContract  = "0x0000000000000000000000000000000000000000"
	DefaultTokenContract = "0x0000000000000000000000000000000000000000"

	// Token decimals used by the bet token and the payout field of GameResult
	TokenDecimals = 18
)

/* =========================
   GAME MECHANICS - LANE WALK
========================= */

const (
	// Walk cadence
	TickInterval   = 500 * time.Millisecond // one lane advance attempt per tick
	SettleDuration = 500 * time.Millisecond // pause on a lane before committing it
	PresentDelay   = 500 * time.Millisecond // pause before the terminal screen

	// Time the ledger needs to index a mined playGame before getLastGameResult sees it
	LedgerIndexDelay = 2 * time.Second

	// Demo wallets start with 1,000,000 tokens
	DemoStartingBalance = 1000000

	// Recent rounds kept in the shared feed
	MaxRoundHistory = 50
)

/* =========================
   REDIS TTL CONFIGURATION
========================= */

const (
	// Live session snapshot TTL (1 hour)
	// Key: cross:session:{player}
	SessionSnapshotTTL = 1 * time.Hour

	// Last authoritative outcome TTL (10 minutes)
	// Key: cross:outcome:{player}
	LastOutcomeTTL = 10 * time.Minute
)

/* =========================
   REDIS KEY PATTERNS
========================= */

const (
	RedisSessionKey     = "cross:session:%s" // cross:session:{player}
	RedisLastOutcomeKey = "cross:outcome:%s" // cross:outcome:{player}
	RedisRecentKey      = "cross:recent"     // list of the latest rounds, newest first
)

/* =========================
   POSTGRESQL CONFIGURATION
========================= */

const (
	// Connection pool settings
	MaxOpenConns    = 25
	MinIdleConns    = 5
	ConnMaxLifetime = 5 * time.Minute
)

/* =========================
   LEDGER CONFIGURATION
========================= */

const (
	// Gas limit used when estimation fails
	DefaultGasLimit = 300000

	// Extra gas on top of the estimate, in percent
	GasBufferPercent = 20
)

/* =========================
   API CONFIGURATION
========================= */

const (
	DefaultHTTPAddr = "0.0.0.0:8080"

	// Leaderboard and history page sizes
	LeaderboardSize    = 20
	DefaultHistorySize = 20
	MaxHistorySize     = 100
)

/* =========================
   WEBSOCKET CONFIGURATION
========================= */

const (
	WSReadDeadline  = 60 * time.Second
	WSWriteDeadline = 10 * time.Second
	WSPingInterval  = 30 * time.Second

	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSSendBufferSize  = 256

	MaxMessageSize = 64 * 1024 // 64KB
)

/* =========================
   HELPER FUNCTIONS
========================= */

// TokenToWei converts a token amount to its 18-decimal base units.
// Fractions below one wei are truncated.
func TokenToWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(TokenDecimals).Truncate(0).BigInt()
}

// WeiToToken converts 18-decimal base units to a token amount.
func WeiToToken(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -TokenDecimals)
}

// WeiStringToToken parses a decimal-as-integer string of base units.
func WeiStringToToken(s string) (decimal.Decimal, bool) {
	wei, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return decimal.Zero, false
	}
	return WeiToToken(wei), true
}
