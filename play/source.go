// Package play runs rounds for one player: it asks an outcome source how the
// round ends, starts the session and hands it to the walk driver.
package play

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"crossServer/config"
	"crossServer/crypto"
	"crossServer/game"
	"crossServer/ledger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Mode selects where outcomes come from.
type Mode string

const (
	ModeDemo Mode = "demo"
	ModeLive Mode = "live"
)

var ErrUnknownMode = errors.New("unknown game mode")

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeDemo:
		return ModeDemo, nil
	case ModeLive:
		return ModeLive, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Request describes the round a player wants to play.
type Request struct {
	Player     string
	Tier       game.Tier
	TargetLane int
	Bet        decimal.Decimal
	ClientSeed string
}

// Source decides or relays the outcome of a round before the walk starts.
type Source interface {
	SubmitOutcome(ctx context.Context, req Request) (game.Outcome, error)
	FetchOutcome(ctx context.Context, player string) (game.Outcome, error)
}

/* =========================
   SIMULATED (DEMO)
========================= */

// SamplerFunc builds the sampler of one demo round from its seeds.
type SamplerFunc func(serverSeed, clientSeed string, nonce uint64) game.Sampler

// Simulated decides demo rounds locally with seeded randomness.
type Simulated struct {
	sampler SamplerFunc

	mu     sync.Mutex
	nonces map[string]uint64
	last   map[string]game.Outcome
}

// NewSimulated returns a demo source. A nil sampler uses game.RoundRNG, so
// rounds can be checked with game.VerifyRound.
func NewSimulated(sampler SamplerFunc) *Simulated {
	if sampler == nil {
		sampler = func(serverSeed, clientSeed string, nonce uint64) game.Sampler {
			return game.RoundRNG(serverSeed, clientSeed, nonce)
		}
	}
	return &Simulated{
		sampler: sampler,
		nonces:  make(map[string]uint64),
		last:    make(map[string]game.Outcome),
	}
}

func (s *Simulated) SubmitOutcome(ctx context.Context, req Request) (game.Outcome, error) {
	p := game.GetProfile(req.Tier)
	if !p.ValidLane(req.TargetLane) {
		return game.Outcome{}, game.ErrInvalidLane
	}

	clientSeed := req.ClientSeed
	if clientSeed == "" {
		clientSeed = crypto.GenerateClientSeed()
	}
	serverSeed, hash := crypto.GenerateServerSeed()

	s.mu.Lock()
	s.nonces[req.Player]++
	nonce := s.nonces[req.Player]
	s.mu.Unlock()

	out := game.Simulate(p, req.TargetLane, s.sampler(serverSeed, clientSeed, nonce))
	out.Seed = serverSeed
	out.SeedHash = hash
	out.ClientSeed = clientSeed
	out.Nonce = nonce
	if out.IsWin {
		out.Payout = game.ComputePayout(req.Bet, p.LaneMultipliers, out.LanesCrossed)
		out.ResultText = game.WinMessage(out.Payout)
	}

	s.mu.Lock()
	s.last[req.Player] = out
	s.mu.Unlock()

	return out, nil
}

func (s *Simulated) FetchOutcome(ctx context.Context, player string) (game.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := s.last[player]
	if !ok {
		return game.Outcome{}, fmt.Errorf("%w: no demo round played yet", game.ErrOutcomeUnavailable)
	}
	return out, nil
}

/* =========================
   LEDGER BACKED (LIVE)
========================= */

// walletLocks holds one slot per signing wallet. The contract keeps a single
// last-result slot per wallet, so rounds of one wallet must not overlap.
var walletLocks sync.Map

// lockWallet waits for the wallet's slot. The returned func releases it.
func lockWallet(ctx context.Context, player string) (func(), error) {
	v, _ := walletLocks.LoadOrStore(strings.ToLower(player), make(chan struct{}, 1))
	slot := v.(chan struct{})
	release := func() { <-slot }

	select {
	case slot <- struct{}{}:
		return release, nil
	default:
	}
	select {
	case slot <- struct{}{}:
		return release, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrBusy, ctx.Err())
	}
}

// LedgerBacked relays outcomes decided by the on-chain contract.
type LedgerBacked struct {
	client     ledger.Client
	indexDelay time.Duration
	logger     *zap.Logger
}

// NewLedgerBacked wraps client. indexDelay is how long to wait after the
// transaction is mined before the result is readable; zero uses the default.
func NewLedgerBacked(client ledger.Client, indexDelay time.Duration, logger *zap.Logger) *LedgerBacked {
	if indexDelay <= 0 {
		indexDelay = config.LedgerIndexDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerBacked{client: client, indexDelay: indexDelay, logger: logger}
}

func (l *LedgerBacked) SubmitOutcome(ctx context.Context, req Request) (game.Outcome, error) {
	if !req.Bet.IsPositive() {
		return game.Outcome{}, game.ErrInvalidBet
	}
	amount := config.TokenToWei(req.Bet)
	if amount.Sign() <= 0 {
		return game.Outcome{}, game.ErrInvalidBet
	}

	unlock, err := lockWallet(ctx, req.Player)
	if err != nil {
		return game.Outcome{}, err
	}
	defer unlock()

	tx, err := l.client.SubmitAndPlay(ctx, req.Tier, req.TargetLane, amount)
	if err != nil {
		err = ledger.Classify(err)
		l.logger.Warn("⚠️ playGame submission failed", zap.String("player", req.Player), zap.Error(err))
		return game.Outcome{}, err
	}

	l.logger.Info("⛓️ playGame mined",
		zap.String("player", req.Player),
		zap.String("tx", tx.Hash),
		zap.Uint64("block", tx.BlockNumber))

	out, err := l.resultOf(ctx, req, tx)
	if err != nil {
		return game.Outcome{}, err
	}
	out.TxHash = tx.Hash

	if out.LanesBet != req.TargetLane || out.Tier != req.Tier {
		l.logger.Warn("⚠️ Ledger result does not match the submitted round",
			zap.String("tx", tx.Hash),
			zap.Int("lanesBet", out.LanesBet),
			zap.Int("targetLane", req.TargetLane),
			zap.String("difficulty", out.Tier.String()))
		return game.Outcome{}, fmt.Errorf("%w: result is for %s lane %d, round was %s lane %d",
			game.ErrOutcomeUnavailable, out.Tier, out.LanesBet, req.Tier, req.TargetLane)
	}
	return out, nil
}

// resultOf prefers the GameResult event of the round's own receipt. Without
// one it waits for the ledger to index the round and reads the wallet's last
// result.
func (l *LedgerBacked) resultOf(ctx context.Context, req Request, tx ledger.TxRef) (game.Outcome, error) {
	if tx.Result != nil {
		return ledger.Normalize(tx.Result)
	}

	timer := time.NewTimer(l.indexDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return game.Outcome{}, fmt.Errorf("%w: %v", game.ErrOutcomeUnavailable, ctx.Err())
	case <-timer.C:
	}

	player := req.Player
	if tx.Player != "" {
		player = tx.Player
	}
	return l.FetchOutcome(ctx, player)
}

func (l *LedgerBacked) FetchOutcome(ctx context.Context, player string) (game.Outcome, error) {
	raw, err := l.client.FetchOutcome(ctx, player)
	if err != nil {
		if errors.Is(err, game.ErrOutcomeUnavailable) {
			return game.Outcome{}, err
		}
		return game.Outcome{}, fmt.Errorf("%w: %v", game.ErrOutcomeUnavailable, err)
	}
	return ledger.Normalize(raw)
}
