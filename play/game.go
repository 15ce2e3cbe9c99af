package play

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"crossServer/config"
	"crossServer/game"
	"crossServer/ledger"
	"crossServer/state"
	"crossServer/walk"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrBusy               = errors.New("a round is already being submitted")
	ErrCashOutUnavailable = errors.New("cash out is only available in demo mode")
	ErrInvalidDifficulty  = errors.New("invalid difficulty")
	ErrNoLedger           = errors.New("live mode needs a ledger client")
)

const persistTimeout = 5 * time.Second

// BalanceReader is implemented by ledger clients that can read the player's
// token balance.
type BalanceReader interface {
	Balance(ctx context.Context, player string) (*big.Int, error)
}

// Options configures a Game. Ledger is required in live mode; Sampler is
// only used in demo mode.
type Options struct {
	Mode    Mode
	Player  string
	Balance decimal.Decimal
	Timing  walk.Timing

	Ledger     ledger.Client
	IndexDelay time.Duration
	Sampler    SamplerFunc

	Recorder Recorder
	OnRound  RoundListener
	Listener walk.Listener
	Logger   *zap.Logger
}

// Game is one player's table: the selection for the next round, the
// session and the driver that walks it.
type Game struct {
	mode     Mode
	player   string
	source   Source
	balances BalanceReader
	session  *state.Session
	driver   *walk.Driver
	recorder Recorder
	onRound  RoundListener
	logger   *zap.Logger

	mu         sync.Mutex
	tier       game.Tier
	targetLane int
	bet        decimal.Decimal
	clientSeed string
	busy       bool
	current    *game.Outcome
}

// Snapshot is the player-facing view of a Game.
type Snapshot struct {
	state.View
	Mode               Mode            `json:"mode"`
	Player             string          `json:"player"`
	SelectedDifficulty game.Tier       `json:"selectedDifficulty"`
	SelectedLane       int             `json:"selectedLane"`
	SelectedBet        decimal.Decimal `json:"selectedBet"`
	Submitting         bool            `json:"submitting"`
	Profile            game.Profile    `json:"profile"`
}

func NewGame(opts Options) (*Game, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("player", opts.Player), zap.String("mode", string(opts.Mode)))

	g := &Game{
		mode:     opts.Mode,
		player:   opts.Player,
		session:  state.NewSession(opts.Balance),
		recorder: opts.Recorder,
		onRound:  opts.OnRound,
		logger:   logger,
		tier:     game.Easy,
		bet:      decimal.Zero,
	}

	switch opts.Mode {
	case ModeDemo:
		g.source = NewSimulated(opts.Sampler)
	case ModeLive:
		if opts.Ledger == nil {
			return nil, ErrNoLedger
		}
		g.source = NewLedgerBacked(opts.Ledger, opts.IndexDelay, logger)
		if br, ok := opts.Ledger.(BalanceReader); ok {
			g.balances = br
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, opts.Mode)
	}

	timing := opts.Timing
	if timing == (walk.Timing{}) {
		timing = walk.DefaultTiming()
	}

	listeners := walk.MultiListener{roundTracker{g}}
	if opts.Listener != nil {
		listeners = append(listeners, opts.Listener)
	}
	g.driver = walk.NewDriver(g.session, timing, listeners, logger)

	return g, nil
}

func (g *Game) Mode() Mode     { return g.mode }
func (g *Game) Player() string { return g.player }

/* =========================
   SELECTION
========================= */

func (g *Game) walking() bool {
	return g.session.Active() && !g.session.Over()
}

// SelectLane picks the target lane for the next round.
func (g *Game) SelectLane(lane int) error {
	if g.walking() {
		return state.ErrSessionActive
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !game.GetProfile(g.tier).ValidLane(lane) {
		return game.ErrInvalidLane
	}
	g.targetLane = lane
	return nil
}

func (g *Game) SetBet(amount decimal.Decimal) error {
	if g.walking() {
		return state.ErrSessionActive
	}
	if !amount.IsPositive() {
		return game.ErrInvalidBet
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bet = amount
	return nil
}

// SetDifficulty switches tier. A selected lane the new tier does not have
// is cleared.
func (g *Game) SetDifficulty(tier game.Tier) error {
	if g.walking() {
		return state.ErrSessionActive
	}
	if !tier.Valid() {
		return ErrInvalidDifficulty
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tier = tier
	if !game.GetProfile(tier).ValidLane(g.targetLane) {
		g.targetLane = 0
	}
	return nil
}

// SetClientSeed fixes the client seed of demo rounds. Empty picks a random one per round.
func (g *Game) SetClientSeed(seed string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clientSeed = seed
}

/* =========================
   ROUNDS
========================= */

// Start plays a round with the current selection. Validation happens before
// any ledger call; on a source error the session stays inactive and the
// balance untouched. The walk itself runs in the background.
func (g *Game) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.busy {
		g.mu.Unlock()
		return ErrBusy
	}
	req := Request{
		Player:     g.player,
		Tier:       g.tier,
		TargetLane: g.targetLane,
		Bet:        g.bet,
		ClientSeed: g.clientSeed,
	}
	profile := game.GetProfile(req.Tier)
	if err := g.session.Validate(req.TargetLane, req.Bet, profile); err != nil {
		g.mu.Unlock()
		return err
	}
	g.busy = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.busy = false
		g.mu.Unlock()
	}()

	out, err := g.source.SubmitOutcome(ctx, req)
	if err != nil {
		g.logger.Warn("⚠️ Round not started", zap.Error(err))
		return err
	}

	epoch, err := g.session.Start(req.TargetLane, req.Bet, profile, out.LanesCrossed)
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.current = &out
	g.mu.Unlock()

	g.logger.Info("🚦 Round started",
		zap.String("difficulty", req.Tier.String()),
		zap.Int("targetLane", req.TargetLane),
		zap.String("bet", req.Bet.String()))

	g.saveSnapshot()
	return g.driver.Run(g.planFor(epoch, out, g.mode == ModeLive))
}

func (g *Game) planFor(epoch uint64, out game.Outcome, authoritative bool) walk.Plan {
	return walk.Plan{
		Epoch:         epoch,
		Win:           out.IsWin,
		Authoritative: authoritative,
		Payout:        out.Payout,
		Reason:        out.ResultText,
		Kind:          out.Accident,
	}
}

// CashOut ends a demo walk early and pays for the lanes crossed so far.
func (g *Game) CashOut() (decimal.Decimal, error) {
	if g.mode != ModeDemo {
		return decimal.Zero, ErrCashOutUnavailable
	}

	return g.driver.CashOut()
}

// Reset abandons the current walk, if any, and clears the session.
func (g *Game) Reset() {
	g.driver.Reset()
	g.mu.Lock()
	g.current = nil
	g.mu.Unlock()
}

// ReplayLast walks the player's last recorded round again. Balance and
// totals are not touched.
func (g *Game) ReplayLast(ctx context.Context) error {
	if g.walking() {
		return state.ErrSessionActive
	}

	g.mu.Lock()
	if g.busy {
		g.mu.Unlock()
		return ErrBusy
	}
	g.busy = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.busy = false
		g.mu.Unlock()
	}()

	out, err := g.source.FetchOutcome(ctx, g.player)
	if err != nil {
		return err
	}

	epoch, err := g.session.StartReplay(out.LanesBet, game.GetProfile(out.Tier), out.LanesCrossed)
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.current = &out
	g.mu.Unlock()

	g.logger.Info("🔁 Replaying last round", zap.Int("lanesCrossed", out.LanesCrossed), zap.Bool("win", out.IsWin))
	return g.driver.Run(g.planFor(epoch, out, true))
}

// LastOutcome returns the player's last recorded round.
func (g *Game) LastOutcome(ctx context.Context) (game.Outcome, error) {
	return g.source.FetchOutcome(ctx, g.player)
}

// RefreshBalance replaces the session balance with the on-chain token
// balance. It is a no-op in demo mode.
func (g *Game) RefreshBalance(ctx context.Context) error {
	if g.balances == nil {
		return nil
	}
	wei, err := g.balances.Balance(ctx, g.player)
	if err != nil {
		return ledger.Classify(err)
	}
	g.session.SetBalance(config.WeiToToken(wei))
	return nil
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	tier, lane, bet, busy := g.tier, g.targetLane, g.bet, g.busy
	g.mu.Unlock()

	return Snapshot{
		View:               g.session.Snapshot(),
		Mode:               g.mode,
		Player:             g.player,
		SelectedDifficulty: tier,
		SelectedLane:       lane,
		SelectedBet:        bet,
		Submitting:         busy,
		Profile:            game.GetProfile(tier),
	}
}

// Done is closed when the current walk ends or is torn down.
func (g *Game) Done() <-chan struct{} {
	return g.driver.Done()
}

// Close stops the walk. A live round still walking has already settled on
// the ledger, so its outcome is written to the session and recorded.
func (g *Game) Close() {
	g.driver.Stop()
	if g.mode != ModeLive {
		return
	}

	v := g.session.Snapshot()
	if !v.Active || v.Over || v.Replay {
		return
	}
	g.mu.Lock()
	out := g.current
	g.mu.Unlock()
	if out == nil {
		return
	}

	// The epoch-scoped write loses to a terminal the driver already wrote,
	// which records the round itself.
	if out.IsWin {
		if !g.session.EndWinFor(v.Epoch, out.Payout) {
			return
		}
	} else if !g.session.EndLossFor(v.Epoch, out.ResultText, out.Accident) {
		return
	}

	g.logger.Info("🔌 Recording settled round on close",
		zap.Int("lanesCrossed", out.LanesCrossed),
		zap.Bool("win", out.IsWin))

	payout := decimal.Zero
	if out.IsWin {
		payout = out.Payout
	}
	v = g.session.Snapshot()
	go g.persist(g.newRound(v, out.LanesCrossed, out.IsWin, payout, out.Accident, out), v)
}

/* =========================
   ROUND TRACKING
========================= */

// roundTracker turns terminal events into recorded rounds.
type roundTracker struct {
	g *Game
}

func (t roundTracker) OnLaneChanged(int) {
	t.g.saveSnapshot()
}

func (t roundTracker) OnTerminal(win bool, amount decimal.Decimal, kind game.AccidentKind) {
	g := t.g
	v := g.session.Snapshot()
	if v.Replay {
		return
	}

	g.mu.Lock()
	out := g.current
	g.mu.Unlock()

	round := g.newRound(v, v.Lane, win, amount, kind, out)
	go g.persist(round, v)
}

func (g *Game) newRound(v state.View, lanes int, win bool, amount decimal.Decimal, kind game.AccidentKind, out *game.Outcome) Round {
	round := Round{
		ID:           v.ID,
		Player:       g.player,
		Mode:         g.mode,
		Tier:         v.Difficulty,
		TargetLane:   v.TargetLane,
		LanesCrossed: lanes,
		Bet:          v.BetAmount,
		Win:          win,
		Payout:       amount,
		CashedOut:    v.CashedOut,
		Accident:     kind,
		StartedAt:    v.StartedAt,
		EndedAt:      time.Now(),
	}
	if out != nil {
		round.Seed = out.Seed
		round.SeedHash = out.SeedHash
		round.ClientSeed = out.ClientSeed
		round.Nonce = out.Nonce
		round.TxHash = out.TxHash
	}
	return round
}

func (t roundTracker) OnSessionReset() {
	t.g.saveSnapshot()
}

func (g *Game) persist(round Round, v state.View) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if g.recorder != nil {
		if err := g.recorder.RecordRound(ctx, round); err != nil {
			g.logger.Warn("⚠️ Failed to record round", zap.String("round", round.ID), zap.Error(err))
		}
		if g.mode == ModeLive {
			if err := g.recorder.SaveSnapshot(ctx, g.player, v); err != nil {
				g.logger.Warn("⚠️ Failed to save session snapshot", zap.Error(err))
			}
		}
	}

	if err := g.RefreshBalance(ctx); err != nil {
		g.logger.Warn("⚠️ Failed to refresh balance", zap.Error(err))
	}

	if g.onRound != nil {
		g.onRound(round)
	}
}

// saveSnapshot stores the live session in the background. Demo sessions are
// not persisted.
func (g *Game) saveSnapshot() {
	if g.recorder == nil || g.mode != ModeLive {
		return
	}
	v := g.session.Snapshot()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := g.recorder.SaveSnapshot(ctx, g.player, v); err != nil {
			g.logger.Warn("⚠️ Failed to save session snapshot", zap.Error(err))
		}
	}()
}
