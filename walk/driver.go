package walk

import (
	"errors"
	"sync"
	"time"

	"crossServer/config"
	"crossServer/game"
	"crossServer/state"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

/* =========================
   AUTO-WALK DRIVER
========================= */

var (
	// ErrAnimationInvariant names the clamp taken when the lane overshoots
	// the stopping lane. It is logged, never returned to players.
	ErrAnimationInvariant = errors.New("animation invariant violated")

	ErrNotStarted       = errors.New("session is not active for this walk")
	ErrNothingToCashOut = errors.New("no lane crossed yet")
	ErrNotWalking       = errors.New("no walk in progress")
)

// Timing is the walk cadence.
type Timing struct {
	Tick    time.Duration // interval between advance attempts
	Settle  time.Duration // pause on a lane before it is committed
	Present time.Duration // pause before the terminal state is written
}

func DefaultTiming() Timing {
	return Timing{
		Tick:    config.TickInterval,
		Settle:  config.SettleDuration,
		Present: config.PresentDelay,
	}
}

// Plan tells the driver how the attempt owned by Epoch ends. The stopping
// lane itself is already recorded on the session.
type Plan struct {
	Epoch uint64
	Win   bool

	// Authoritative plans carry the ledger's payout. Otherwise a win pays
	// ComputePayout over the lanes actually crossed.
	Authoritative bool
	Payout        decimal.Decimal

	Reason string
	Kind   game.AccidentKind
}

type run struct {
	plan Plan

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	doneOnce sync.Once

	present *time.Timer // guarded by Driver.mu
}

func newRun(plan Plan) *run {
	return &run{
		plan: plan,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (r *run) halt() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *run) finish() {
	r.doneOnce.Do(func() { close(r.done) })
}

func (r *run) halted() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// sleep waits for d unless the run is halted first.
func (r *run) sleep(d time.Duration) bool {
	if d <= 0 {
		return !r.halted()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.stop:
		return false
	}
}

// Driver walks one Session lane by lane until its stopping lane, then writes
// the terminal state exactly once. The session is re-read on every tick.
type Driver struct {
	session  *state.Session
	timing   Timing
	listener Listener
	logger   *zap.Logger

	mu  sync.Mutex
	cur *run

	// emitMu orders lane commits and the terminal write with their events.
	emitMu sync.Mutex
}

func NewDriver(session *state.Session, timing Timing, listener Listener, logger *zap.Logger) *Driver {
	if listener == nil {
		listener = nopListener{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		session:  session,
		timing:   timing,
		listener: listener,
		logger:   logger,
	}
}

// Run starts walking the attempt owned by plan.Epoch. Any previous walk is
// torn down first. When the session already stands on its stopping lane the
// terminal state is written before Run returns and no timer is created.
func (d *Driver) Run(plan Plan) error {
	if plan.Epoch != d.session.Epoch() || !d.session.Active() {
		return ErrNotStarted
	}

	r := newRun(plan)

	d.mu.Lock()
	d.haltLocked()
	d.cur = r
	d.mu.Unlock()

	if d.session.Lane() == d.session.StoppingLane() {
		if d.session.TriggerTerminal(plan.Epoch) {
			d.finish(r)
		}
		return nil
	}

	d.logger.Debug("🚶 Walk started",
		zap.Uint64("epoch", plan.Epoch),
		zap.Int("stoppingLane", d.session.StoppingLane()),
		zap.Bool("win", plan.Win))

	ticker := time.NewTicker(d.timing.Tick)
	go d.loop(r, ticker)
	return nil
}

func (d *Driver) loop(r *run, ticker *time.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			if !d.tick(r) {
				return
			}
		}
	}
}

// tick runs one advance attempt. It returns false once the loop has nothing
// left to do for r.
func (d *Driver) tick(r *run) bool {
	epoch := r.plan.Epoch

	if !d.session.BeginStep(epoch) {
		// Either a step is still settling, or the attempt is over or gone.
		if d.session.Epoch() != epoch || d.session.Over() || !d.session.Active() {
			return false
		}
		return true
	}

	lane := d.session.Lane()
	stopping := d.session.StoppingLane()

	switch {
	case lane == stopping:
		d.session.EndStep(epoch)
		d.terminate(r)
		return false

	case lane > stopping:
		d.session.EndStep(epoch)
		d.logger.Warn("⚠️ Lane overshot stopping lane, ending walk",
			zap.Error(ErrAnimationInvariant),
			zap.Uint64("epoch", epoch),
			zap.Int("lane", lane),
			zap.Int("stoppingLane", stopping))
		d.terminate(r)
		return false
	}

	go d.step(r, lane+1)
	return true
}

func (d *Driver) step(r *run, next int) {
	epoch := r.plan.Epoch
	defer d.session.EndStep(epoch)

	if !r.sleep(d.timing.Settle) {
		return
	}

	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	// Advance re-checks the epoch and the over flag, so a reset or cash out
	// during the pause drops this step.
	if !d.session.Advance(epoch, next) {
		return
	}
	d.listener.OnLaneChanged(next)
}

// terminate claims the terminal and schedules it after the presentation delay.
func (d *Driver) terminate(r *run) {
	if !d.session.TriggerTerminal(r.plan.Epoch) {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cur != r || r.halted() {
		return
	}
	r.present = time.AfterFunc(d.timing.Present, func() { d.finish(r) })
}

// finish writes the terminal state for r and notifies the listener once.
func (d *Driver) finish(r *run) {
	defer r.finish()
	if r.halted() {
		return
	}

	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	p := r.plan
	if p.Win {
		amount := p.Payout
		if !p.Authoritative {
			amount = d.earned()
		}
		if d.session.EndWinFor(p.Epoch, amount) {
			d.logger.Info("🏁 Walk ended in a win",
				zap.Uint64("epoch", p.Epoch),
				zap.String("amount", amount.String()))
			d.listener.OnTerminal(true, amount, game.AccidentNone)
		}
		return
	}

	reason := p.Reason
	if reason == "" {
		reason = game.LossMessage(d.session.Lane())
	}
	kind := p.Kind
	if kind == game.AccidentNone {
		kind = game.AccidentVehicle
	}
	if d.session.EndLossFor(p.Epoch, reason, kind) {
		d.logger.Info("💥 Walk ended in an accident",
			zap.Uint64("epoch", p.Epoch),
			zap.Int("lane", d.session.Lane()),
			zap.String("kind", string(kind)))
		d.listener.OnTerminal(false, decimal.Zero, kind)
	}
}

// earned is the cumulative payout for the lanes crossed so far.
func (d *Driver) earned() decimal.Decimal {
	v := d.session.Snapshot()
	return game.ComputePayout(v.BetAmount, game.GetProfile(v.Difficulty).LaneMultipliers, v.Lane)
}

// CashOut ends a walk early as a win at the current lane, paying for every
// lane crossed so far.
func (d *Driver) CashOut() (decimal.Decimal, error) {
	d.mu.Lock()
	r := d.cur
	d.mu.Unlock()
	if r == nil || r.halted() {
		return decimal.Zero, ErrNotWalking
	}

	epoch := r.plan.Epoch
	if d.session.Lane() < 1 {
		return decimal.Zero, ErrNothingToCashOut
	}

	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	if !d.session.TriggerTerminal(epoch) {
		return decimal.Zero, ErrNotWalking
	}

	d.mu.Lock()
	d.haltLocked()
	d.mu.Unlock()

	amount := d.earned()
	if d.session.CashOutFor(epoch, amount) {
		d.logger.Info("💰 Cashed out",
			zap.Uint64("epoch", epoch),
			zap.Int("lane", d.session.Lane()),
			zap.String("amount", amount.String()))
		d.listener.OnTerminal(true, amount, game.AccidentNone)
	}
	r.finish()
	return amount, nil
}

// Stop tears down the ticker and any pending terminal timer without touching
// the session. An in-flight settle pause is abandoned.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.haltLocked()
}

// Reset stops the walk, clears the session and tells the listener.
func (d *Driver) Reset() {
	d.Stop()
	epoch := d.session.Reset()
	d.logger.Debug("🔄 Session reset", zap.Uint64("epoch", epoch))
	d.listener.OnSessionReset()
}

func (d *Driver) haltLocked() {
	r := d.cur
	if r == nil {
		return
	}
	r.halt()
	if r.present != nil {
		r.present.Stop()
	}
	r.finish()
}

// Done is closed when the current walk ends or is torn down.
func (d *Driver) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cur == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return d.cur.done
}
