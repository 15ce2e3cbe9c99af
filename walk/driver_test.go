package walk

import (
	"sync"
	"testing"
	"time"

	"crossServer/game"
	"crossServer/state"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type terminal struct {
	win    bool
	amount decimal.Decimal
	kind   game.AccidentKind
}

type recorder struct {
	mu        sync.Mutex
	lanes     []int
	terminals []terminal
	resets    int
	ended     chan struct{}
	endOnce   sync.Once
}

func newRecorder() *recorder {
	return &recorder{ended: make(chan struct{})}
}

func (r *recorder) OnLaneChanged(lane int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lanes = append(r.lanes, lane)
}

func (r *recorder) OnTerminal(win bool, amount decimal.Decimal, kind game.AccidentKind) {
	r.mu.Lock()
	r.terminals = append(r.terminals, terminal{win, amount, kind})
	r.mu.Unlock()
	r.endOnce.Do(func() { close(r.ended) })
}

func (r *recorder) OnSessionReset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets++
}

func (r *recorder) snapshot() ([]int, []terminal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lanes := append([]int(nil), r.lanes...)
	terms := append([]terminal(nil), r.terminals...)
	return lanes, terms
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.ended:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for terminal")
	}
}

var fastTiming = Timing{
	Tick:    2 * time.Millisecond,
	Settle:  3 * time.Millisecond,
	Present: 2 * time.Millisecond,
}

func startWalk(t *testing.T, timing Timing, tier game.Tier, bet int64, target, stopping int) (*state.Session, *Driver, *recorder, uint64) {
	t.Helper()
	s := state.NewSession(decimal.NewFromInt(1000))
	rec := newRecorder()
	d := NewDriver(s, timing, rec, zap.NewNop())
	epoch, err := s.Start(target, decimal.NewFromInt(bet), game.GetProfile(tier), stopping)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return s, d, rec, epoch
}

func assertSequence(t *testing.T, lanes []int, stopping int) {
	t.Helper()
	if len(lanes) != stopping {
		t.Fatalf("expected %d lane events, got %v", stopping, lanes)
	}
	for i, lane := range lanes {
		if lane != i+1 {
			t.Fatalf("expected lane %d at step %d, got %v", i+1, i, lanes)
		}
	}
}

func TestDemoWinPaysCumulative(t *testing.T) {
	s, d, rec, epoch := startWalk(t, fastTiming, game.Easy, 10, 3, 3)

	if err := d.Run(Plan{Epoch: epoch, Win: true}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	rec.wait(t)
	<-d.Done()

	lanes, terms := rec.snapshot()
	assertSequence(t, lanes, 3)
	if len(terms) != 1 || !terms[0].win {
		t.Fatalf("expected one winning terminal, got %+v", terms)
	}
	if !terms[0].amount.Equal(decimal.NewFromInt(36)) {
		t.Errorf("expected payout 36, got %s", terms[0].amount)
	}

	v := s.Snapshot()
	if !v.Win || !v.Over || v.Active {
		t.Errorf("unexpected final flags %+v", v)
	}
	if !v.Balance.Equal(decimal.NewFromInt(1026)) {
		t.Errorf("expected balance 1026, got %s", v.Balance)
	}
}

func TestLiveLossHaltsAtLanesCrossed(t *testing.T) {
	s, d, rec, epoch := startWalk(t, fastTiming, game.Easy, 100, 8, 3)

	plan := Plan{Epoch: epoch, Win: false, Authoritative: true, Kind: game.AccidentVehicle}
	if err := d.Run(plan); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	rec.wait(t)

	// Extra ticks after the terminal must not produce anything.
	time.Sleep(20 * time.Millisecond)

	lanes, terms := rec.snapshot()
	assertSequence(t, lanes, 3)
	if len(terms) != 1 {
		t.Fatalf("expected exactly one terminal, got %d", len(terms))
	}
	if terms[0].win || !terms[0].amount.IsZero() || terms[0].kind != game.AccidentVehicle {
		t.Errorf("unexpected terminal %+v", terms[0])
	}

	v := s.Snapshot()
	if v.Lane != 3 || v.Losses != 1 || v.Win {
		t.Errorf("unexpected final state %+v", v)
	}
	if v.Message != game.LossMessage(3) {
		t.Errorf("unexpected message %q", v.Message)
	}
	if !v.Balance.Equal(decimal.NewFromInt(900)) {
		t.Errorf("expected balance 900, got %s", v.Balance)
	}
}

func TestAuthoritativeWinUsesLedgerPayout(t *testing.T) {
	s, d, rec, epoch := startWalk(t, fastTiming, game.Medium, 10, 2, 2)

	payout := decimal.RequireFromString("22.5")
	if err := d.Run(Plan{Epoch: epoch, Win: true, Authoritative: true, Payout: payout}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	rec.wait(t)

	_, terms := rec.snapshot()
	if !terms[0].amount.Equal(payout) {
		t.Errorf("expected ledger payout %s, got %s", payout, terms[0].amount)
	}
	if !s.Snapshot().WinAmount.Equal(payout) {
		t.Errorf("session win amount should match ledger payout")
	}
}

func TestSlowSettleDoesNotDoubleAdvance(t *testing.T) {
	timing := Timing{
		Tick:    time.Millisecond,
		Settle:  8 * time.Millisecond,
		Present: time.Millisecond,
	}
	_, d, rec, epoch := startWalk(t, timing, game.Hard, 1, 6, 6)

	if err := d.Run(Plan{Epoch: epoch, Win: true}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	rec.wait(t)
	time.Sleep(10 * time.Millisecond)

	lanes, terms := rec.snapshot()
	assertSequence(t, lanes, 6)
	if len(terms) != 1 {
		t.Errorf("expected one terminal, got %d", len(terms))
	}
}

func TestImmediateTerminal(t *testing.T) {
	s, d, rec, epoch := startWalk(t, fastTiming, game.Easy, 100, 8, 0)

	if err := d.Run(Plan{Epoch: epoch, Win: false, Authoritative: true, Kind: game.AccidentVehicle}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Resolved before Run returned.
	lanes, terms := rec.snapshot()
	if len(lanes) != 0 {
		t.Errorf("expected no lane events, got %v", lanes)
	}
	if len(terms) != 1 || terms[0].win {
		t.Fatalf("expected one losing terminal, got %+v", terms)
	}
	if !s.Over() {
		t.Error("session should be over")
	}
	select {
	case <-d.Done():
	default:
		t.Error("Done should be closed after an immediate terminal")
	}
}

func TestResetMidWalkLeavesNoTimer(t *testing.T) {
	timing := Timing{
		Tick:    2 * time.Millisecond,
		Settle:  10 * time.Millisecond,
		Present: 2 * time.Millisecond,
	}
	s, d, rec, epoch := startWalk(t, timing, game.Daredevil, 10, 16, 16)

	if err := d.Run(Plan{Epoch: epoch, Win: true}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Let a step get in flight, then reset under it.
	time.Sleep(5 * time.Millisecond)
	d.Reset()
	before, _ := rec.snapshot()

	time.Sleep(50 * time.Millisecond)

	after, terms := rec.snapshot()
	if len(after) != len(before) {
		t.Errorf("lane changed after reset: before %v after %v", before, after)
	}
	if len(terms) != 0 {
		t.Errorf("terminal fired after reset: %+v", terms)
	}

	v := s.Snapshot()
	if v.Active || v.Over || v.Lane != 0 {
		t.Errorf("session should be idle after reset, got %+v", v)
	}
	if rec.resets != 1 {
		t.Errorf("expected one reset event, got %d", rec.resets)
	}
	select {
	case <-d.Done():
	default:
		t.Error("Done should be closed after reset")
	}
}

func TestResetDuringPresentDelay(t *testing.T) {
	timing := Timing{
		Tick:    time.Millisecond,
		Settle:  time.Millisecond,
		Present: 30 * time.Millisecond,
	}
	s, d, rec, epoch := startWalk(t, timing, game.Easy, 10, 1, 1)

	if err := d.Run(Plan{Epoch: epoch, Win: true}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for s.Lane() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("walk never reached lane 1")
		}
		time.Sleep(time.Millisecond)
	}
	time.Sleep(5 * time.Millisecond)
	d.Reset()
	time.Sleep(50 * time.Millisecond)

	_, terms := rec.snapshot()
	if len(terms) != 0 {
		t.Errorf("terminal fired after reset: %+v", terms)
	}
	if s.Snapshot().Wins != 0 {
		t.Error("abandoned walk must not be credited")
	}
}

func TestCashOut(t *testing.T) {
	timing := Timing{
		Tick:    2 * time.Millisecond,
		Settle:  2 * time.Millisecond,
		Present: 2 * time.Millisecond,
	}
	s, d, rec, epoch := startWalk(t, timing, game.Easy, 10, 8, 8)

	if _, err := d.CashOut(); err != ErrNotWalking {
		t.Errorf("expected ErrNotWalking before Run, got %v", err)
	}

	if err := d.Run(Plan{Epoch: epoch, Win: true}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := d.CashOut(); err != ErrNothingToCashOut {
		t.Errorf("expected ErrNothingToCashOut at lane 0, got %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for s.Lane() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("walk never reached lane 2")
		}
		time.Sleep(time.Millisecond)
	}

	amount, err := d.CashOut()
	if err != nil {
		t.Fatalf("CashOut failed: %v", err)
	}
	rec.wait(t)
	time.Sleep(20 * time.Millisecond)

	v := s.Snapshot()
	want := game.ComputePayout(decimal.NewFromInt(10), game.GetProfile(game.Easy).LaneMultipliers, v.Lane)
	if !amount.Equal(want) {
		t.Errorf("expected cash out %s for lane %d, got %s", want, v.Lane, amount)
	}

	if !v.CashedOut {
		t.Error("expected the round to be marked cashed out")
	}

	lanes, terms := rec.snapshot()
	assertSequence(t, lanes, v.Lane)
	if len(terms) != 1 || !terms[0].win {
		t.Errorf("expected one winning terminal, got %+v", terms)
	}

	if _, err := d.CashOut(); err != ErrNotWalking {
		t.Errorf("second cash out should fail, got %v", err)
	}
}

func TestRunRejectsStaleEpoch(t *testing.T) {
	s, d, _, epoch := startWalk(t, fastTiming, game.Easy, 10, 3, 3)
	s.Reset()
	if err := d.Run(Plan{Epoch: epoch, Win: true}); err != ErrNotStarted {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
}

func TestListenerAdapters(t *testing.T) {
	var lanes []int
	var resets int
	funcs := ListenerFuncs{
		LaneChanged:  func(lane int) { lanes = append(lanes, lane) },
		SessionReset: func() { resets++ },
	}
	rec := newRecorder()
	m := MultiListener{funcs, rec}

	m.OnLaneChanged(1)
	m.OnLaneChanged(2)
	m.OnTerminal(true, decimal.NewFromInt(5), game.AccidentNone)
	m.OnSessionReset()

	if len(lanes) != 2 || resets != 1 {
		t.Errorf("funcs listener missed events: lanes=%v resets=%d", lanes, resets)
	}
	got, terms := rec.snapshot()
	if len(got) != 2 || len(terms) != 1 || rec.resets != 1 {
		t.Errorf("recorder missed events: lanes=%v terms=%v resets=%d", got, terms, rec.resets)
	}
}

func TestCashOutLosesToClaimedTerminal(t *testing.T) {
	timing := Timing{
		Tick:    2 * time.Millisecond,
		Settle:  2 * time.Millisecond,
		Present: 200 * time.Millisecond,
	}
	s, d, rec, epoch := startWalk(t, timing, game.Easy, 10, 1, 1)

	if err := d.Run(Plan{Epoch: epoch, Win: true}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Wait until the walk has claimed its own terminal and sits in the
	// presentation delay.
	deadline := time.Now().Add(time.Second)
	for s.Lane() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("walk never reached lane 1")
		}
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := d.CashOut(); err != ErrNotWalking {
		t.Errorf("expected ErrNotWalking once the terminal is claimed, got %v", err)
	}
	rec.wait(t)

	v := s.Snapshot()
	if !v.Win || v.CashedOut {
		t.Errorf("expected a natural win, got %+v", v)
	}
}
