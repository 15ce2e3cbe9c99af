package state

import (
	"errors"
	"testing"

	"crossServer/game"

	"github.com/shopspring/decimal"
)

func newTestSession() *Session {
	return NewSession(decimal.NewFromInt(1000))
}

func TestStartValidation(t *testing.T) {
	easy := game.GetProfile(game.Easy)

	cases := []struct {
		name string
		lane int
		bet  string
		want error
	}{
		{"lane zero", 0, "10", game.ErrInvalidLane},
		{"lane negative", -1, "10", game.ErrInvalidLane},
		{"lane past table", 9, "10", game.ErrInvalidLane},
		{"zero bet", 3, "0", game.ErrInvalidBet},
		{"negative bet", 3, "-5", game.ErrInvalidBet},
		{"bet above balance", 3, "1000.01", game.ErrInsufficientFunds},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := newTestSession()
			_, err := s.Start(c.lane, decimal.RequireFromString(c.bet), easy, c.lane)
			if !errors.Is(err, c.want) {
				t.Fatalf("expected %v, got %v", c.want, err)
			}
			v := s.Snapshot()
			if v.Active {
				t.Error("session should stay inactive")
			}
			if !v.Balance.Equal(decimal.NewFromInt(1000)) {
				t.Errorf("balance should be untouched, got %s", v.Balance)
			}
		})
	}
}

func TestStartDebitsAndActivates(t *testing.T) {
	s := newTestSession()
	epoch, err := s.Start(5, decimal.NewFromInt(100), game.GetProfile(game.Easy), 3)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	v := s.Snapshot()
	if !v.Active || v.Over || v.Phase != PhaseWalking {
		t.Errorf("unexpected flags: %+v", v)
	}
	if v.Epoch != epoch {
		t.Errorf("expected epoch %d, got %d", epoch, v.Epoch)
	}
	if v.StoppingLane != 3 || v.TargetLane != 5 {
		t.Errorf("expected stop 3 target 5, got %d/%d", v.StoppingLane, v.TargetLane)
	}
	if !v.Balance.Equal(decimal.NewFromInt(900)) {
		t.Errorf("expected balance 900, got %s", v.Balance)
	}
	if v.ID == "" {
		t.Error("expected a round id")
	}

	if _, err := s.Start(2, decimal.NewFromInt(1), game.GetProfile(game.Easy), 2); !errors.Is(err, ErrSessionActive) {
		t.Errorf("expected ErrSessionActive, got %v", err)
	}
}

func TestStoppingLaneClamped(t *testing.T) {
	s := newTestSession()
	if _, err := s.Start(4, decimal.NewFromInt(1), game.GetProfile(game.Easy), 7); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if got := s.StoppingLane(); got != 4 {
		t.Errorf("expected stopping lane clamped to 4, got %d", got)
	}
}

func TestAdvanceIsSequential(t *testing.T) {
	s := newTestSession()
	epoch, _ := s.Start(4, decimal.NewFromInt(1), game.GetProfile(game.Easy), 3)

	if s.Advance(epoch, 2) {
		t.Error("skipping a lane must be refused")
	}
	for lane := 1; lane <= 3; lane++ {
		if !s.Advance(epoch, lane) {
			t.Fatalf("advance to %d refused", lane)
		}
	}
	if s.Advance(epoch, 4) {
		t.Error("advancing past the stopping lane must be refused")
	}
	if s.Advance(epoch+1, 4) {
		t.Error("stale epoch must be refused")
	}

	v := s.Snapshot()
	if v.Lane != 3 {
		t.Errorf("expected lane 3, got %d", v.Lane)
	}
	if len(v.PassedLanes) != 3 || v.PassedLanes[2] != 3 {
		t.Errorf("unexpected passed lanes %v", v.PassedLanes)
	}
	if v.Multiplier.String() != "1.4" {
		t.Errorf("expected multiplier 1.4, got %s", v.Multiplier)
	}
}

func TestStepGuard(t *testing.T) {
	s := newTestSession()
	epoch, _ := s.Start(3, decimal.NewFromInt(1), game.GetProfile(game.Easy), 3)

	if !s.BeginStep(epoch) {
		t.Fatal("first step should be claimed")
	}
	if s.BeginStep(epoch) {
		t.Error("second step must wait for the first")
	}
	s.EndStep(epoch)
	if !s.BeginStep(epoch) {
		t.Error("step should be claimable after EndStep")
	}

	s.Reset()
	if s.BeginStep(epoch) {
		t.Error("stale epoch must not claim a step")
	}
}

func TestTerminalWritesAreIdempotent(t *testing.T) {
	s := newTestSession()
	epoch, _ := s.Start(3, decimal.NewFromInt(10), game.GetProfile(game.Easy), 3)

	if !s.TriggerTerminal(epoch) {
		t.Fatal("first trigger should win")
	}
	if s.TriggerTerminal(epoch) {
		t.Error("second trigger must be refused")
	}

	if !s.EndWin(decimal.NewFromInt(36)) {
		t.Fatal("first EndWin should write")
	}
	after := s.Snapshot()

	for i := 0; i < 3; i++ {
		if s.EndWin(decimal.NewFromInt(36)) {
			t.Error("EndWin after over must be a no-op")
		}
		if s.EndLoss("again", game.AccidentRock) {
			t.Error("EndLoss after over must be a no-op")
		}
	}

	v := s.Snapshot()
	if v.Wins != 1 || v.Losses != 0 {
		t.Errorf("expected 1 win 0 losses, got %d/%d", v.Wins, v.Losses)
	}
	if !v.Balance.Equal(after.Balance) || !v.TotalWinnings.Equal(after.TotalWinnings) {
		t.Errorf("totals changed after terminal: %s/%s", v.Balance, v.TotalWinnings)
	}
	if !v.Balance.Equal(decimal.NewFromInt(1026)) {
		t.Errorf("expected balance 1026, got %s", v.Balance)
	}
	if v.Message != "You won 36.00!" {
		t.Errorf("unexpected message %q", v.Message)
	}

	// Reset after over clears the attempt but keeps the totals.
	s.Reset()
	s.Reset()
	if s.EndWin(decimal.NewFromInt(36)) || s.EndLoss("x", game.AccidentNone) {
		t.Error("terminal writes on an idle session must be no-ops")
	}
	v = s.Snapshot()
	if v.Wins != 1 || !v.Balance.Equal(decimal.NewFromInt(1026)) || v.Over {
		t.Errorf("unexpected state after reset: %+v", v)
	}
}

func TestEndLoss(t *testing.T) {
	s := newTestSession()
	s.Start(8, decimal.NewFromInt(100), game.GetProfile(game.Easy), 3)

	if !s.EndLoss(game.LossMessage(3), game.AccidentBanana) {
		t.Fatal("EndLoss should write")
	}
	v := s.Snapshot()
	if v.Win || !v.Over || v.Active || v.Losses != 1 {
		t.Errorf("unexpected loss state %+v", v)
	}
	if v.Accident != game.AccidentBanana {
		t.Errorf("expected banana, got %q", v.Accident)
	}
	if !v.Balance.Equal(decimal.NewFromInt(900)) {
		t.Errorf("expected balance 900, got %s", v.Balance)
	}
}

func TestEpochScopedTerminal(t *testing.T) {
	s := newTestSession()
	old, _ := s.Start(3, decimal.NewFromInt(1), game.GetProfile(game.Easy), 3)
	s.Reset()
	if _, err := s.Start(3, decimal.NewFromInt(1), game.GetProfile(game.Easy), 3); err != nil {
		t.Fatalf("restart failed: %v", err)
	}

	if s.EndWinFor(old, decimal.NewFromInt(5)) || s.EndLossFor(old, "stale", game.AccidentRock) {
		t.Error("terminal write from a previous attempt must be dropped")
	}
	if s.Over() {
		t.Error("new attempt must not be ended by a stale writer")
	}
}

func TestReplayLeavesTotalsAlone(t *testing.T) {
	s := newTestSession()
	if _, err := s.StartReplay(3, game.GetProfile(game.Easy), 3); err != nil {
		t.Fatalf("StartReplay failed: %v", err)
	}
	s.EndWin(decimal.NewFromInt(36))

	v := s.Snapshot()
	if !v.Replay || !v.Win {
		t.Errorf("unexpected replay state %+v", v)
	}
	if v.Wins != 0 || !v.Balance.Equal(decimal.NewFromInt(1000)) || !v.TotalWinnings.IsZero() {
		t.Errorf("replay must not touch totals: %+v", v)
	}
}

func TestAdvanceRefusedAfterTrigger(t *testing.T) {
	s := newTestSession()
	epoch, _ := s.Start(3, decimal.NewFromInt(1), game.GetProfile(game.Easy), 3)
	s.Advance(epoch, 1)
	s.TriggerTerminal(epoch)
	if s.Advance(epoch, 2) {
		t.Error("lane must not move once the terminal is claimed")
	}
	if s.Lane() != 1 {
		t.Errorf("expected lane 1, got %d", s.Lane())
	}
}

func TestCashOutMarksRound(t *testing.T) {
	s := newTestSession()
	epoch, _ := s.Start(8, decimal.NewFromInt(10), game.GetProfile(game.Easy), 8)
	s.Advance(epoch, 1)
	s.Advance(epoch, 2)

	if s.CashOutFor(epoch+1, decimal.NewFromInt(13)) {
		t.Error("cash out for another attempt must be dropped")
	}
	if !s.TriggerTerminal(epoch) || !s.CashOutFor(epoch, decimal.NewFromInt(13)) {
		t.Fatal("cash out should end the attempt")
	}
	v := s.Snapshot()
	if !v.CashedOut || !v.Win || v.Lane != 2 {
		t.Errorf("unexpected cash out state %+v", v)
	}

	s.Reset()
	if s.Snapshot().CashedOut {
		t.Error("reset must clear the cash out flag")
	}

	// A walk that ends on its own is never marked cashed out.
	epoch, _ = s.Start(1, decimal.NewFromInt(10), game.GetProfile(game.Easy), 1)
	s.Advance(epoch, 1)
	s.TriggerTerminal(epoch)
	s.EndWinFor(epoch, decimal.NewFromInt(12))
	if s.CashOutFor(epoch, decimal.NewFromInt(12)) {
		t.Error("cash out after the terminal write must be refused")
	}
	if s.Snapshot().CashedOut {
		t.Error("a natural win must not be marked cashed out")
	}
}
