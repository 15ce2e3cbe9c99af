package state

import (
	"errors"
	"sync"
	"time"

	"crossServer/game"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==============================================================================
// GAME SESSION
// ==============================================================================
//
// One Session per player. Running totals (wins, losses, winnings, balance)
// live for the whole connection; everything else belongs to a single attempt
// and is cleared by Reset.
//
// Every Start and Reset bumps the epoch. Work scheduled for an attempt
// carries its epoch and is dropped when the session has moved on.
//
// ==============================================================================

var ErrSessionActive = errors.New("a game is already in progress")

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseWalking Phase = "walking"
	PhaseOver    Phase = "over"
)

type Session struct {
	mu sync.RWMutex

	epoch uint64
	id    string

	lane         int
	targetLane   int
	stoppingLane int
	passedLanes  []int
	betAmount    decimal.Decimal
	profile      game.Profile

	active    bool
	over      bool
	win       bool
	winAmount decimal.Decimal
	message   string
	accident  game.AccidentKind
	replay    bool
	cashedOut bool
	startedAt time.Time

	winTriggered bool
	stepInFlight bool

	balance       decimal.Decimal
	wins          int
	losses        int
	totalWinnings decimal.Decimal
}

// View is a point-in-time copy of a Session.
type View struct {
	ID            string            `json:"id,omitempty"`
	Epoch         uint64            `json:"epoch"`
	Phase         Phase             `json:"phase"`
	Difficulty    game.Tier         `json:"difficulty"`
	Lane          int               `json:"lane"`
	TargetLane    int               `json:"targetLane"`
	StoppingLane  int               `json:"-"`
	PassedLanes   []int             `json:"passedLanes"`
	Multiplier    decimal.Decimal   `json:"multiplier"`
	BetAmount     decimal.Decimal   `json:"betAmount"`
	Active        bool              `json:"active"`
	Over          bool              `json:"over"`
	Win           bool              `json:"win"`
	WinAmount     decimal.Decimal   `json:"winAmount"`
	Message       string            `json:"message,omitempty"`
	Accident      game.AccidentKind `json:"accident,omitempty"`
	Replay        bool              `json:"replay,omitempty"`
	CashedOut     bool              `json:"cashedOut,omitempty"`
	StartedAt     time.Time         `json:"startedAt"`
	Balance       decimal.Decimal   `json:"balance"`
	Wins          int               `json:"wins"`
	Losses        int               `json:"losses"`
	TotalWinnings decimal.Decimal   `json:"totalWinnings"`
}

func NewSession(balance decimal.Decimal) *Session {
	return &Session{
		balance: balance,
		profile: game.GetProfile(game.Easy),
	}
}

// Validate checks a prospective attempt without touching the session.
func (s *Session) Validate(targetLane int, bet decimal.Decimal, profile game.Profile) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validateLocked(targetLane, bet, profile, true)
}

func (s *Session) validateLocked(targetLane int, bet decimal.Decimal, profile game.Profile, debit bool) error {
	if s.active && !s.over {
		return ErrSessionActive
	}
	if !profile.ValidLane(targetLane) {
		return game.ErrInvalidLane
	}
	if !debit {
		return nil
	}
	if !bet.IsPositive() {
		return game.ErrInvalidBet
	}
	if bet.GreaterThan(s.balance) {
		return game.ErrInsufficientFunds
	}
	return nil
}

// Start begins an attempt that will halt on stoppingLane. The bet is debited.
// It returns the epoch that owns the attempt.
func (s *Session) Start(targetLane int, bet decimal.Decimal, profile game.Profile, stoppingLane int) (uint64, error) {
	return s.begin(targetLane, bet, profile, stoppingLane, false)
}

// StartReplay begins a presentation-only attempt: no debit, no credit and
// no change to the running totals.
func (s *Session) StartReplay(targetLane int, profile game.Profile, stoppingLane int) (uint64, error) {
	return s.begin(targetLane, decimal.Zero, profile, stoppingLane, true)
}

func (s *Session) begin(targetLane int, bet decimal.Decimal, profile game.Profile, stoppingLane int, replay bool) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateLocked(targetLane, bet, profile, !replay); err != nil {
		return 0, err
	}

	if stoppingLane < 0 {
		stoppingLane = 0
	}
	if stoppingLane > targetLane {
		stoppingLane = targetLane
	}

	s.clearLocked()
	s.id = uuid.NewString()
	s.targetLane = targetLane
	s.stoppingLane = stoppingLane
	s.betAmount = bet
	s.profile = profile
	s.replay = replay
	s.active = true
	s.startedAt = time.Now()
	if !replay {
		s.balance = s.balance.Sub(bet)
	}
	return s.epoch, nil
}

// Reset clears the attempt. Safe from any state, including mid-walk.
func (s *Session) Reset() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	return s.epoch
}

func (s *Session) clearLocked() {
	s.epoch++
	s.id = ""
	s.lane = 0
	s.targetLane = 0
	s.stoppingLane = 0
	s.passedLanes = nil
	s.betAmount = decimal.Zero
	s.active = false
	s.over = false
	s.win = false
	s.winAmount = decimal.Zero
	s.message = ""
	s.accident = game.AccidentNone
	s.replay = false
	s.cashedOut = false
	s.startedAt = time.Time{}
	s.winTriggered = false
	s.stepInFlight = false
}

// BeginStep claims the per-lane transition for epoch. It fails while another
// step is settling, when the attempt is not walking, or when epoch is stale.
func (s *Session) BeginStep(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.stepInFlight || !s.active || s.over {
		return false
	}
	s.stepInFlight = true
	return true
}

// EndStep releases the claim taken by BeginStep.
func (s *Session) EndStep(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch == s.epoch {
		s.stepInFlight = false
	}
}

// Advance commits next as the current lane. It refuses anything but the
// immediate successor of the current lane, anything past the stopping lane,
// and any move once the terminal has been claimed.
func (s *Session) Advance(epoch uint64, next int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || !s.active || s.over || s.winTriggered {
		return false
	}
	if next != s.lane+1 || next > s.stoppingLane {
		return false
	}
	s.lane = next
	s.passedLanes = append(s.passedLanes, next)
	return true
}

// TriggerTerminal is the one-shot guard in front of a terminal write.
// Only the first caller per attempt gets true.
func (s *Session) TriggerTerminal(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.over || s.winTriggered || !s.active {
		return false
	}
	s.winTriggered = true
	return true
}

// EndWin writes a winning terminal state. Calls after the game is over are no-ops.
func (s *Session) EndWin(amount decimal.Decimal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endWinLocked(amount)
}

// EndWinFor is EndWin restricted to the attempt that owns epoch.
func (s *Session) EndWinFor(epoch uint64, amount decimal.Decimal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	return s.endWinLocked(amount)
}

// CashOutFor ends the attempt owned by epoch as a win taken before the
// stopping lane. The caller must hold the terminal claim.
func (s *Session) CashOutFor(epoch uint64, amount decimal.Decimal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || !s.endWinLocked(amount) {
		return false
	}
	s.cashedOut = true
	return true
}

func (s *Session) endWinLocked(amount decimal.Decimal) bool {
	if s.over || !s.active {
		return false
	}
	s.active = false
	s.over = true
	s.win = true
	s.winTriggered = true
	s.winAmount = amount
	s.message = game.WinMessage(amount)
	if !s.replay {
		s.wins++
		s.totalWinnings = s.totalWinnings.Add(amount)
		s.balance = s.balance.Add(amount)
	}
	return true
}

// EndLoss writes a losing terminal state. Calls after the game is over are no-ops.
func (s *Session) EndLoss(reason string, kind game.AccidentKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endLossLocked(reason, kind)
}

// EndLossFor is EndLoss restricted to the attempt that owns epoch.
func (s *Session) EndLossFor(epoch uint64, reason string, kind game.AccidentKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	return s.endLossLocked(reason, kind)
}

func (s *Session) endLossLocked(reason string, kind game.AccidentKind) bool {
	if s.over || !s.active {
		return false
	}
	s.active = false
	s.over = true
	s.win = false
	s.winTriggered = true
	s.message = reason
	s.accident = kind
	if !s.replay {
		s.losses++
	}
	return true
}

// SetBalance replaces the balance, e.g. after reading the on-chain wallet.
func (s *Session) SetBalance(balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = balance
}

func (s *Session) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

func (s *Session) Lane() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lane
}

func (s *Session) StoppingLane() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stoppingLane
}

func (s *Session) Over() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.over
}

func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Snapshot returns a copy of the session for readers outside the walk.
func (s *Session) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	phase := PhaseIdle
	switch {
	case s.over:
		phase = PhaseOver
	case s.active:
		phase = PhaseWalking
	}

	passed := make([]int, len(s.passedLanes))
	copy(passed, s.passedLanes)

	return View{
		ID:            s.id,
		Epoch:         s.epoch,
		Phase:         phase,
		Difficulty:    s.profile.Tier,
		Lane:          s.lane,
		TargetLane:    s.targetLane,
		StoppingLane:  s.stoppingLane,
		PassedLanes:   passed,
		Multiplier:    s.profile.Multiplier(s.lane),
		BetAmount:     s.betAmount,
		Active:        s.active,
		Over:          s.over,
		Win:           s.win,
		WinAmount:     s.winAmount,
		Message:       s.message,
		Accident:      s.accident,
		Replay:        s.replay,
		CashedOut:     s.cashedOut,
		StartedAt:     s.startedAt,
		Balance:       s.balance,
		Wins:          s.wins,
		Losses:        s.losses,
		TotalWinnings: s.totalWinnings,
	}
}
