package walk

import (
	"crossServer/game"

	"github.com/shopspring/decimal"
)

// Listener receives presentation events from a Driver. Callbacks run on the
// driver's goroutines and must not block for long.
type Listener interface {
	OnLaneChanged(lane int)
	OnTerminal(win bool, amount decimal.Decimal, kind game.AccidentKind)
	OnSessionReset()
}

// ListenerFuncs adapts plain functions to a Listener. Nil fields are skipped.
type ListenerFuncs struct {
	LaneChanged  func(lane int)
	Terminal     func(win bool, amount decimal.Decimal, kind game.AccidentKind)
	SessionReset func()
}

func (f ListenerFuncs) OnLaneChanged(lane int) {
	if f.LaneChanged != nil {
		f.LaneChanged(lane)
	}
}

func (f ListenerFuncs) OnTerminal(win bool, amount decimal.Decimal, kind game.AccidentKind) {
	if f.Terminal != nil {
		f.Terminal(win, amount, kind)
	}
}

func (f ListenerFuncs) OnSessionReset() {
	if f.SessionReset != nil {
		f.SessionReset()
	}
}

// MultiListener fans every event out to each listener in order.
type MultiListener []Listener

func (m MultiListener) OnLaneChanged(lane int) {
	for _, l := range m {
		l.OnLaneChanged(lane)
	}
}

func (m MultiListener) OnTerminal(win bool, amount decimal.Decimal, kind game.AccidentKind) {
	for _, l := range m {
		l.OnTerminal(win, amount, kind)
	}
}

func (m MultiListener) OnSessionReset() {
	for _, l := range m {
		l.OnSessionReset()
	}
}

type nopListener struct{}

func (nopListener) OnLaneChanged(int)                                   {}
func (nopListener) OnTerminal(bool, decimal.Decimal, game.AccidentKind) {}
func (nopListener) OnSessionReset()                                     {}
