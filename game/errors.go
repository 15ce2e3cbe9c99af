package game

import "errors"

// Local validation. Rejected before any balance mutation or ledger call.
var (
	ErrInvalidLane = errors.New("invalid lane")
	ErrInvalidBet  = errors.New("invalid bet amount")
)

// Ledger submission failures. The session stays inactive and the balance untouched.
var (
	ErrUserRejected      = errors.New("transaction rejected by user")
	ErrInsufficientFunds = errors.New("insufficient funds to start game")
	ErrNetwork           = errors.New("ledger network error")
)

// ErrOutcomeUnavailable means the ledger accepted the round but its result
// could not be read or made no sense. Callers retry the fetch or abort; they
// never guess.
var ErrOutcomeUnavailable = errors.New("game outcome unavailable")
