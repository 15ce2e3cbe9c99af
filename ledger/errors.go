package ledger

import (
	"errors"
	"fmt"
	"strings"

	"crossServer/game"
)

var (
	rejectedHints = []string{"user rejected", "user denied", "rejected by user"}
	fundsHints    = []string{
		"insufficient funds",
		"insufficient balance",
		"transfer amount exceeds balance",
		"transfer amount exceeds allowance",
		"insufficient allowance",
	}
)

// Classify maps a submission error onto ErrUserRejected,
// ErrInsufficientFunds or ErrNetwork. The original message is kept in the
// chain. Errors that already carry a game sentinel pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		game.ErrUserRejected,
		game.ErrInsufficientFunds,
		game.ErrNetwork,
		game.ErrOutcomeUnavailable,
		game.ErrInvalidLane,
		game.ErrInvalidBet,
	} {
		if errors.Is(err, known) {
			return err
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, rejectedHints):
		return fmt.Errorf("%w: %v", game.ErrUserRejected, err)
	case containsAny(msg, fundsHints):
		return fmt.Errorf("%w: %v", game.ErrInsufficientFunds, err)
	}

	// RPC failures ("Failed to initialize request", timeouts, refused
	// connections) and anything unrecognised surface as network errors.
	return fmt.Errorf("%w: %v", game.ErrNetwork, err)
}

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}
