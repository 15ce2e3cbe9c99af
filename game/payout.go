package game

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ComputePayout sums bet*multipliers[i] over every crossed lane, the way the
// contract accumulates it. It is not bet times the final multiplier.
func ComputePayout(bet decimal.Decimal, multipliers []decimal.Decimal, lanesCrossed int) decimal.Decimal {
	if lanesCrossed > len(multipliers) {
		lanesCrossed = len(multipliers)
	}
	payout := decimal.Zero
	for i := 0; i < lanesCrossed; i++ {
		payout = payout.Add(bet.Mul(multipliers[i]))
	}
	return payout
}

// WinMessage is the text shown on a winning terminal screen.
func WinMessage(amount decimal.Decimal) string {
	return fmt.Sprintf("You won %s!", amount.StringFixed(2))
}

// LossMessage is the text shown when the walk ends on lane.
func LossMessage(lane int) string {
	return fmt.Sprintf("Game over! You had an accident on lane %d.", lane)
}

// CurrentMultiplier is the multiplier displayed while standing on lane.
func CurrentMultiplier(p Profile, lane int) decimal.Decimal {
	return p.Multiplier(lane)
}
