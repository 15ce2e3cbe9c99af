package play

import (
	"context"
	"time"

	"crossServer/game"
	"crossServer/state"

	"github.com/shopspring/decimal"
)

// Round is a finished attempt as persisted and broadcast.
type Round struct {
	ID           string            `json:"id"`
	Player       string            `json:"player"`
	Mode         Mode              `json:"mode"`
	Tier         game.Tier         `json:"difficulty"`
	TargetLane   int               `json:"targetLane"`
	LanesCrossed int               `json:"lanesCrossed"`
	Bet          decimal.Decimal   `json:"bet"`
	Win          bool              `json:"win"`
	Payout       decimal.Decimal   `json:"payout"`
	CashedOut    bool              `json:"cashedOut,omitempty"`
	Accident     game.AccidentKind `json:"accident,omitempty"`
	Seed         string            `json:"seed,omitempty"`
	SeedHash     string            `json:"seedHash,omitempty"`
	ClientSeed   string            `json:"clientSeed,omitempty"`
	Nonce        uint64            `json:"nonce,omitempty"`
	TxHash       string            `json:"txHash,omitempty"`
	StartedAt    time.Time         `json:"startedAt"`
	EndedAt      time.Time         `json:"endedAt"`
}

// Profit is the net result of the round for the player.
func (r Round) Profit() decimal.Decimal {
	return r.Payout.Sub(r.Bet)
}

// Recorder persists finished rounds and live session snapshots. Calls happen
// off the walk goroutines and may be slow.
type Recorder interface {
	RecordRound(ctx context.Context, round Round) error
	SaveSnapshot(ctx context.Context, player string, view state.View) error
}

// RoundListener is told about every finished round, after it is recorded.
type RoundListener func(Round)
