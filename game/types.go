package game

import "github.com/shopspring/decimal"

// AccidentKind classifies how a walk ended in a loss.
type AccidentKind string

const (
	AccidentNone    AccidentKind = ""
	AccidentNail    AccidentKind = "nail"
	AccidentRock    AccidentKind = "rock"
	AccidentBanana  AccidentKind = "banana"
	AccidentAnkle   AccidentKind = "ankle"
	AccidentDebris  AccidentKind = "debris"
	AccidentVehicle AccidentKind = "vehicle"
)

// AccidentKinds lists the kinds a simulated loss can draw from.
var AccidentKinds = []AccidentKind{
	AccidentNail,
	AccidentRock,
	AccidentBanana,
	AccidentAnkle,
	AccidentDebris,
	AccidentVehicle,
}

// Outcome is the canonical result of one round, whichever source produced it.
// For a loss LanesCrossed is the lane the walk halts on.
type Outcome struct {
	Tier         Tier            `json:"difficulty"`
	IsWin        bool            `json:"isWin"`
	LanesBet     int             `json:"lanesBet"`
	LanesCrossed int             `json:"lanesCrossed"`
	Payout       decimal.Decimal `json:"payout"`
	ResultText   string          `json:"result"`
	Seed         string          `json:"seed,omitempty"`
	Accident     AccidentKind    `json:"accident,omitempty"`

	// Demo rounds: the commitment and inputs needed to verify the round.
	SeedHash   string `json:"seedHash,omitempty"`
	ClientSeed string `json:"clientSeed,omitempty"`
	Nonce      uint64 `json:"nonce,omitempty"`

	// Live rounds: the playGame transaction.
	TxHash string `json:"txHash,omitempty"`
}
