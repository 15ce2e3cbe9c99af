// Package ledger relays authoritative round results from the on-chain game
// contract into the game's canonical Outcome.
package ledger

import (
	"context"
	"math/big"

	"crossServer/game"
)

// TxRef identifies a mined playGame transaction.
type TxRef struct {
	Hash        string `json:"hash"`
	BlockNumber uint64 `json:"blockNumber"`
	Player      string `json:"player"`

	// Result is the GameResult event this transaction emitted, as a map of
	// named fields. Nil when the receipt carried none.
	Result interface{} `json:"-"`
}

// Client is the ledger collaborator. Implementations return errors that
// Classify can map onto the game error taxonomy.
type Client interface {
	// SubmitAndPlay places a bet of amount base units on targetLane and waits
	// for the transaction to be mined. Submissions from one wallet must not
	// overlap.
	SubmitAndPlay(ctx context.Context, tier game.Tier, targetLane int, amount *big.Int) (TxRef, error)

	// FetchOutcome reads the last result recorded for player. The raw value
	// is either a positional tuple or a map of named fields; nil means no
	// result is recorded yet.
	FetchOutcome(ctx context.Context, player string) (interface{}, error)
}
