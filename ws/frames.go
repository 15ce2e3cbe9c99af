package ws

import (
	"fmt"
	"strconv"

	"crossServer/game"
	"crossServer/play"

	"github.com/shopspring/decimal"
)

// ClientMessage is a request from the browser.
type ClientMessage struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data,omitempty"`
}

/* =========================
   SERVER FRAMES
========================= */

type laneFrame struct {
	Type       string          `json:"type"`
	Lane       int             `json:"lane"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

type terminalFrame struct {
	Type     string            `json:"type"`
	Win      bool              `json:"win"`
	Amount   decimal.Decimal   `json:"amount"`
	Accident game.AccidentKind `json:"accident,omitempty"`
	State    play.Snapshot     `json:"state"`
}

type stateFrame struct {
	Type  string        `json:"type"`
	State play.Snapshot `json:"state"`
}

type outcomeFrame struct {
	Type    string       `json:"type"`
	Outcome game.Outcome `json:"outcome"`
}

type roundFrame struct {
	Type  string     `json:"type"`
	Round play.Round `json:"round"`
}

type historyFrame struct {
	Type   string        `json:"type"`
	Rounds []*play.Round `json:"rounds"`
}

type cashOutFrame struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Request string `json:"request,omitempty"`
	Error   string `json:"error"`
}

/* =========================
   FIELD HELPERS
========================= */

func intField(data map[string]interface{}, key string) (int, error) {
	switch v := data[key].(type) {
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q", key, v)
		}
		return n, nil
	case nil:
		return 0, fmt.Errorf("missing %s", key)
	default:
		return 0, fmt.Errorf("invalid %s %v", key, v)
	}
}

// decimalField accepts a string ("12.5") or a JSON number.
func decimalField(data map[string]interface{}, key string) (decimal.Decimal, error) {
	switch v := data[key].(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid %s %q", key, v)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case nil:
		return decimal.Zero, fmt.Errorf("missing %s", key)
	default:
		return decimal.Zero, fmt.Errorf("invalid %s %v", key, v)
	}
}

// tierField accepts a name ("hard") or the contract's numeric value.
func tierField(data map[string]interface{}, key string) (game.Tier, error) {
	if name, ok := data[key].(string); ok {
		if tier, ok := game.ParseTier(name); ok {
			return tier, nil
		}
	}
	n, err := intField(data, key)
	if err != nil || n < 0 || !game.Tier(n).Valid() {
		return 0, play.ErrInvalidDifficulty
	}
	return game.Tier(n), nil
}
