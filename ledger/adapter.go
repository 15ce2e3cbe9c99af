package ledger

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"crossServer/config"
	"crossServer/game"

	"github.com/shopspring/decimal"
)

// Positions of the getLastGameResult tuple.
const (
	idxDifficulty = iota
	idxSuccess
	idxLanesBet
	idxLanesCrossed
	idxPayout
	idxSeed
	idxResult
	tupleLen
)

// Field aliases of the named shape. The GameResult event says "won" and
// "seed"; the Game struct says "success" and "baseSeed".
var (
	successKeys = []string{"success", "won", "isWin"}
	seedKeys    = []string{"seed", "baseSeed"}
	resultKeys  = []string{"result", "resultText"}
)

// Normalize converts a raw ledger result into an Outcome. The walk trusts
// the result as is: it stops on LanesCrossed and branches on IsWin.
// Anything missing or inconsistent yields game.ErrOutcomeUnavailable.
func Normalize(raw interface{}) (game.Outcome, error) {
	fields, err := fieldsOf(raw)
	if err != nil {
		return game.Outcome{}, err
	}

	tier, err := toInt(fields.difficulty)
	if err != nil || tier < 0 || !game.Tier(tier).Valid() {
		return game.Outcome{}, fmt.Errorf("%w: bad difficulty %v", game.ErrOutcomeUnavailable, fields.difficulty)
	}
	profile := game.GetProfile(game.Tier(tier))

	isWin, err := toBool(fields.success)
	if err != nil {
		return game.Outcome{}, fmt.Errorf("%w: bad success flag: %v", game.ErrOutcomeUnavailable, err)
	}

	lanesBet, err := toInt(fields.lanesBet)
	if err != nil || !profile.ValidLane(lanesBet) {
		return game.Outcome{}, fmt.Errorf("%w: bad lanesBet %v", game.ErrOutcomeUnavailable, fields.lanesBet)
	}

	lanesCrossed, err := toInt(fields.lanesCrossed)
	if err != nil || lanesCrossed < 0 || lanesCrossed > lanesBet {
		return game.Outcome{}, fmt.Errorf("%w: bad lanesCrossed %v (lanesBet %d)", game.ErrOutcomeUnavailable, fields.lanesCrossed, lanesBet)
	}

	payout, err := toTokens(fields.payout)
	if err != nil {
		return game.Outcome{}, fmt.Errorf("%w: bad payout: %v", game.ErrOutcomeUnavailable, err)
	}

	out := game.Outcome{
		Tier:         game.Tier(tier),
		IsWin:        isWin,
		LanesBet:     lanesBet,
		LanesCrossed: lanesCrossed,
		Payout:       payout,
		Seed:         toText(fields.seed),
		ResultText:   toText(fields.result),
	}
	if !isWin {
		out.Payout = decimal.Zero
		out.Accident = game.AccidentVehicle
	}
	if out.ResultText == "" {
		if isWin {
			out.ResultText = game.WinMessage(out.Payout)
		} else {
			out.ResultText = game.LossMessage(lanesCrossed)
		}
	}
	return out, nil
}

type rawFields struct {
	difficulty   interface{}
	success      interface{}
	lanesBet     interface{}
	lanesCrossed interface{}
	payout       interface{}
	seed         interface{}
	result       interface{}
}

func fieldsOf(raw interface{}) (rawFields, error) {
	switch v := raw.(type) {
	case nil:
		return rawFields{}, fmt.Errorf("%w: no result recorded", game.ErrOutcomeUnavailable)

	case []interface{}:
		if len(v) < tupleLen {
			return rawFields{}, fmt.Errorf("%w: tuple has %d values, want %d", game.ErrOutcomeUnavailable, len(v), tupleLen)
		}
		return rawFields{
			difficulty:   v[idxDifficulty],
			success:      v[idxSuccess],
			lanesBet:     v[idxLanesBet],
			lanesCrossed: v[idxLanesCrossed],
			payout:       v[idxPayout],
			seed:         v[idxSeed],
			result:       v[idxResult],
		}, nil

	case map[string]interface{}:
		f := rawFields{
			difficulty:   v["difficulty"],
			success:      pick(v, successKeys),
			lanesBet:     v["lanesBet"],
			lanesCrossed: v["lanesCrossed"],
			payout:       v["payout"],
			seed:         pick(v, seedKeys),
			result:       pick(v, resultKeys),
		}
		if f.difficulty == nil || f.success == nil || f.lanesBet == nil || f.lanesCrossed == nil || f.payout == nil {
			return rawFields{}, fmt.Errorf("%w: missing fields in named result", game.ErrOutcomeUnavailable)
		}
		return f, nil

	default:
		return rawFields{}, fmt.Errorf("%w: unsupported result shape %T", game.ErrOutcomeUnavailable, raw)
	}
}

func pick(m map[string]interface{}, keys []string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("non-integer %v", n)
		}
		return int(n), nil
	case *big.Int:
		if n == nil || !n.IsInt64() {
			return 0, fmt.Errorf("out of range")
		}
		return int(n.Int64()), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("unsupported integer type %T", v)
	}
}

func toBool(v interface{}) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(b))
	default:
		return false, fmt.Errorf("unsupported bool type %T", v)
	}
}

// toTokens reads an 18-decimal base unit amount.
func toTokens(v interface{}) (decimal.Decimal, error) {
	var wei *big.Int
	switch n := v.(type) {
	case *big.Int:
		wei = n
	case string:
		w, ok := new(big.Int).SetString(strings.TrimSpace(n), 10)
		if !ok {
			return decimal.Zero, fmt.Errorf("not an integer: %q", n)
		}
		wei = w
	case json.Number:
		w, ok := new(big.Int).SetString(n.String(), 10)
		if !ok {
			return decimal.Zero, fmt.Errorf("not an integer: %q", n)
		}
		wei = w
	case uint64:
		wei = new(big.Int).SetUint64(n)
	case int64:
		wei = big.NewInt(n)
	case int:
		wei = big.NewInt(int64(n))
	default:
		return decimal.Zero, fmt.Errorf("unsupported payout type %T", v)
	}
	if wei == nil || wei.Sign() < 0 {
		return decimal.Zero, fmt.Errorf("negative or nil payout")
	}
	return config.WeiToToken(wei), nil
}

func toText(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case *big.Int:
		if s == nil {
			return ""
		}
		return s.String()
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}
