package game

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Tier is a difficulty level. Values match the contract's Difficulty enum.
type Tier uint8

const (
	Easy Tier = iota
	Medium
	Hard
	Daredevil
)

// Tiers lists every difficulty in contract order.
var Tiers = []Tier{Easy, Medium, Hard, Daredevil}

func (t Tier) String() string {
	switch t {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	case Daredevil:
		return "daredevil"
	default:
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
}

// Valid reports whether t is one of the four known tiers.
func (t Tier) Valid() bool {
	return t <= Daredevil
}

// ParseTier maps a name like "hard" to its Tier.
func ParseTier(name string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "easy":
		return Easy, true
	case "medium":
		return Medium, true
	case "hard":
		return Hard, true
	case "daredevil":
		return Daredevil, true
	}
	return Easy, false
}

// Profile is the lane table of one tier.
// LaneMultipliers[i] pays for reaching lane i+1; AccidentChances[i] is the
// probability in [0,1) of a fatal event while attempting lane i+1.
type Profile struct {
	Tier            Tier              `json:"difficulty"`
	StartMultiplier decimal.Decimal   `json:"startMultiplier"`
	MaxMultiplier   decimal.Decimal   `json:"maxMultiplier"`
	TotalLanes      int               `json:"totalLanes"`
	LaneMultipliers []decimal.Decimal `json:"laneMultipliers"`
	AccidentChances []float64         `json:"accidentChances"`
}

// Contract tables. Multipliers are stored by the contract as percent and
// accident chances as parts per million.
var (
	easyMultipliers      = []int64{100, 120, 140, 160, 180, 220, 260, 300}
	mediumMultipliers    = []int64{105, 120, 140, 160, 190, 230, 280, 340, 420, 500}
	hardMultipliers      = []int64{112, 125, 140, 160, 185, 210, 240, 280, 330, 400, 480, 580, 680, 800}
	daredevilMultipliers = []int64{130, 150, 180, 210, 250, 300, 350, 420, 500, 600, 720, 850, 1000, 1200, 1350, 1500}

	easyAccidents      = []int64{500000, 329000, 263000, 231000, 199000, 182000, 171000, 159000}
	mediumAccidents    = []int64{550000, 352000, 269000, 225000, 199000, 182000, 171000, 159000, 151000, 149000}
	hardAccidents      = []int64{600000, 392000, 302000, 254000, 225000, 206000, 189000, 177000, 169000, 158000, 149000, 146000, 146000, 146000}
	daredevilAccidents = []int64{650000, 434000, 338000, 286000, 255000, 229000, 211000, 199000, 190000, 178000, 169000, 168000, 169000, 173000, 171000, 171000}
)

// GetProfile returns the lane table for tier. Unknown tiers fall back to Easy.
// Every call returns fresh slices, so callers may not mutate the shared tables.
func GetProfile(tier Tier) Profile {
	switch tier {
	case Medium:
		return newProfile(Medium, mediumMultipliers, mediumAccidents)
	case Hard:
		return newProfile(Hard, hardMultipliers, hardAccidents)
	case Daredevil:
		return newProfile(Daredevil, daredevilMultipliers, daredevilAccidents)
	default:
		return newProfile(Easy, easyMultipliers, easyAccidents)
	}
}

func newProfile(tier Tier, percents, ppm []int64) Profile {
	mults := make([]decimal.Decimal, len(percents))
	for i, p := range percents {
		mults[i] = decimal.New(p, -2)
	}

	chances := make([]float64, len(ppm))
	for i, c := range ppm {
		chances[i] = float64(c) / 1e6
	}

	return Profile{
		Tier:            tier,
		StartMultiplier: mults[0],
		MaxMultiplier:   mults[len(mults)-1],
		TotalLanes:      len(mults),
		LaneMultipliers: mults,
		AccidentChances: chances,
	}
}

// Multiplier returns the multiplier shown while standing on lane.
// Lane 0 shows the start multiplier; lanes past the end show the maximum.
func (p Profile) Multiplier(lane int) decimal.Decimal {
	if lane <= 0 {
		return p.StartMultiplier
	}
	if lane > len(p.LaneMultipliers) {
		return p.MaxMultiplier
	}
	return p.LaneMultipliers[lane-1]
}

// ValidLane reports whether lane can be chosen as a target.
func (p Profile) ValidLane(lane int) bool {
	return lane >= 1 && lane <= p.TotalLanes
}

// Validate checks the table invariants. Tables are constants, so this only
// runs in tests and in the rtp tool.
func (p Profile) Validate() error {
	if p.TotalLanes <= 0 {
		return fmt.Errorf("%s: no lanes", p.Tier)
	}
	if len(p.LaneMultipliers) != p.TotalLanes || len(p.AccidentChances) != p.TotalLanes {
		return fmt.Errorf("%s: table length mismatch (lanes=%d multipliers=%d chances=%d)",
			p.Tier, p.TotalLanes, len(p.LaneMultipliers), len(p.AccidentChances))
	}
	if !p.LaneMultipliers[0].Equal(p.StartMultiplier) {
		return fmt.Errorf("%s: first multiplier %s != start %s", p.Tier, p.LaneMultipliers[0], p.StartMultiplier)
	}
	if !p.LaneMultipliers[p.TotalLanes-1].Equal(p.MaxMultiplier) {
		return fmt.Errorf("%s: last multiplier %s != max %s", p.Tier, p.LaneMultipliers[p.TotalLanes-1], p.MaxMultiplier)
	}
	for i := 1; i < p.TotalLanes; i++ {
		if p.LaneMultipliers[i].LessThan(p.LaneMultipliers[i-1]) {
			return fmt.Errorf("%s: multiplier decreases at lane %d", p.Tier, i+1)
		}
	}
	for i, c := range p.AccidentChances {
		if c < 0 || c >= 1 {
			return fmt.Errorf("%s: accident chance %v at lane %d outside [0,1)", p.Tier, c, i+1)
		}
	}
	return nil
}
