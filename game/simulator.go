package game

// Sampler yields uniform samples in [0,1). *rand.Rand satisfies it.
type Sampler interface {
	Float64() float64
}

// DecideFatalLane walks lanes 1..targetLane in order, drawing one sample per
// lane, and returns the first lane whose sample falls under that lane's
// accident chance. fatal is false when the player reaches targetLane.
//
// The scan is a single forward pass so the draw order matches the order the
// walk visits lanes. A targetLane past the table is clamped to TotalLanes.
func DecideFatalLane(p Profile, targetLane int, s Sampler) (lane int, fatal bool) {
	if targetLane > p.TotalLanes {
		targetLane = p.TotalLanes
	}
	for i := 0; i < targetLane; i++ {
		if s.Float64() < p.AccidentChances[i] {
			return i + 1, true
		}
	}
	return 0, false
}

// PickAccidentKind draws the presentation kind of a loss.
func PickAccidentKind(s Sampler) AccidentKind {
	idx := int(s.Float64() * float64(len(AccidentKinds)))
	if idx >= len(AccidentKinds) {
		idx = len(AccidentKinds) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return AccidentKinds[idx]
}

// Simulate resolves a whole demo round: the fatal lane scan followed by the
// accident kind on a loss, both from s.
func Simulate(p Profile, targetLane int, s Sampler) Outcome {
	out := Outcome{
		Tier:     p.Tier,
		LanesBet: targetLane,
	}

	lane, fatal := DecideFatalLane(p, targetLane, s)
	if fatal {
		out.LanesCrossed = lane
		out.Accident = PickAccidentKind(s)
		out.ResultText = LossMessage(lane)
		return out
	}

	out.IsWin = true
	out.LanesCrossed = targetLane
	return out
}
