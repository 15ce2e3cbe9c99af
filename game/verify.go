package game

// VerifyRound recomputes a demo round from its revealed seeds. Given the same
// inputs it always returns the same outcome, so players can check that the
// fatal lane was fixed before the walk started.
func VerifyRound(serverSeed, clientSeed string, nonce uint64, tier Tier, targetLane int) (Outcome, error) {
	p := GetProfile(tier)
	if !p.ValidLane(targetLane) {
		return Outcome{}, ErrInvalidLane
	}
	out := Simulate(p, targetLane, RoundRNG(serverSeed, clientSeed, nonce))
	out.Seed = serverSeed
	return out, nil
}
