package game

import "testing"

func TestProfilesValid(t *testing.T) {
	lanes := map[Tier]int{Easy: 8, Medium: 10, Hard: 14, Daredevil: 16}

	for _, tier := range Tiers {
		t.Run(tier.String(), func(t *testing.T) {
			p := GetProfile(tier)
			if err := p.Validate(); err != nil {
				t.Fatalf("profile invalid: %v", err)
			}
			if p.TotalLanes != lanes[tier] {
				t.Errorf("expected %d lanes, got %d", lanes[tier], p.TotalLanes)
			}
			if p.Tier != tier {
				t.Errorf("expected tier %s, got %s", tier, p.Tier)
			}
		})
	}
}

func TestProfileStartAndMax(t *testing.T) {
	cases := []struct {
		tier       Tier
		start, max string
	}{
		{Easy, "1", "3"},
		{Medium, "1.05", "5"},
		{Hard, "1.12", "8"},
		{Daredevil, "1.3", "15"},
	}

	for _, c := range cases {
		p := GetProfile(c.tier)
		if p.StartMultiplier.String() != c.start {
			t.Errorf("%s: expected start %s, got %s", c.tier, c.start, p.StartMultiplier)
		}
		if p.MaxMultiplier.String() != c.max {
			t.Errorf("%s: expected max %s, got %s", c.tier, c.max, p.MaxMultiplier)
		}
	}
}

func TestUnknownTierFallsBackToEasy(t *testing.T) {
	p := GetProfile(Tier(42))
	if p.Tier != Easy {
		t.Errorf("expected easy fallback, got %s", p.Tier)
	}
	if p.TotalLanes != 8 {
		t.Errorf("expected 8 lanes, got %d", p.TotalLanes)
	}
}

func TestGetProfileReturnsCopies(t *testing.T) {
	p := GetProfile(Easy)
	p.AccidentChances[0] = 0.99
	p.LaneMultipliers[0] = p.LaneMultipliers[7]

	fresh := GetProfile(Easy)
	if fresh.AccidentChances[0] != 0.5 {
		t.Errorf("shared accident table was mutated: %v", fresh.AccidentChances[0])
	}
	if fresh.LaneMultipliers[0].String() != "1" {
		t.Errorf("shared multiplier table was mutated: %s", fresh.LaneMultipliers[0])
	}
}

func TestParseTier(t *testing.T) {
	for _, tier := range Tiers {
		got, ok := ParseTier(tier.String())
		if !ok || got != tier {
			t.Errorf("ParseTier(%q) = %s, %v", tier.String(), got, ok)
		}
	}
	if got, ok := ParseTier(" DareDevil "); !ok || got != Daredevil {
		t.Errorf("expected case-insensitive parse, got %s, %v", got, ok)
	}
	if _, ok := ParseTier("impossible"); ok {
		t.Error("expected unknown tier to fail")
	}
}

func TestProfileMultiplier(t *testing.T) {
	p := GetProfile(Easy)
	if !p.Multiplier(0).Equal(p.StartMultiplier) {
		t.Errorf("lane 0 should show start multiplier, got %s", p.Multiplier(0))
	}
	if p.Multiplier(3).String() != "1.4" {
		t.Errorf("expected 1.4 on lane 3, got %s", p.Multiplier(3))
	}
	if !p.Multiplier(99).Equal(p.MaxMultiplier) {
		t.Errorf("expected max multiplier past the end, got %s", p.Multiplier(99))
	}
	if p.ValidLane(0) || p.ValidLane(9) || !p.ValidLane(8) {
		t.Error("ValidLane bounds wrong")
	}
}
