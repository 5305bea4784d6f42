package query

import "testing"

func TestRoundPercentile(t *testing.T) {
	cases := []struct {
		rank, count, want int
	}{
		{1, 1, 50},
		{1, 10, 5},
		{10, 10, 95},
		{5, 10, 45},
		{0, 0, 0},
	}
	for _, tc := range cases {
		if got := roundPercentile(tc.rank, tc.count); got != tc.want {
			t.Fatalf("roundPercentile(%d, %d) = %d, want %d", tc.rank, tc.count, got, tc.want)
		}
	}
}

func TestTierReservedRanks(t *testing.T) {
	for rank := 1; rank <= 10; rank++ {
		if got := Tier(rank, 1000); got != TierNone {
			t.Fatalf("Tier(%d, 1000) = %v, want TierNone", rank, got)
		}
	}
}

func TestTierCutoffOrdering(t *testing.T) {
	// 1000 eligible contestants, ranks 11..1000 span the tier schedule.
	// L1 = 2% of 990 ~= 19 -> rank 11..29 inclusive is L1.
	if got := Tier(11, 1000); got != TierL1 {
		t.Fatalf("rank just after reserved band should be L1, got %v", got)
	}
	if got := Tier(1000, 1000); got != TierL5 {
		t.Fatalf("the last rank should be L5, got %v", got)
	}
	// Tiers must be monotonically non-decreasing as rank worsens.
	prev := TierL1
	for rank := 11; rank <= 1000; rank++ {
		tier := Tier(rank, 1000)
		if tier < prev {
			t.Fatalf("tier regressed at rank %d: %v after %v", rank, tier, prev)
		}
		prev = tier
	}
}

func TestTierNoEligibleContestants(t *testing.T) {
	if got := Tier(11, 10); got != TierNone {
		t.Fatalf("Tier with no room past the reserved band should be TierNone, got %v", got)
	}
}
