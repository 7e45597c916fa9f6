package liquidity

import (
	"errors"
	"testing"

	"yieldFarm/internal/pricemath"
)

func TestDistribution(t *testing.T) {
	state := State{NetLiquidity: map[int32]string{-120: "700", 0: "500", 60: "-500", 120: "-700"}}

	bins, err := Distribution(state, 60, 18, 18)
	if err != nil {
		t.Fatalf("distribution: %v", err)
	}

	want := []struct {
		lower, upper int
		liquidity    string
	}{
		{-120, -60, "700"},
		{-60, 0, "700"},
		{0, 60, "1200"},
		{60, 120, "700"},
	}
	if len(bins) != len(want) {
		t.Fatalf("bin count mismatch: %+v", bins)
	}
	for i, w := range want {
		if bins[i].TickLower != w.lower || bins[i].TickUpper != w.upper || bins[i].Liquidity != w.liquidity {
			t.Fatalf("bin %d mismatch: %+v", i, bins[i])
		}
	}
	if bins[2].PriceLower != "1" {
		t.Fatalf("price at tick 0 mismatch: %s", bins[2].PriceLower)
	}
}

func TestDistributionPeakInsideBin(t *testing.T) {
	state := State{NetLiquidity: map[int32]string{-120: "700", 0: "500", 60: "-500", 120: "-700"}}

	bins, err := Distribution(state, 120, 18, 18)
	if err != nil {
		t.Fatalf("distribution: %v", err)
	}
	if len(bins) != 2 || bins[0].Liquidity != "700" || bins[1].Liquidity != "1200" {
		t.Fatalf("bins mismatch: %+v", bins)
	}
}

func TestDistributionWidensBins(t *testing.T) {
	state := State{NetLiquidity: map[int32]string{-887220: "1", 887220: "-1"}}

	bins, err := Distribution(state, 1, 18, 18)
	if err != nil {
		t.Fatalf("distribution: %v", err)
	}
	if len(bins) > MaxBins+1 {
		t.Fatalf("expected at most %d bins, got %d", MaxBins+1, len(bins))
	}
}

func TestDistributionEdgeCases(t *testing.T) {
	if _, err := Distribution(State{}, 0, 18, 18); !errors.Is(err, pricemath.ErrInvalidSpacing) {
		t.Fatalf("expected ErrInvalidSpacing, got %v", err)
	}

	bins, err := Distribution(State{NetLiquidity: map[int32]string{10: "5"}}, 10, 18, 18)
	if err != nil || bins != nil {
		t.Fatalf("expected no bins, got %+v err=%v", bins, err)
	}

	if _, err := Distribution(State{NetLiquidity: map[int32]string{0: "x", 10: "1"}}, 10, 18, 18); err == nil {
		t.Fatalf("expected error for corrupt value")
	}
}
