package model

import (
	"encoding/json"
	"testing"
)

func TestFeeTierPercent(t *testing.T) {
	cases := map[FeeTier]string{
		FeeTier001: "0.01%",
		FeeTier005: "0.05%",
		FeeTier025: "0.25%",
		FeeTier100: "1.00%",
	}
	for tier, want := range cases {
		if got := tier.Percent(); got != want {
			t.Fatalf("tier %d: %s != %s", tier, got, want)
		}
		if !tier.Valid() {
			t.Fatalf("tier %d should be valid", tier)
		}
	}
	if FeeTier(3000).Valid() {
		t.Fatalf("3000 is not an enumerated tier")
	}
}

func TestPoolJSONFieldNames(t *testing.T) {
	payload := []byte(`{
		"id": "0xpool",
		"token0": {"id": "0xaaa", "symbol": "WBNB", "decimals": "18"},
		"token1": {"id": "0xbbb", "symbol": "USDT", "decimals": "18"},
		"feeTier": "2500",
		"token0Price": "0.0016",
		"token1Price": "612.5",
		"totalValueLockedUSD": "1000000",
		"poolDayData": [{"date": 1700000000, "tvlUSD": "1", "feesUSD": "2", "volumeUSD": "3"}]
	}`)

	var pool Pool
	if err := json.Unmarshal(payload, &pool); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	tier, err := pool.Tier()
	if err != nil {
		t.Fatalf("tier: %v", err)
	}
	if tier != FeeTier025 {
		t.Fatalf("tier mismatch: %d", tier)
	}
	if pool.Token1Price != "612.5" || len(pool.PoolDayData) != 1 || pool.PoolDayData[0].VolumeUSD != "3" {
		t.Fatalf("pool mismatch: %+v", pool)
	}
	if !pool.HasToken("0xAAA") || pool.HasToken("0xccc") {
		t.Fatalf("HasToken mismatch")
	}
}
