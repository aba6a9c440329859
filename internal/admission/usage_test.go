package admission

import (
	"testing"
	"time"
)

func TestRecordTokensAccumulates(t *testing.T) {
	c, _ := newTestController(Config{MaxPerWindow: 10, DailyTokenCap: 1000})

	c.RecordTokens(10, 5)
	c.RecordTokens(3, 2)

	snap := c.Snapshot()
	if snap.TokensIn != 13 || snap.TokensOut != 7 {
		t.Fatalf("Snapshot() tokens = %d/%d, want 13/7", snap.TokensIn, snap.TokensOut)
	}
	if snap.DailyCap != 1000 {
		t.Fatalf("Snapshot() DailyCap = %d, want 1000", snap.DailyCap)
	}
	if snap.Day == "" {
		t.Fatalf("Snapshot() Day is empty")
	}
}

func TestRecordTokensRollsDayLazily(t *testing.T) {
	c, clk := newTestController(Config{MaxPerWindow: 10, DailyTokenCap: 1000})

	c.RecordTokens(50, 50)
	day1 := c.Snapshot().Day

	clk.Advance(24 * time.Hour)
	c.RecordTokens(1, 1)

	snap := c.Snapshot()
	if snap.Day == day1 {
		t.Fatalf("Day did not roll over: %q", snap.Day)
	}
	if snap.TokensIn != 1 || snap.TokensOut != 1 {
		t.Fatalf("tokens after rollover = %d/%d, want 1/1", snap.TokensIn, snap.TokensOut)
	}
}

func TestEstimateTokens(t *testing.T) {
	in, out := EstimateTokens("abcdefgh") // 8 chars -> 2 tokens
	if in+out != 2 {
		t.Fatalf("EstimateTokens total = %d, want 2", in+out)
	}
	if in != 1 || out != 1 {
		t.Fatalf("EstimateTokens split = %d/%d, want even", in, out)
	}

	in, out = EstimateTokens("")
	if in != 0 || out != 0 {
		t.Fatalf("EstimateTokens(\"\") = %d/%d, want 0/0", in, out)
	}
}
