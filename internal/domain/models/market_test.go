package models

import "testing"

func TestNormalizeTickMidpoint(t *testing.T) {
	got := NormalizeTick(Tick{Bid: 1.05, Ask: 1.06})
	if got.Last != 1.055 {
		t.Fatalf("expected midpoint 1.055, got %v", got.Last)
	}
}

func TestNormalizeTickKeepsExplicitLast(t *testing.T) {
	got := NormalizeTick(Tick{Bid: 1.05, Ask: 1.06, Last: 1.059})
	if got.Last != 1.059 {
		t.Fatalf("explicit last must win, got %v", got.Last)
	}
}

func TestNormalizeTickUnusable(t *testing.T) {
	got := NormalizeTick(Tick{Bid: 1.05})
	if got.Last != 0 {
		t.Fatalf("one-sided quote must stay unusable, got %v", got.Last)
	}
}

func TestCandleValid(t *testing.T) {
	ok := Candle{Open: 10, High: 11, Low: 9, Close: 10.5}
	if !ok.Valid() {
		t.Fatalf("expected valid candle")
	}
	bad := Candle{Open: 10, High: 10.2, Low: 9, Close: 10.5}
	if bad.Valid() {
		t.Fatalf("high below close must be invalid")
	}
}
