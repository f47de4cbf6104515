package repository

import (
	"testing"
	"time"
)

func TestNormalizeTimeframe(t *testing.T) {
	if got := NormalizeTimeframe(""); got != TF1m {
		t.Fatalf("empty must normalize to default, got %s", got)
	}
	if got := NormalizeTimeframe("4h"); got != TF4h {
		t.Fatalf("expected 4h, got %s", got)
	}
	if got := NormalizeTimeframe("2m"); got != TF1m {
		t.Fatalf("unknown must normalize to default, got %s", got)
	}
}

func TestTimeframeSeconds(t *testing.T) {
	cases := map[Timeframe]int64{
		TF1m:  60,
		TF5m:  300,
		TF15m: 900,
		TF1h:  3600,
		TF4h:  14400,
		TF1d:  86400,
	}
	for tf, want := range cases {
		if got := tf.Seconds(); got != want {
			t.Fatalf("%s: expected %d seconds, got %d", tf, want, got)
		}
		if got := tf.Duration(); got != time.Duration(want)*time.Second {
			t.Fatalf("%s: duration mismatch %v", tf, got)
		}
	}
}

func TestIsValidTimeframe(t *testing.T) {
	if IsValidTimeframe("7m") {
		t.Fatalf("7m must be invalid")
	}
	if !IsValidTimeframe(TF1d) {
		t.Fatalf("1d must be valid")
	}
}
