package usecase

import (
	"context"
	"testing"
	"time"

	"TradeSense/internal/domain/models"
	domrepo "TradeSense/internal/domain/repository"
)

func TestSynthesizeSeriesShape(t *testing.T) {
	refs := newFakeRefs(map[string]float64{"BTC/USD": 90000})
	s := NewFallbackSynthesizer(refs)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	inst := models.Instrument{ID: 1, Symbol: "BTC/USD", AssetClass: models.AssetCrypto}
	got := s.SynthesizeSeries(context.Background(), inst, domrepo.TF1m, 50)
	if len(got) != 50 {
		t.Fatalf("expected 50 candles, got %d", len(got))
	}
	if got[0].Open != 90000 {
		t.Fatalf("first bar must open at the reference price, got %v", got[0].Open)
	}
	step := domrepo.TF1m.Seconds()
	for i, c := range got {
		if i > 0 {
			if c.Timestamp != got[i-1].Timestamp+step {
				t.Fatalf("timestamps must ascend by one step, bar %d: %d after %d", i, c.Timestamp, got[i-1].Timestamp)
			}
			if c.Open != got[i-1].Close {
				t.Fatalf("bar %d must open at previous close", i)
			}
		}
		if !c.Valid() {
			t.Fatalf("bar %d violates OHLC invariant: %+v", i, c)
		}
		if c.Volume < synthVolMin || c.Volume > synthVolMax {
			t.Fatalf("bar %d volume out of range: %v", i, c.Volume)
		}
	}
	if last := got[len(got)-1].Timestamp; last != fixed.Unix() {
		t.Fatalf("newest bar must land at now, got %d want %d", last, fixed.Unix())
	}
}

func TestSynthesizeSeriesNoReference(t *testing.T) {
	s := NewFallbackSynthesizer(newFakeRefs(nil))
	inst := models.Instrument{ID: 9, Symbol: "???", AssetClass: "UNKNOWN"}
	if got := s.SynthesizeSeries(context.Background(), inst, domrepo.TF1m, 10); got != nil {
		t.Fatalf("expected nil series without a reference price, got %d bars", len(got))
	}
}

func TestSynthesizeTick(t *testing.T) {
	refs := newFakeRefs(map[string]float64{"EUR/USD": 1.05})
	s := NewFallbackSynthesizer(refs)
	inst := models.Instrument{ID: 2, Symbol: "EUR/USD", AssetClass: models.AssetFX}

	tick, ok := s.SynthesizeTick(context.Background(), inst)
	if !ok {
		t.Fatalf("expected tick")
	}
	if tick.Bid != 1.05 || tick.Last != 1.05 {
		t.Fatalf("bid/last must equal the reference, got %+v", tick)
	}
	if tick.Ask <= tick.Bid {
		t.Fatalf("ask must sit above bid, got %+v", tick)
	}

	if _, ok := s.SynthesizeTick(context.Background(), models.Instrument{ID: 3, Symbol: "???"}); ok {
		t.Fatalf("expected no tick without a reference price")
	}
}
