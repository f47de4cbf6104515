package usecase

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"TradeSense/internal/domain/models"
	domrepo "TradeSense/internal/domain/repository"
)

// FallbackSynthesizer produces plausible OHLCV series and quotes when the live feed
// is unavailable, walking a bounded random drift from the instrument's reference
// price. Determinism is not required; monotonic timestamps and the OHLC invariant are.
type FallbackSynthesizer struct {
	refs domrepo.ReferencePrices

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewFallbackSynthesizer(refs domrepo.ReferencePrices) *FallbackSynthesizer {
	return &FallbackSynthesizer{
		refs: refs,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
		now:  time.Now,
	}
}

const (
	synthDrift  = 0.001 // max fractional close-to-close step
	synthVolMin = 10.0
	synthVolMax = 1000.0
)

// SynthesizeSeries walks count bars forward from the instrument's reference price.
// Timestamps are assigned backward from "now" in timeframe steps, so the newest bar
// lands within one step of the current time and the first bar opens exactly at the
// reference price. Returns nil when no reference price can be resolved; callers
// treat that as the exhausted-fallback "no data" state.
func (s *FallbackSynthesizer) SynthesizeSeries(ctx context.Context, inst models.Instrument, tf domrepo.Timeframe, count int) []models.Candle {
	if count <= 0 {
		return nil
	}
	ref, ok := s.refs.Resolve(ctx, inst)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	step := tf.Seconds()
	now := s.now().Unix()
	out := make([]models.Candle, 0, count)
	open := ref
	for i := 0; i < count; i++ {
		close := open * (1 + s.uniform(-synthDrift, synthDrift))
		hi, lo := open, open
		if close > hi {
			hi = close
		} else {
			lo = close
		}
		c := models.Candle{
			Timestamp: now - int64(count-1-i)*step,
			Open:      open,
			High:      hi * (1 + s.uniform(0, synthDrift)),
			Low:       lo * (1 - s.uniform(0, synthDrift)),
			Close:     close,
			Volume:    s.uniform(synthVolMin, synthVolMax),
		}
		out = append(out, c)
		open = close
	}
	return out
}

// SynthesizeTick builds a substitute quote around the reference price with a fixed
// one-basis-point spread. Reports false when even the reference lookup fails.
func (s *FallbackSynthesizer) SynthesizeTick(ctx context.Context, inst models.Instrument) (models.Tick, bool) {
	ref, ok := s.refs.Resolve(ctx, inst)
	if !ok {
		return models.Tick{}, false
	}
	t := models.Tick{
		Bid:        ref,
		Ask:        ref * 1.0001,
		Last:       ref,
		ObservedAt: s.now().UnixMilli(),
	}
	return t, true
}

func (s *FallbackSynthesizer) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}
