package signal

import (
	"context"
	"fmt"
	"math"
	"time"

	"TradeSense/internal/domain/models"
	domsvc "TradeSense/internal/domain/service"
)

const (
	volWindow = 30
	// momentum below this many sigmas is noise
	actionThreshold = 0.5
)

// MomentumDeriver is the default SignalDeriver: it scores the live tick against
// recent closes, normalized by realized volatility, and folds in the quoted
// spread as a confidence damper.
type MomentumDeriver struct{}

func NewMomentumDeriver() domsvc.SignalDeriver { return &MomentumDeriver{} }

func (d *MomentumDeriver) Derive(ctx context.Context, inst models.Instrument, tick models.Tick, closes []float64) (models.Signal, error) {
	if err := ctx.Err(); err != nil {
		return models.Signal{}, err
	}
	if tick.Last <= 0 {
		return models.Signal{}, fmt.Errorf("derive %s: tick has no usable price", inst.Symbol)
	}

	sig := models.Signal{
		InstrumentID: inst.ID,
		Action:       "hold",
		GeneratedAt:  time.Now().UTC(),
	}
	if tick.Bid > 0 && tick.Ask > tick.Bid {
		sig.Spread = (tick.Ask - tick.Bid) / tick.Last
	}
	if len(closes) < 2 {
		return sig, nil
	}

	rets := logReturns(closes)
	sigma := realizedVolatility(rets, minInt(volWindow, len(rets)))

	ref := closes[len(closes)-1]
	if ref <= 0 {
		return sig, nil
	}
	momentum := math.Log(tick.Last / ref)

	score := momentum
	if sigma > 0 {
		score = momentum / sigma
	}
	switch {
	case score > actionThreshold:
		sig.Action = "buy"
	case score < -actionThreshold:
		sig.Action = "sell"
	}
	sig.Strength = math.Min(math.Abs(score), 3) / 3
	return sig, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
