package usecase

import "TradeSense/internal/domain/models"

// MergeTick folds a quote into the anchor candle so the chart breathes between
// authoritative bar reloads: high/low widen to cover the tick's last price and
// close tracks it, while open and timestamp stay fixed. Bar creation is the sole
// responsibility of a bar-load, never of a tick.
//
// Repeated application of the same tick is a no-op (max/min are stable), but the
// order of different ticks matters for the final high/low, matching real market
// behavior.
func MergeTick(anchor models.Candle, tick models.Tick) models.Candle {
	last := tick.Last
	if last > anchor.High {
		anchor.High = last
	}
	if last < anchor.Low {
		anchor.Low = last
	}
	anchor.Close = last
	return anchor
}
