package usecase

import (
	"TradeSense/internal/domain/models"
	domrepo "TradeSense/internal/domain/repository"
	"TradeSense/pkg/util"
)

// TradeMarkerProjector maps executed trades onto candle time for overlay
// annotations. Pure function of its inputs: re-running with the same trades
// yields the same markers.
type TradeMarkerProjector struct{}

func NewTradeMarkerProjector() *TradeMarkerProjector { return &TradeMarkerProjector{} }

// Project emits one marker per trade, aligned to the candle bucket containing the
// execution time. BUY markers sit below the bar, SELL markers above. A marker does
// not require an exact timestamp match to an existing candle; the chart anchors
// visually to the nearest bar.
func (p *TradeMarkerProjector) Project(key domrepo.SeriesKey, trades []models.Trade) []models.Marker {
	if len(trades) == 0 {
		return nil
	}
	step := key.TF.Seconds()
	out := make([]models.Marker, 0, len(trades))
	for _, t := range trades {
		if t.InstrumentID != key.InstrumentID {
			continue
		}
		sec := t.ExecutedAt / 1000 // ms to candle seconds
		pos := models.MarkerBelow
		if t.Side == models.SideSell {
			pos = models.MarkerAbove
		}
		out = append(out, models.Marker{
			Timestamp: util.AlignToStep(sec, step),
			Side:      t.Side,
			Price:     t.Price,
			Position:  pos,
		})
	}
	return out
}
