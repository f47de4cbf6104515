package repository

import (
	"context"

	"TradeSense/internal/domain/models"
)

// MarketFeed is the upstream market-data API. Every call is a suspension point:
// callers must treat failures as recoverable and fall back locally.
type MarketFeed interface {
	Instruments(ctx context.Context) ([]models.Instrument, error)
	Candles(ctx context.Context, instrumentID int64, tf Timeframe, limit int) ([]models.Candle, error)
	Quote(ctx context.Context, instrumentID int64) (models.Tick, error)
	Quotes(ctx context.Context, instrumentIDs []int64) (map[int64]models.Tick, error)
	Trades(ctx context.Context, sessionID string) ([]models.Trade, error)
}

// ReferencePrices resolves a fallback price for an instrument. Lookup order:
// exact instrument, then last-known live price, then asset-class heuristic,
// then a fixed default. Remember feeds the last-known table from live ticks.
type ReferencePrices interface {
	Resolve(ctx context.Context, inst models.Instrument) (float64, bool)
	Remember(ctx context.Context, inst models.Instrument, price float64)
}

type Metrics interface {
	RecordFallback(stage, symbol string)
	RecordPoll(outcome string) // "ok", "skipped", "error"
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
