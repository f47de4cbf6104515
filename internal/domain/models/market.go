package models

import "time"

// AssetClass categorizes instruments for fallback pricing heuristics.
type AssetClass string

const (
	AssetFX          AssetClass = "FX"
	AssetCrypto      AssetClass = "CRYPTO"
	AssetCommodities AssetClass = "COMMODITIES"
	AssetStocks      AssetClass = "STOCKS"
	AssetIndex       AssetClass = "INDEX"
)

// Instrument is a tradable symbol owned by the external catalog. Immutable once loaded.
type Instrument struct {
	ID         int64      `json:"id"`
	Symbol     string     `json:"symbol"`
	AssetClass AssetClass `json:"asset_class"`
}

// Candle is one OHLCV bar. Timestamp is unix seconds, unique within a series.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Valid reports whether the OHLC invariant holds.
func (c Candle) Valid() bool {
	hi := c.Open
	if c.Close > hi {
		hi = c.Close
	}
	lo := c.Open
	if c.Close < lo {
		lo = c.Close
	}
	return c.High >= hi && c.Low <= lo
}

// Tick is an instantaneous quote observation. ObservedAt is unix milliseconds.
type Tick struct {
	Bid        float64 `json:"bid"`
	Ask        float64 `json:"ask"`
	Last       float64 `json:"last"`
	ObservedAt int64   `json:"observed_at"`
}

// NormalizeTick derives Last from the bid/ask midpoint when the feed omits it.
// Must run exactly once, at ingestion; everything downstream relies on Last being set.
func NormalizeTick(t Tick) Tick {
	if t.Last == 0 && t.Bid > 0 && t.Ask > 0 {
		t.Last = (t.Bid + t.Ask) / 2
	}
	return t
}

// Side of an executed trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade is an executed order from the trading-execution collaborator. ExecutedAt is unix milliseconds.
type Trade struct {
	InstrumentID int64   `json:"instrument_id"`
	Side         Side    `json:"side"`
	Qty          float64 `json:"qty"`
	Price        float64 `json:"price"`
	ExecutedAt   int64   `json:"executed_at"`
}

// MarkerPosition tells the chart whether to anchor the marker above or below the bar.
type MarkerPosition string

const (
	MarkerBelow MarkerPosition = "below"
	MarkerAbove MarkerPosition = "above"
)

// Marker is an overlay annotation aligned to candle time. Timestamp is unix seconds.
type Marker struct {
	Timestamp int64          `json:"timestamp"`
	Side      Side           `json:"side"`
	Price     float64        `json:"price"`
	Position  MarkerPosition `json:"position"`
}

// Signal is the trading hint derived from the live tick for the selected instrument.
type Signal struct {
	InstrumentID int64     `json:"instrument_id"`
	Action       string    `json:"action"` // "buy", "sell", "hold"
	Strength     float64   `json:"strength"`
	Spread       float64   `json:"spread"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// DegradedReason identifies which fallback path produced a value.
type DegradedReason string

const (
	DegradeTransport DegradedReason = "transport"
	DegradeEmpty     DegradedReason = "empty"
	DegradeMalformed DegradedReason = "malformed"
	DegradeNoRef     DegradedReason = "no_reference"
)

// QuoteResult carries a tick plus the fallback path that produced it, if any.
// Degraded results are served to the UI exactly like live ones.
type QuoteResult struct {
	Tick     Tick
	Degraded bool
	Reason   DegradedReason
}

// BarsResult carries a loaded series plus the fallback path that produced it, if any.
type BarsResult struct {
	Candles  []Candle
	Degraded bool
	Reason   DegradedReason
}
