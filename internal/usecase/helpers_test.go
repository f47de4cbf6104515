package usecase

import (
	"context"
	"errors"
	"sync"

	"TradeSense/internal/domain/models"
	domrepo "TradeSense/internal/domain/repository"
)

var errFeedDown = errors.New("feed unavailable")

// fakeFeed is a scriptable MarketFeed for tests. Channels, when set, gate the
// corresponding call so tests can hold a stage in flight.
type fakeFeed struct {
	mu sync.Mutex

	instruments []models.Instrument
	candles     map[int64][]models.Candle
	quotes      map[int64]models.Tick
	trades      []models.Trade

	candlesErr error
	quoteErr   error
	quotesErr  error

	// failQuotes lists instrument IDs dropped from batch responses
	failQuotes map[int64]bool

	// when non-nil, Candles blocks until the channel is closed
	candlesGate chan struct{}

	candlesCalls int
	quotesCalls  int
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		candles:    make(map[int64][]models.Candle),
		quotes:     make(map[int64]models.Tick),
		failQuotes: make(map[int64]bool),
	}
}

func (f *fakeFeed) Instruments(ctx context.Context) ([]models.Instrument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Instrument(nil), f.instruments...), nil
}

func (f *fakeFeed) Candles(ctx context.Context, id int64, tf domrepo.Timeframe, limit int) ([]models.Candle, error) {
	f.mu.Lock()
	gate := f.candlesGate
	f.candlesCalls++
	err := f.candlesErr
	out := append([]models.Candle(nil), f.candles[id]...)
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeFeed) Quote(ctx context.Context, id int64) (models.Tick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.quoteErr != nil {
		return models.Tick{}, f.quoteErr
	}
	t, ok := f.quotes[id]
	if !ok {
		return models.Tick{}, errFeedDown
	}
	return t, nil
}

func (f *fakeFeed) Quotes(ctx context.Context, ids []int64) (map[int64]models.Tick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotesCalls++
	if f.quotesErr != nil {
		return nil, f.quotesErr
	}
	out := make(map[int64]models.Tick, len(ids))
	for _, id := range ids {
		if f.failQuotes[id] {
			continue
		}
		if t, ok := f.quotes[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

func (f *fakeFeed) Trades(ctx context.Context, sessionID string) ([]models.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Trade(nil), f.trades...), nil
}

// fakeRefs is a fixed-price ReferencePrices table.
type fakeRefs struct {
	mu     sync.Mutex
	prices map[string]float64
	last   map[int64]float64
}

func newFakeRefs(prices map[string]float64) *fakeRefs {
	return &fakeRefs{prices: prices, last: make(map[int64]float64)}
}

func (r *fakeRefs) Resolve(ctx context.Context, inst models.Instrument) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.prices[inst.Symbol]; ok {
		return p, true
	}
	if p, ok := r.last[inst.ID]; ok {
		return p, true
	}
	return 0, false
}

func (r *fakeRefs) Remember(ctx context.Context, inst models.Instrument, price float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last[inst.ID] = price
}

// nopMetrics satisfies the Metrics interface while counting poll outcomes.
type nopMetrics struct {
	mu    sync.Mutex
	polls map[string]int
}

func newNopMetrics() *nopMetrics { return &nopMetrics{polls: make(map[string]int)} }

func (m *nopMetrics) RecordFallback(stage, symbol string) {}
func (m *nopMetrics) RecordPoll(outcome string) {
	m.mu.Lock()
	m.polls[outcome]++
	m.mu.Unlock()
}
func (m *nopMetrics) RecordError(kind string)                     {}
func (m *nopMetrics) RecordLastPrice(symbol string, price float64) {}
func (m *nopMetrics) RecordLatency(op string, seconds float64)     {}

func (m *nopMetrics) pollCount(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls[outcome]
}
