package usecase

import (
	"context"
	"sync"
	"time"

	"TradeSense/internal/domain/models"
	domrepo "TradeSense/internal/domain/repository"
	applogger "TradeSense/pkg/logger"
)

// BatchQuoteFetcher retrieves tick snapshots for the watchlist in one round trip,
// substituting a reference-price quote per instrument whose live retrieval fails.
// Substitution is per-instrument: a partial batch failure never discards the ticks
// that did arrive. The latest snapshot and its refresh time are kept for the UI.
type BatchQuoteFetcher struct {
	feed    domrepo.MarketFeed
	refs    domrepo.ReferencePrices
	synth   *FallbackSynthesizer
	metrics domrepo.Metrics
	logger  *applogger.Logger

	mu          sync.RWMutex
	snapshot    map[int64]models.QuoteResult
	refreshedAt time.Time
}

func NewBatchQuoteFetcher(
	feed domrepo.MarketFeed,
	refs domrepo.ReferencePrices,
	synth *FallbackSynthesizer,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
) *BatchQuoteFetcher {
	return &BatchQuoteFetcher{
		feed:     feed,
		refs:     refs,
		synth:    synth,
		metrics:  metrics,
		logger:   logger,
		snapshot: make(map[int64]models.QuoteResult),
	}
}

// FetchBatch resolves one tick per instrument. The result always has exactly
// len(insts) entries; failed ones carry the fallback tick and the reason it fired.
func (f *BatchQuoteFetcher) FetchBatch(ctx context.Context, insts []models.Instrument) map[int64]models.QuoteResult {
	start := time.Now()
	ids := make([]int64, 0, len(insts))
	for _, inst := range insts {
		ids = append(ids, inst.ID)
	}

	live, err := f.feed.Quotes(ctx, ids)
	if err != nil {
		f.logger.Warn("batch quote fetch failed, substituting all",
			applogger.Int("instruments", len(insts)), applogger.Error(err))
		f.metrics.RecordError("batch_quotes")
		live = nil
	}

	out := make(map[int64]models.QuoteResult, len(insts))
	for _, inst := range insts {
		out[inst.ID] = f.resolve(ctx, inst, live)
	}

	f.mu.Lock()
	for id, res := range out {
		f.snapshot[id] = res
	}
	f.refreshedAt = time.Now()
	f.mu.Unlock()

	f.metrics.RecordLatency("fetch_batch", time.Since(start).Seconds())
	return out
}

// FetchSingle resolves one tick for one instrument with the same substitution rule.
func (f *BatchQuoteFetcher) FetchSingle(ctx context.Context, inst models.Instrument) models.QuoteResult {
	start := time.Now()
	res := models.QuoteResult{}

	raw, err := f.feed.Quote(ctx, inst.ID)
	switch {
	case err != nil:
		res = f.substitute(ctx, inst, models.DegradeTransport)
	default:
		tick := models.NormalizeTick(raw)
		if tick.Last <= 0 {
			res = f.substitute(ctx, inst, models.DegradeMalformed)
		} else {
			f.refs.Remember(ctx, inst, tick.Last)
			res = models.QuoteResult{Tick: tick}
		}
	}

	f.mu.Lock()
	f.snapshot[inst.ID] = res
	f.refreshedAt = time.Now()
	f.mu.Unlock()

	if !res.Degraded || res.Reason != models.DegradeNoRef {
		f.metrics.RecordLastPrice(inst.Symbol, res.Tick.Last)
	}
	f.metrics.RecordLatency("fetch_single", time.Since(start).Seconds())
	return res
}

// Snapshot returns a copy of the latest per-instrument results and when they were
// last refreshed. Stale entries persist until the next successful fetch.
func (f *BatchQuoteFetcher) Snapshot() (map[int64]models.QuoteResult, time.Time) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[int64]models.QuoteResult, len(f.snapshot))
	for id, res := range f.snapshot {
		out[id] = res
	}
	return out, f.refreshedAt
}

func (f *BatchQuoteFetcher) resolve(ctx context.Context, inst models.Instrument, live map[int64]models.Tick) models.QuoteResult {
	raw, ok := live[inst.ID]
	if !ok {
		return f.substitute(ctx, inst, models.DegradeTransport)
	}
	tick := models.NormalizeTick(raw)
	if tick.Last <= 0 {
		return f.substitute(ctx, inst, models.DegradeMalformed)
	}
	f.refs.Remember(ctx, inst, tick.Last)
	f.metrics.RecordLastPrice(inst.Symbol, tick.Last)
	return models.QuoteResult{Tick: tick}
}

func (f *BatchQuoteFetcher) substitute(ctx context.Context, inst models.Instrument, reason models.DegradedReason) models.QuoteResult {
	f.metrics.RecordFallback("quote", inst.Symbol)
	tick, ok := f.synth.SynthesizeTick(ctx, inst)
	if !ok {
		// exhausted fallback: surfaces as a "no data" entry, never an error
		f.logger.Warn("no reference price for instrument",
			applogger.Int64("instrument_id", inst.ID), applogger.String("symbol", inst.Symbol))
		return models.QuoteResult{Degraded: true, Reason: models.DegradeNoRef}
	}
	f.logger.Warn("substituted quote",
		applogger.String("symbol", inst.Symbol), applogger.String("reason", string(reason)))
	return models.QuoteResult{Tick: tick, Degraded: true, Reason: reason}
}
