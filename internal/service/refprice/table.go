package refprice

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"TradeSense/internal/domain/models"
	"TradeSense/pkg/cache"
)

// Asset-class reference prices used when nothing better is known for an
// instrument. Tuned to the price magnitudes the simulator presents.
var classDefaults = map[models.AssetClass]float64{
	models.AssetFX:          1.05,
	models.AssetCrypto:      90000,
	models.AssetCommodities: 1900,
	models.AssetStocks:      150,
	models.AssetIndex:       5000,
}

// Table resolves fallback reference prices through a deterministic lookup order:
// exact symbol entry, then the last-known live price, then the asset-class
// default, then a fixed floor. No loose string matching anywhere.
type Table struct {
	store cache.Service

	mu           sync.RWMutex
	exact        map[string]float64
	fixedDefault float64
}

type Option func(*Table)

// WithExactPrices seeds per-symbol reference entries (e.g. BTC/USD at 90000).
func WithExactPrices(prices map[string]float64) Option {
	return func(t *Table) {
		for sym, p := range prices {
			if p > 0 {
				t.exact[sym] = p
			}
		}
	}
}

// WithFixedDefault sets the final-resort price. Zero disables it, making an
// unknown instrument surface as "no reference" (the empty-state render).
func WithFixedDefault(p float64) Option {
	return func(t *Table) { t.fixedDefault = p }
}

// New creates a reference price table backed by the given cache for last-known
// prices. The cache may be memory-only or Redis-backed; the table is agnostic.
func New(store cache.Service, opts ...Option) *Table {
	t := &Table{
		store: store,
		exact: map[string]float64{
			"BTC/USD": 90000,
			"ETH/USD": 5000,
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Resolve returns the reference price for inst, reporting false only when every
// source is exhausted (unknown instrument with no default configured).
func (t *Table) Resolve(ctx context.Context, inst models.Instrument) (float64, bool) {
	t.mu.RLock()
	p, ok := t.exact[inst.Symbol]
	fixed := t.fixedDefault
	t.mu.RUnlock()
	if ok {
		return p, true
	}

	var known float64
	if err := t.store.Get(ctx, lastKnownKey(inst.ID), &known); err == nil && known > 0 {
		return known, true
	} else if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		// degraded cache backend is not fatal; fall through to the class default
	}

	if p, ok := classDefaults[inst.AssetClass]; ok {
		return p, true
	}
	if fixed > 0 {
		return fixed, true
	}
	return 0, false
}

// Remember records a live price as the last-known value for the instrument.
// Kept without expiry: stale is better than nothing when the feed degrades.
func (t *Table) Remember(ctx context.Context, inst models.Instrument, price float64) {
	if price <= 0 {
		return
	}
	_ = t.store.Set(ctx, lastKnownKey(inst.ID), price, 0)
}

func lastKnownKey(id int64) string {
	return "refprice:last:" + strconv.FormatInt(id, 10)
}
