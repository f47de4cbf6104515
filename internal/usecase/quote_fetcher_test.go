package usecase

import (
	"context"
	"testing"

	"TradeSense/internal/domain/models"
	applogger "TradeSense/pkg/logger"
)

func newTestFetcher(feed *fakeFeed, refs *fakeRefs) *BatchQuoteFetcher {
	synth := NewFallbackSynthesizer(refs)
	return NewBatchQuoteFetcher(feed, refs, synth, newNopMetrics(), applogger.Nop())
}

func TestFetchBatchPartialFailure(t *testing.T) {
	feed := newFakeFeed()
	feed.quotes[1] = models.Tick{Bid: 1.05, Ask: 1.06}
	feed.quotes[2] = models.Tick{Last: 91000}
	feed.failQuotes[3] = true

	refs := newFakeRefs(map[string]float64{"XAU/USD": 1900})
	f := newTestFetcher(feed, refs)

	insts := []models.Instrument{
		{ID: 1, Symbol: "EUR/USD", AssetClass: models.AssetFX},
		{ID: 2, Symbol: "BTC/USD", AssetClass: models.AssetCrypto},
		{ID: 3, Symbol: "XAU/USD", AssetClass: models.AssetCommodities},
	}
	out := f.FetchBatch(context.Background(), insts)
	if len(out) != 3 {
		t.Fatalf("expected one entry per instrument, got %d", len(out))
	}

	// live mid-price normalization
	if got := out[1]; got.Degraded || got.Tick.Last != 1.055 {
		t.Fatalf("expected normalized last 1.055, got %+v", got)
	}
	if got := out[2]; got.Degraded || got.Tick.Last != 91000 {
		t.Fatalf("expected live last 91000, got %+v", got)
	}

	// missing entry falls back to the reference price, not an error
	got := out[3]
	if !got.Degraded || got.Reason != models.DegradeTransport {
		t.Fatalf("expected transport-degraded entry, got %+v", got)
	}
	if got.Tick.Last != 1900 {
		t.Fatalf("expected fallback last 1900, got %+v", got.Tick)
	}
}

func TestFetchBatchTotalFailure(t *testing.T) {
	feed := newFakeFeed()
	feed.quotesErr = errFeedDown
	refs := newFakeRefs(map[string]float64{"EUR/USD": 1.05, "BTC/USD": 90000})
	f := newTestFetcher(feed, refs)

	insts := []models.Instrument{
		{ID: 1, Symbol: "EUR/USD", AssetClass: models.AssetFX},
		{ID: 2, Symbol: "BTC/USD", AssetClass: models.AssetCrypto},
	}
	out := f.FetchBatch(context.Background(), insts)
	if len(out) != 2 {
		t.Fatalf("expected one entry per instrument, got %d", len(out))
	}
	for id, res := range out {
		if !res.Degraded || res.Tick.Last <= 0 {
			t.Fatalf("instrument %d: expected degraded fallback tick, got %+v", id, res)
		}
	}
}

func TestFetchBatchNoReference(t *testing.T) {
	feed := newFakeFeed()
	feed.quotesErr = errFeedDown
	f := newTestFetcher(feed, newFakeRefs(nil))

	out := f.FetchBatch(context.Background(), []models.Instrument{{ID: 7, Symbol: "???"}})
	got := out[7]
	if !got.Degraded || got.Reason != models.DegradeNoRef {
		t.Fatalf("expected no-reference entry, got %+v", got)
	}
	if got.Tick.Last != 0 {
		t.Fatalf("no-reference entry must carry no price, got %+v", got.Tick)
	}
}

func TestFetchBatchMalformedQuote(t *testing.T) {
	feed := newFakeFeed()
	feed.quotes[1] = models.Tick{Bid: -1, Ask: -1} // no derivable last
	refs := newFakeRefs(map[string]float64{"EUR/USD": 1.05})
	f := newTestFetcher(feed, refs)

	out := f.FetchBatch(context.Background(), []models.Instrument{{ID: 1, Symbol: "EUR/USD"}})
	got := out[1]
	if !got.Degraded || got.Reason != models.DegradeMalformed {
		t.Fatalf("expected malformed-degraded entry, got %+v", got)
	}
}

func TestFetchSingleRemembersLivePrice(t *testing.T) {
	feed := newFakeFeed()
	feed.quotes[1] = models.Tick{Last: 1.06}
	refs := newFakeRefs(nil)
	f := newTestFetcher(feed, refs)

	inst := models.Instrument{ID: 1, Symbol: "EUR/USD", AssetClass: models.AssetFX}
	res := f.FetchSingle(context.Background(), inst)
	if res.Degraded {
		t.Fatalf("expected live result, got %+v", res)
	}

	// subsequent failures resolve to the remembered price
	feed.mu.Lock()
	feed.quoteErr = errFeedDown
	feed.mu.Unlock()
	res = f.FetchSingle(context.Background(), inst)
	if !res.Degraded || res.Tick.Last != 1.06 {
		t.Fatalf("expected last-known fallback 1.06, got %+v", res)
	}
}

func TestSnapshotSurvivesFailedCycles(t *testing.T) {
	feed := newFakeFeed()
	feed.quotes[1] = models.Tick{Last: 100}
	f := newTestFetcher(feed, newFakeRefs(nil))
	inst := []models.Instrument{{ID: 1, Symbol: "AAPL", AssetClass: models.AssetStocks}}

	f.FetchBatch(context.Background(), inst)
	snap, first := f.Snapshot()
	if snap[1].Tick.Last != 100 {
		t.Fatalf("unexpected snapshot %+v", snap[1])
	}

	feed.mu.Lock()
	feed.quotesErr = errFeedDown
	feed.mu.Unlock()
	f.FetchBatch(context.Background(), inst)
	snap, second := f.Snapshot()
	if !snap[1].Degraded {
		t.Fatalf("expected degraded entry after feed loss, got %+v", snap[1])
	}
	if snap[1].Tick.Last != 100 {
		t.Fatalf("fallback should use remembered live price 100, got %+v", snap[1].Tick)
	}
	if !second.After(first) {
		t.Fatalf("refreshedAt must advance")
	}
}
