package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"TradeSense/internal/domain/models"
	domrepo "TradeSense/internal/domain/repository"
	sigsvc "TradeSense/internal/service/signal"
	applogger "TradeSense/pkg/logger"
)

type recordingNotifier struct {
	mu      sync.Mutex
	updates []models.Candle
}

func (n *recordingNotifier) NotifyCandle(key domrepo.SeriesKey, c models.Candle) {
	n.mu.Lock()
	n.updates = append(n.updates, c)
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.updates)
}

func newTestSequencer(feed *fakeFeed, opts ...SequencerOption) (*Sequencer, *CandleStore, *nopMetrics) {
	refs := newFakeRefs(map[string]float64{"EUR/USD": 1.05, "BTC/USD": 90000})
	store := NewCandleStore()
	synth := NewFallbackSynthesizer(refs)
	fetcher := NewBatchQuoteFetcher(feed, refs, synth, newNopMetrics(), applogger.Nop())
	m := newNopMetrics()
	seq := NewSequencer(feed, store, fetcher, synth, sigsvc.NewMomentumDeriver(), m, applogger.Nop(), opts...)
	return seq, store, m
}

var (
	instEUR = models.Instrument{ID: 1, Symbol: "EUR/USD", AssetClass: models.AssetFX}
	instBTC = models.Instrument{ID: 2, Symbol: "BTC/USD", AssetClass: models.AssetCrypto}
)

func TestSelectLoadsBarsThenTick(t *testing.T) {
	feed := newFakeFeed()
	feed.candles[1] = []models.Candle{
		{Timestamp: 60, Open: 1.04, High: 1.05, Low: 1.03, Close: 1.045, Volume: 10},
		{Timestamp: 120, Open: 1.045, High: 1.055, Low: 1.04, Close: 1.05, Volume: 12},
	}
	feed.quotes[1] = models.Tick{Bid: 1.05, Ask: 1.06}

	seq, store, _ := newTestSequencer(feed)
	defer seq.Close()

	<-seq.Select(instEUR, domrepo.TF1m)

	key := domrepo.SeriesKey{InstrumentID: 1, TF: domrepo.TF1m}
	anchor, ok := store.Last(key)
	if !ok {
		t.Fatalf("expected loaded series")
	}
	// the startup tick wins over the last bar close
	if anchor.Close != 1.055 {
		t.Fatalf("expected anchor close at normalized tick 1.055, got %v", anchor.Close)
	}
	if anchor.Timestamp != 120 {
		t.Fatalf("tick must merge into the existing anchor, got ts %d", anchor.Timestamp)
	}
	if st := seq.State(); st != StateLoaded {
		t.Fatalf("expected loaded state, got %v", st)
	}
	if _, ok := seq.Signal(); !ok {
		t.Fatalf("expected a derived signal after selection")
	}
}

func TestSelectFallsBackToSynthesis(t *testing.T) {
	feed := newFakeFeed()
	feed.candlesErr = errFeedDown
	feed.quoteErr = errFeedDown

	seq, store, _ := newTestSequencer(feed, WithBarLimit(40))
	defer seq.Close()

	<-seq.Select(instBTC, domrepo.TF1m)

	key := domrepo.SeriesKey{InstrumentID: 2, TF: domrepo.TF1m}
	series := store.Series(key)
	if len(series) != 40 {
		t.Fatalf("expected 40 synthesized bars, got %d", len(series))
	}
	if series[0].Open != 90000 {
		t.Fatalf("synthesized series must start at the reference price, got %v", series[0].Open)
	}
}

func TestSelectSupersedesInFlightLoad(t *testing.T) {
	feed := newFakeFeed()
	gate := make(chan struct{})
	feed.candlesGate = gate
	feed.candles[1] = []models.Candle{{Timestamp: 60, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}}
	feed.candles[2] = []models.Candle{{Timestamp: 60, Open: 90000, High: 90000, Low: 90000, Close: 90000, Volume: 1}}
	feed.quotes[2] = models.Tick{Last: 90100}

	seq, store, _ := newTestSequencer(feed)
	defer seq.Close()

	// first selection blocks inside the bar load
	firstDone := seq.Select(instEUR, domrepo.TF1m)

	// second selection supersedes it; release the gate so both loads return
	feed.mu.Lock()
	feed.candlesGate = nil
	feed.mu.Unlock()
	secondDone := seq.Select(instBTC, domrepo.TF1m)
	close(gate)

	<-firstDone
	<-secondDone

	// the superseded flow must not have touched any series
	eurKey := domrepo.SeriesKey{InstrumentID: 1, TF: domrepo.TF1m}
	if got := store.Series(eurKey); got != nil {
		t.Fatalf("superseded selection must not publish bars, got %d", len(got))
	}
	btcKey := domrepo.SeriesKey{InstrumentID: 2, TF: domrepo.TF1m}
	anchor, ok := store.Last(btcKey)
	if !ok || anchor.Close != 90100 {
		t.Fatalf("active selection must complete normally, got %+v ok=%v", anchor, ok)
	}
	if inst, _, ok := seq.Selection(); !ok || inst.ID != 2 {
		t.Fatalf("expected active selection to be instrument 2, got %+v", inst)
	}
}

func TestPollSkippedWhileLoading(t *testing.T) {
	feed := newFakeFeed()
	gate := make(chan struct{})
	feed.candlesGate = gate
	feed.candles[1] = []models.Candle{{Timestamp: 60, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}}
	feed.quotes[1] = models.Tick{Last: 1.05}

	seq, _, m := newTestSequencer(feed)
	defer seq.Close()
	seq.SetWatchlist([]models.Instrument{instEUR})

	done := seq.Select(instEUR, domrepo.TF1m)

	// bars still loading: poll cycles must be skipped, not queued
	seq.pollOnce(context.Background())
	seq.pollOnce(context.Background())
	if got := m.pollCount("skipped"); got != 2 {
		t.Fatalf("expected 2 skipped cycles, got %d", got)
	}
	if got := feed.quotesCalls; got != 0 {
		t.Fatalf("no batch fetch may run before bars load, got %d", got)
	}

	close(gate)
	<-done

	seq.pollOnce(context.Background())
	if got := m.pollCount("ok"); got != 1 {
		t.Fatalf("expected 1 ok cycle after load, got %d", got)
	}
}

func TestPollNoOverlap(t *testing.T) {
	feed := newFakeFeed()
	feed.candles[1] = []models.Candle{{Timestamp: 60, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}}
	feed.quotes[1] = models.Tick{Last: 1.05}

	seq, _, m := newTestSequencer(feed)
	defer seq.Close()
	seq.SetWatchlist([]models.Instrument{instEUR})
	<-seq.Select(instEUR, domrepo.TF1m)

	// simulate an in-flight cycle holding the gate
	seq.polling.Store(true)
	seq.pollOnce(context.Background())
	if got := m.pollCount("skipped"); got != 1 {
		t.Fatalf("overlapping cycle must be dropped, got %d skips", got)
	}
	seq.polling.Store(false)

	seq.pollOnce(context.Background())
	if got := m.pollCount("ok"); got != 1 {
		t.Fatalf("expected cycle to run once the gate clears, got %d", got)
	}
}

func TestPollIncludesSelectionOffWatchlist(t *testing.T) {
	feed := newFakeFeed()
	feed.candles[2] = []models.Candle{{Timestamp: 60, Open: 90000, High: 90000, Low: 90000, Close: 90000, Volume: 1}}
	feed.quotes[1] = models.Tick{Last: 1.05}
	feed.quotes[2] = models.Tick{Last: 90200}

	seq, store, _ := newTestSequencer(feed)
	defer seq.Close()
	seq.SetWatchlist([]models.Instrument{instEUR})
	<-seq.Select(instBTC, domrepo.TF1m)

	seq.pollOnce(context.Background())

	key := domrepo.SeriesKey{InstrumentID: 2, TF: domrepo.TF1m}
	anchor, ok := store.Last(key)
	if !ok || anchor.Close != 90200 {
		t.Fatalf("selected instrument must be polled even off the watchlist, got %+v", anchor)
	}
}

func TestNotifierReceivesMergedCandles(t *testing.T) {
	feed := newFakeFeed()
	feed.candles[1] = []models.Candle{{Timestamp: 60, Open: 1, High: 1.1, Low: 0.9, Close: 1, Volume: 1}}
	feed.quotes[1] = models.Tick{Last: 1.05}
	n := &recordingNotifier{}

	seq, _, _ := newTestSequencer(feed, WithNotifier(n))
	defer seq.Close()
	seq.SetWatchlist([]models.Instrument{instEUR})
	<-seq.Select(instEUR, domrepo.TF1m)

	if got := n.count(); got != 1 {
		t.Fatalf("expected 1 update from the selection flow, got %d", got)
	}
	seq.pollOnce(context.Background())
	if got := n.count(); got != 2 {
		t.Fatalf("expected a second update from the poll cycle, got %d", got)
	}
}

func TestCloseInvalidatesFlows(t *testing.T) {
	feed := newFakeFeed()
	gate := make(chan struct{})
	feed.candlesGate = gate
	feed.candles[1] = []models.Candle{{Timestamp: 60, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}}

	seq, store, _ := newTestSequencer(feed)
	done := seq.Select(instEUR, domrepo.TF1m)
	seq.Close()
	close(gate)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("selection flow must terminate after close")
	}
	key := domrepo.SeriesKey{InstrumentID: 1, TF: domrepo.TF1m}
	if got := store.Series(key); got != nil {
		t.Fatalf("closed sequencer must not publish bars, got %d", len(got))
	}
}
