package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"TradeSense/internal/domain/models"
	domrepo "TradeSense/internal/domain/repository"
	domsvc "TradeSense/internal/domain/service"
	applogger "TradeSense/pkg/logger"
)

// SessionState tracks one (instrument, timeframe) viewing session.
// Ticks are merged only in StateLoaded; in any other state they are discarded.
type SessionState int32

const (
	StateIdle SessionState = iota
	StateLoadingBars
	StateLoaded
)

func (s SessionState) String() string {
	switch s {
	case StateLoadingBars:
		return "loading_bars"
	case StateLoaded:
		return "loaded"
	default:
		return "idle"
	}
}

// CandleNotifier receives the updated anchor candle after every merge, so the
// chart surface can repaint without re-pulling the whole series.
type CandleNotifier interface {
	NotifyCandle(key domrepo.SeriesKey, c models.Candle)
}

// Sequencer orchestrates the two control flows behind the chart and watchlist:
// the strictly ordered "load bars, load tick, derive signal" flow on every
// selection change, and the repeating watchlist poll. Every stage has a local
// fallback; nothing unwinds past the sequencer.
//
// A generation counter is the liveness flag: each selection bumps it, and every
// flow re-checks its captured generation after each await point. A stale flow
// stops mutating shared state the moment the selection moves on.
type Sequencer struct {
	feed    domrepo.MarketFeed
	store   *CandleStore
	fetcher *BatchQuoteFetcher
	synth   *FallbackSynthesizer
	deriver domsvc.SignalDeriver
	metrics domrepo.Metrics
	logger  *applogger.Logger

	pollInterval time.Duration
	barLimit     int
	signalDepth  int
	notifier     CandleNotifier

	rootCtx    context.Context
	rootCancel context.CancelFunc

	mu       sync.Mutex
	gen      uint64
	cur      *session
	cancel   context.CancelFunc
	state    SessionState
	watch    []models.Instrument
	signal   models.Signal
	signalOK bool

	polling atomic.Bool
	started atomic.Bool
}

type session struct {
	inst models.Instrument
	key  domrepo.SeriesKey
}

type SequencerOption func(*Sequencer)

// WithPollInterval overrides the watchlist polling cadence.
func WithPollInterval(d time.Duration) SequencerOption {
	return func(s *Sequencer) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithBarLimit overrides the number of bars requested per load.
func WithBarLimit(n int) SequencerOption {
	return func(s *Sequencer) {
		if n > 0 {
			s.barLimit = n
		}
	}
}

// WithNotifier attaches a live-update sink for merged anchor candles.
func WithNotifier(n CandleNotifier) SequencerOption {
	return func(s *Sequencer) { s.notifier = n }
}

func NewSequencer(
	feed domrepo.MarketFeed,
	store *CandleStore,
	fetcher *BatchQuoteFetcher,
	synth *FallbackSynthesizer,
	deriver domsvc.SignalDeriver,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
	opts ...SequencerOption,
) *Sequencer {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Sequencer{
		feed:         feed,
		store:        store,
		fetcher:      fetcher,
		synth:        synth,
		deriver:      deriver,
		metrics:      metrics,
		logger:       logger,
		pollInterval: 2 * time.Second,
		barLimit:     1000,
		signalDepth:  120,
		rootCtx:      ctx,
		rootCancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetWatchlist replaces the set of instruments polled each cycle.
func (s *Sequencer) SetWatchlist(insts []models.Instrument) {
	s.mu.Lock()
	s.watch = append([]models.Instrument(nil), insts...)
	s.mu.Unlock()
}

// Select switches the active (instrument, timeframe) session. The in-flight flow
// for the previous selection is invalidated and its remaining stages abandoned;
// the prior series is discarded. The returned channel closes when the new flow
// finishes (or is itself superseded).
func (s *Sequencer) Select(inst models.Instrument, tf domrepo.Timeframe) <-chan struct{} {
	key := domrepo.SeriesKey{InstrumentID: inst.ID, TF: tf}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	if s.cur != nil {
		s.store.Drop(s.cur.key)
	}
	ctx, cancel := context.WithCancel(s.rootCtx)
	s.cancel = cancel
	s.gen++
	gen := s.gen
	s.cur = &session{inst: inst, key: key}
	s.state = StateLoadingBars
	s.signalOK = false
	s.mu.Unlock()

	done := make(chan struct{})
	go s.runSelection(ctx, gen, inst, key, done)
	return done
}

// Selection returns the active session, if any.
func (s *Sequencer) Selection() (models.Instrument, domrepo.Timeframe, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return models.Instrument{}, "", false
	}
	return s.cur.inst, s.cur.key.TF, true
}

// State reports the session state machine position.
func (s *Sequencer) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Signal returns the most recently derived trading signal.
func (s *Sequencer) Signal() (models.Signal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signal, s.signalOK
}

// Start launches the watchlist polling loop. Safe to call once.
func (s *Sequencer) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.run()
}

// Close invalidates all in-flight flows and stops the polling loop.
func (s *Sequencer) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cur = nil
	s.state = StateIdle
	s.mu.Unlock()
	s.rootCancel()
}

func (s *Sequencer) run() {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.rootCtx.Done():
			return
		case <-ticker.C:
			go s.pollOnce(s.rootCtx)
		}
	}
}

// runSelection executes the strictly sequential selection-change flow:
// (a) load bars, (b) load tick, (c) derive signal. Liveness is re-checked after
// every stage; a superseded flow exits without touching shared state.
func (s *Sequencer) runSelection(ctx context.Context, gen uint64, inst models.Instrument, key domrepo.SeriesKey, done chan struct{}) {
	defer close(done)

	bars := s.loadBars(ctx, inst, key.TF)
	if !s.live(gen) {
		return
	}
	n := s.store.Load(key, bars.Candles)
	s.setState(gen, StateLoaded)
	if n == 0 {
		// exhausted fallback: empty-state render, nothing else to do
		s.logger.Warn("no bars available", applogger.String("symbol", inst.Symbol))
		return
	}

	res := s.fetcher.FetchSingle(ctx, inst)
	if !s.live(gen) {
		return
	}
	if res.Degraded && res.Reason == models.DegradeNoRef {
		return
	}
	// At session start the quote feed wins over the last bar close: the tick is
	// merged into the freshly loaded anchor so both surfaces agree on the price.
	if anchor, ok := s.store.ApplyTick(key, res.Tick); ok && s.notifier != nil {
		s.notifier.NotifyCandle(key, anchor)
	}

	s.deriveSignal(ctx, gen, inst, key, res.Tick)
}

// pollOnce runs one watchlist polling cycle. At most one cycle is in flight: if
// the previous batch fetch has not returned, or the bar-load for the current
// selection is still running, this cycle is skipped entirely.
func (s *Sequencer) pollOnce(ctx context.Context) {
	s.mu.Lock()
	cur := s.cur
	gen := s.gen
	state := s.state
	watch := append([]models.Instrument(nil), s.watch...)
	s.mu.Unlock()

	if cur == nil {
		return
	}
	if state != StateLoaded {
		s.metrics.RecordPoll("skipped")
		return
	}
	if !s.polling.CompareAndSwap(false, true) {
		s.metrics.RecordPoll("skipped")
		return
	}
	defer s.polling.Store(false)

	if !containsInstrument(watch, cur.inst.ID) {
		watch = append(watch, cur.inst)
	}

	batch := s.fetcher.FetchBatch(ctx, watch)
	if !s.live(gen) {
		return
	}
	res, ok := batch[cur.inst.ID]
	if !ok || (res.Degraded && res.Reason == models.DegradeNoRef) {
		s.metrics.RecordPoll("error")
		return
	}
	if anchor, applied := s.store.ApplyTick(cur.key, res.Tick); applied && s.notifier != nil {
		s.notifier.NotifyCandle(cur.key, anchor)
	}
	s.deriveSignal(ctx, gen, cur.inst, cur.key, res.Tick)
	s.metrics.RecordPoll("ok")
}

// loadBars fetches the authoritative series, falling back to synthesis on
// transport failure or an empty result. The fallback path is recorded so
// operators can detect live-feed degradation.
func (s *Sequencer) loadBars(ctx context.Context, inst models.Instrument, tf domrepo.Timeframe) models.BarsResult {
	start := time.Now()
	candles, err := s.feed.Candles(ctx, inst.ID, tf, s.barLimit)
	s.metrics.RecordLatency("load_bars", time.Since(start).Seconds())

	reason := models.DegradedReason("")
	switch {
	case err != nil:
		reason = models.DegradeTransport
		s.logger.Warn("bar load failed, synthesizing",
			applogger.String("symbol", inst.Symbol), applogger.Error(err))
	case len(candles) == 0:
		reason = models.DegradeEmpty
		s.logger.Warn("bar load empty, synthesizing", applogger.String("symbol", inst.Symbol))
	default:
		return models.BarsResult{Candles: candles}
	}

	s.metrics.RecordFallback("bars", inst.Symbol)
	synth := s.synth.SynthesizeSeries(ctx, inst, tf, s.barLimit)
	return models.BarsResult{Candles: synth, Degraded: true, Reason: reason}
}

func (s *Sequencer) deriveSignal(ctx context.Context, gen uint64, inst models.Instrument, key domrepo.SeriesKey, tick models.Tick) {
	if s.deriver == nil {
		return
	}
	closes := s.store.Closes(key, s.signalDepth)
	sig, err := s.deriver.Derive(ctx, inst, tick, closes)
	if err != nil {
		s.metrics.RecordError("signal")
		s.logger.Warn("signal derivation failed",
			applogger.String("symbol", inst.Symbol), applogger.Error(err))
		return
	}
	if !s.live(gen) {
		return
	}
	s.mu.Lock()
	s.signal = sig
	s.signalOK = true
	s.mu.Unlock()
}

func (s *Sequencer) live(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen && s.rootCtx.Err() == nil
}

func (s *Sequencer) setState(gen uint64, st SessionState) {
	s.mu.Lock()
	if s.gen == gen {
		s.state = st
	}
	s.mu.Unlock()
}

func containsInstrument(insts []models.Instrument, id int64) bool {
	for _, inst := range insts {
		if inst.ID == id {
			return true
		}
	}
	return false
}
