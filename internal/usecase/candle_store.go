package usecase

import (
	"sort"
	"sync"

	"TradeSense/internal/domain/models"
	domrepo "TradeSense/internal/domain/repository"
)

// CandleStore holds, per (instrument, timeframe), the ordered candle series the chart
// renders, plus its overlay markers. A series is populated wholesale by a bar-load and
// mutated in place only through ApplyTick on its last element (the anchor candle).
// State is process-local and rebuilt from upstream on each session.
type CandleStore struct {
	mu     sync.RWMutex
	series map[domrepo.SeriesKey]*candleSeries
}

type candleSeries struct {
	candles []models.Candle
	markers []models.Marker
}

func NewCandleStore() *CandleStore {
	return &CandleStore{series: make(map[domrepo.SeriesKey]*candleSeries)}
}

// Load replaces any existing series for key with candles sorted ascending by timestamp.
// Duplicate timestamps collapse to the last occurrence. An empty input yields an empty
// series, not an error; callers treat empty as a "no data" state.
func (s *CandleStore) Load(key domrepo.SeriesKey, candles []models.Candle) int {
	sorted := make([]models.Candle, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	deduped := sorted[:0]
	for _, c := range sorted {
		if n := len(deduped); n > 0 && deduped[n-1].Timestamp == c.Timestamp {
			deduped[n-1] = c
			continue
		}
		deduped = append(deduped, c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[key] = &candleSeries{candles: deduped}
	return len(deduped)
}

// Series returns a copy of the candle series for key, oldest first.
func (s *CandleStore) Series(key domrepo.SeriesKey) []models.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sr, ok := s.series[key]
	if !ok {
		return nil
	}
	out := make([]models.Candle, len(sr.candles))
	copy(out, sr.candles)
	return out
}

// Last returns the anchor candle for key, if the series is non-empty.
func (s *CandleStore) Last(key domrepo.SeriesKey) (models.Candle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sr, ok := s.series[key]
	if !ok || len(sr.candles) == 0 {
		return models.Candle{}, false
	}
	return sr.candles[len(sr.candles)-1], true
}

// ApplyTick folds tick into the anchor candle and returns the updated anchor.
// The anchor is replaced, never aliased. With no anchor (missing or empty series)
// the tick is discarded; a tick alone never creates a bar.
func (s *CandleStore) ApplyTick(key domrepo.SeriesKey, tick models.Tick) (models.Candle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sr, ok := s.series[key]
	if !ok || len(sr.candles) == 0 {
		return models.Candle{}, false
	}
	updated := MergeTick(sr.candles[len(sr.candles)-1], tick)
	sr.candles[len(sr.candles)-1] = updated
	return updated, true
}

// Closes returns up to n most recent closes for key, oldest first.
func (s *CandleStore) Closes(key domrepo.SeriesKey, n int) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sr, ok := s.series[key]
	if !ok || n <= 0 {
		return nil
	}
	start := len(sr.candles) - n
	if start < 0 {
		start = 0
	}
	out := make([]float64, 0, len(sr.candles)-start)
	for _, c := range sr.candles[start:] {
		out = append(out, c.Close)
	}
	return out
}

// SetMarkers attaches overlay annotations to key. Pure replacement, no merge.
func (s *CandleStore) SetMarkers(key domrepo.SeriesKey, markers []models.Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sr, ok := s.series[key]
	if !ok {
		sr = &candleSeries{}
		s.series[key] = sr
	}
	sr.markers = append([]models.Marker(nil), markers...)
}

// Markers returns a copy of the overlay annotations for key.
func (s *CandleStore) Markers(key domrepo.SeriesKey) []models.Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sr, ok := s.series[key]
	if !ok {
		return nil
	}
	return append([]models.Marker(nil), sr.markers...)
}

// Drop discards the series for key. Called on instrument/timeframe switches.
func (s *CandleStore) Drop(key domrepo.SeriesKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.series, key)
}
