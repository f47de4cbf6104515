package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	domrepo "TradeSense/internal/domain/repository"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestInstrumentsCached(t *testing.T) {
	var calls int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/instruments" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 1, "symbol": "EUR/USD", "asset_class": "FX"},
		})
	})

	c := New(srv.URL, "", 2*time.Second)
	for i := 0; i < 3; i++ {
		insts, err := c.Instruments(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(insts) != 1 || insts[0].Symbol != "EUR/USD" {
			t.Fatalf("unexpected catalog %+v", insts)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("catalog must be served from cache, got %d upstream calls", got)
	}
}

func TestCandlesQuery(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("instrument_id") != "42" || q.Get("timeframe") != "5m" || q.Get("limit") != "100" {
			t.Errorf("unexpected query %v", q)
		}
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"timestamp": 60, "open": 1, "high": 2, "low": 0.5, "close": 1.5, "volume": 10},
		})
	})

	c := New(srv.URL, "secret", 2*time.Second)
	candles, err := c.Candles(context.Background(), 42, domrepo.TF5m, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 1 || candles[0].Close != 1.5 {
		t.Fatalf("unexpected candles %+v", candles)
	}
}

func TestQuotesDecodesStringKeys(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/quotes" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body struct {
			InstrumentIDs []int64 `json:"instrument_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad body: %v", err)
		}
		if len(body.InstrumentIDs) != 2 {
			t.Errorf("unexpected ids %v", body.InstrumentIDs)
		}
		_, _ = w.Write([]byte(`{"1":{"bid":1.05,"ask":1.06},"2":{"last":90000}}`))
	})

	c := New(srv.URL, "secret", 2*time.Second)
	quotes, err := c.Quotes(context.Background(), []int64{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(quotes))
	}
	if quotes[1].Bid != 1.05 || quotes[2].Last != 90000 {
		t.Fatalf("unexpected quotes %+v", quotes)
	}
}

func TestQuoteUpstreamError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	c := New(srv.URL, "", 2*time.Second)
	if _, err := c.Quote(context.Background(), 1); err == nil {
		t.Fatalf("expected error from upstream 500")
	}
}

func TestTradesQuery(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("session_id"); got != "sess-9" {
			t.Errorf("unexpected session id %q", got)
		}
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"instrument_id": 1, "side": "BUY", "qty": 2, "price": 1.05, "executed_at": 1735714000},
		})
	})
	c := New(srv.URL, "", 2*time.Second)
	trades, err := c.Trades(context.Background(), "sess-9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 1 || trades[0].Side != "BUY" {
		t.Fatalf("unexpected trades %+v", trades)
	}
}
