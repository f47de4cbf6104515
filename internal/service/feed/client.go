package feed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"TradeSense/internal/domain/models"
	drepo "TradeSense/internal/domain/repository"
	icache "TradeSense/internal/service/cache"
	"TradeSense/internal/service/ratelimit"
	xhttp "TradeSense/pkg/http"
)

const (
	catalogCacheKey = "instruments"
	catalogTTL      = 5 * time.Minute

	// Upstream allows bursts but sustained request rates are capped per endpoint.
	limitBurst   = 10
	limitPerSec  = 5
	quotesPerSec = 2
)

// Client is the upstream market-data REST API, implementing MarketFeed.
// Failures are returned as-is; falling back is the caller's job.
type Client struct {
	baseURL string
	apiKey  string
	http    *xhttp.Client
	limiter *ratelimit.Limiter
	catalog *icache.TTLCache
}

// New creates a feed client for the given API base URL.
func New(baseURL, apiKey string, timeout time.Duration) drepo.MarketFeed {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
		limiter: ratelimit.New(),
		catalog: icache.NewTTLCache(),
	}
}

// Instruments returns the catalog, cached briefly since it is immutable per session.
func (c *Client) Instruments(ctx context.Context) ([]models.Instrument, error) {
	if v, ok := c.catalog.Get(catalogCacheKey); ok {
		if insts, ok := v.([]models.Instrument); ok {
			return insts, nil
		}
	}

	var insts []models.Instrument
	if err := c.get(ctx, "/instruments", nil, &insts); err != nil {
		return nil, fmt.Errorf("instruments: %w", err)
	}
	c.catalog.Set(catalogCacheKey, insts, catalogTTL)
	return insts, nil
}

func (c *Client) Candles(ctx context.Context, instrumentID int64, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	var candles []models.Candle
	err := c.get(ctx, "/ohlcv", map[string][]string{
		"instrument_id": {strconv.FormatInt(instrumentID, 10)},
		"timeframe":     {string(tf)},
		"limit":         {strconv.Itoa(limit)},
	}, &candles)
	if err != nil {
		return nil, fmt.Errorf("ohlcv %d/%s: %w", instrumentID, tf, err)
	}
	return candles, nil
}

func (c *Client) Quote(ctx context.Context, instrumentID int64) (models.Tick, error) {
	var tick models.Tick
	err := c.get(ctx, "/quote", map[string][]string{
		"instrument_id": {strconv.FormatInt(instrumentID, 10)},
	}, &tick)
	if err != nil {
		return models.Tick{}, fmt.Errorf("quote %d: %w", instrumentID, err)
	}
	return tick, nil
}

func (c *Client) Quotes(ctx context.Context, instrumentIDs []int64) (map[int64]models.Tick, error) {
	if !c.limiter.Allow("quotes", limitBurst, quotesPerSec) {
		return nil, fmt.Errorf("quotes: rate limited")
	}

	// JSON object keys arrive as strings
	var raw map[string]models.Tick
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.baseURL + "/quotes",
		Headers: c.headers(),
		Body:    map[string][]int64{"instrument_ids": instrumentIDs},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("quotes: %w", err)
	}

	out := make(map[int64]models.Tick, len(raw))
	for k, t := range raw {
		id, perr := strconv.ParseInt(k, 10, 64)
		if perr != nil {
			continue
		}
		out[id] = t
	}
	return out, nil
}

func (c *Client) Trades(ctx context.Context, sessionID string) ([]models.Trade, error) {
	var trades []models.Trade
	err := c.get(ctx, "/trades", map[string][]string{"session_id": {sessionID}}, &trades)
	if err != nil {
		return nil, fmt.Errorf("trades %s: %w", sessionID, err)
	}
	return trades, nil
}

func (c *Client) get(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	if !c.limiter.Allow(path, limitBurst, limitPerSec) {
		return fmt.Errorf("rate limited")
	}
	return c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + path,
		Headers:     c.headers(),
		QueryParams: query,
	}, dest)
}

func (c *Client) headers() map[string]string {
	h := map[string]string{}
	if c.apiKey != "" {
		h["Authorization"] = "Bearer " + c.apiKey
	}
	return h
}
