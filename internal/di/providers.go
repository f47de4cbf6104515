package di

import (
	"fmt"

	domrepo "TradeSense/internal/domain/repository"
	domsvc "TradeSense/internal/domain/service"
	"TradeSense/internal/handler/api"
	"TradeSense/internal/handler/ws"
	"TradeSense/internal/service/feed"
	"TradeSense/internal/service/refprice"
	sigsvc "TradeSense/internal/service/signal"
	"TradeSense/internal/usecase"
	"TradeSense/pkg/cache"
	"TradeSense/pkg/config"
	xhttp "TradeSense/pkg/http"
	applogger "TradeSense/pkg/logger"
	"TradeSense/pkg/metrics"
	"TradeSense/pkg/server"
)

// ProvideLogger creates the structured logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideCache creates the cache backend. Redis when configured, otherwise an
// in-process cache so single-node deployments need no extra infrastructure.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if cfg.Redis.Enabled {
		c, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Addr),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, nil
	}
	return cache.NewMemoryCache(), nil
}

// ProvideReferencePrices creates the reference price table used by fallbacks.
func ProvideReferencePrices(cfg *config.Config, store cache.Service) domrepo.ReferencePrices {
	opts := []refprice.Option{
		refprice.WithExactPrices(cfg.Fallback.Prices),
	}
	if cfg.Fallback.FixedDefault > 0 {
		opts = append(opts, refprice.WithFixedDefault(cfg.Fallback.FixedDefault))
	}
	return refprice.New(store, opts...)
}

// ProvideMarketFeed creates the upstream market data client.
func ProvideMarketFeed(cfg *config.Config) domrepo.MarketFeed {
	return feed.New(cfg.MarketData.BaseURL, cfg.MarketData.APIKey, cfg.MarketData.Timeout)
}

// ProvideCandleStore creates the in-memory candle series store.
func ProvideCandleStore() *usecase.CandleStore {
	return usecase.NewCandleStore()
}

// ProvideSynthesizer creates the fallback series/tick synthesizer.
func ProvideSynthesizer(refs domrepo.ReferencePrices) *usecase.FallbackSynthesizer {
	return usecase.NewFallbackSynthesizer(refs)
}

// ProvideQuoteFetcher creates the batch quote fetcher.
func ProvideQuoteFetcher(
	f domrepo.MarketFeed,
	refs domrepo.ReferencePrices,
	synth *usecase.FallbackSynthesizer,
	m domrepo.Metrics,
	logger *applogger.Logger,
) *usecase.BatchQuoteFetcher {
	return usecase.NewBatchQuoteFetcher(f, refs, synth, m, logger)
}

// ProvideSignalDeriver creates the momentum-based signal deriver.
func ProvideSignalDeriver() domsvc.SignalDeriver {
	return sigsvc.NewMomentumDeriver()
}

// ProvideHub creates the WebSocket broadcast hub.
func ProvideHub(logger *applogger.Logger) *ws.Hub {
	return ws.NewHub(logger)
}

// ProvideProjector creates the trade marker projector.
func ProvideProjector() *usecase.TradeMarkerProjector {
	return usecase.NewTradeMarkerProjector()
}

// ProvideSequencer creates the fetch sequencer that owns the active session.
func ProvideSequencer(
	f domrepo.MarketFeed,
	store *usecase.CandleStore,
	fetcher *usecase.BatchQuoteFetcher,
	synth *usecase.FallbackSynthesizer,
	deriver domsvc.SignalDeriver,
	m domrepo.Metrics,
	logger *applogger.Logger,
	hub *ws.Hub,
	cfg *config.Config,
) *usecase.Sequencer {
	return usecase.NewSequencer(
		f, store, fetcher, synth, deriver, m, logger,
		usecase.WithPollInterval(cfg.MarketData.PollInterval),
		usecase.WithBarLimit(cfg.MarketData.BarLimit),
		usecase.WithNotifier(hub),
	)
}

// ProvideHandler creates the HTTP handler surface.
func ProvideHandler(
	logger *applogger.Logger,
	f domrepo.MarketFeed,
	seq *usecase.Sequencer,
	store *usecase.CandleStore,
	fetcher *usecase.BatchQuoteFetcher,
	projector *usecase.TradeMarkerProjector,
	hub *ws.Hub,
) xhttp.Handler {
	return api.NewMarketEchoHandler(logger, f, seq, store, fetcher, projector, hub)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	f domrepo.MarketFeed,
	seq *usecase.Sequencer,
	hub *ws.Hub,
	store cache.Service,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, logger, f, seq, hub, store, handler)
}
