package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"TradeSense/internal/domain/models"
	domrepo "TradeSense/internal/domain/repository"
	"TradeSense/internal/handler/ws"
	"TradeSense/internal/usecase"
	"TradeSense/pkg/cache"
	"TradeSense/pkg/config"
	xhttp "TradeSense/pkg/http"
	applogger "TradeSense/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	feed       domrepo.MarketFeed
	seq        *usecase.Sequencer
	hub        *ws.Hub
	store      cache.Service
	handler    xhttp.Handler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	feed domrepo.MarketFeed,
	seq *usecase.Sequencer,
	hub *ws.Hub,
	store cache.Service,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:     cfg,
		logger:  logger,
		feed:    feed,
		seq:     seq,
		hub:     hub,
		store:   store,
		handler: handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(a.cfg.Metrics.Path),
		xhttp.WithLogger(a.logger),
	)

	watch := a.loadWatchlist(ctx)
	a.seq.SetWatchlist(watch)
	if len(watch) > 0 {
		// default session: first watchlist instrument at the base timeframe
		a.seq.Select(watch[0], domrepo.DefaultTimeframe())
	}
	a.seq.Start()
	a.logger.Info("sequencer started",
		applogger.Int("watchlist", len(watch)),
		applogger.Duration("poll_interval", a.cfg.MarketData.PollInterval),
	)

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// loadWatchlist resolves the configured watchlist against the catalog. When the
// catalog is unreachable the watchlist starts empty; polling picks it up once a
// selection happens, so startup never blocks on upstream.
func (a *App) loadWatchlist(ctx context.Context) []models.Instrument {
	insts, err := a.feed.Instruments(ctx)
	if err != nil {
		a.logger.Warn("catalog unavailable at startup", applogger.Error(err))
		return nil
	}
	if len(a.cfg.Watchlist.Symbols) == 0 {
		return insts
	}

	wanted := make(map[string]struct{}, len(a.cfg.Watchlist.Symbols))
	for _, s := range a.cfg.Watchlist.Symbols {
		wanted[s] = struct{}{}
	}
	out := make([]models.Instrument, 0, len(wanted))
	for _, inst := range insts {
		if _, ok := wanted[inst.Symbol]; ok {
			out = append(out, inst)
		}
	}
	return out
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	a.seq.Close()
	a.hub.Close()

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("cache close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
