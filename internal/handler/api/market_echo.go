package api

import (
	"time"

	"TradeSense/internal/domain/models"
	domrepo "TradeSense/internal/domain/repository"
	"TradeSense/internal/handler/ws"
	"TradeSense/internal/usecase"
	xhttp "TradeSense/pkg/http"
	xlogger "TradeSense/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketEchoHandler exposes the view-model the chart and watchlist render:
// the active candle series, the polled tick snapshot, the derived signal and
// the trade markers. All engine state it serves is read-through; writes go
// through the sequencer.
type MarketEchoHandler struct {
	logger    *xlogger.Logger
	feed      domrepo.MarketFeed
	seq       *usecase.Sequencer
	store     *usecase.CandleStore
	fetcher   *usecase.BatchQuoteFetcher
	projector *usecase.TradeMarkerProjector
	hub       *ws.Hub
}

func NewMarketEchoHandler(
	logger *xlogger.Logger,
	feed domrepo.MarketFeed,
	seq *usecase.Sequencer,
	store *usecase.CandleStore,
	fetcher *usecase.BatchQuoteFetcher,
	projector *usecase.TradeMarkerProjector,
	hub *ws.Hub,
) *MarketEchoHandler {
	return &MarketEchoHandler{
		logger:    logger,
		feed:      feed,
		seq:       seq,
		store:     store,
		fetcher:   fetcher,
		projector: projector,
		hub:       hub,
	}
}

func (h *MarketEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/instruments", h.Instruments)
	g.POST("/select", h.Select)
	g.GET("/candles", h.Candles)
	g.GET("/watchlist", h.Watchlist)
	g.GET("/signal", h.Signal)
	g.GET("/markers", h.Markers)
	e.GET("/ws/candles", h.hub.Handle)
}

func (h *MarketEchoHandler) Instruments(c echo.Context) error {
	insts, err := h.feed.Instruments(c.Request().Context())
	if err != nil {
		h.logger.Error("instrument catalog error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("catalog unavailable").WithError(err))
	}
	return xhttp.ListResponse(c, insts, int64(len(insts)))
}

// Select switches the active instrument/timeframe session. Returns immediately;
// the bar-load runs behind the returned state.
func (h *MarketEchoHandler) Select(c echo.Context) error {
	req := &models.SelectRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	inst, ok := h.findInstrument(c, req.InstrumentID)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("instrument %d not found", req.InstrumentID))
	}

	tf := domrepo.NormalizeTimeframe(req.TF)
	h.seq.Select(inst, tf)

	return xhttp.SuccessResponse(c, map[string]interface{}{
		"instrument": inst,
		"tf":         string(tf),
		"state":      h.seq.State().String(),
	})
}

type candlesPayload struct {
	InstrumentID int64           `json:"instrument_id"`
	TF           string          `json:"tf"`
	State        string          `json:"state"`
	Candles      []models.Candle `json:"candles"`
	Markers      []models.Marker `json:"markers,omitempty"`
}

func (h *MarketEchoHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	tf := domrepo.NormalizeTimeframe(req.TF)
	key := domrepo.SeriesKey{InstrumentID: req.InstrumentID, TF: tf}
	candles := h.store.Series(key)
	if req.Limit > 0 && len(candles) > req.Limit {
		candles = candles[len(candles)-req.Limit:]
	}

	return xhttp.SuccessResponse(c, candlesPayload{
		InstrumentID: req.InstrumentID,
		TF:           string(tf),
		State:        h.seq.State().String(),
		Candles:      candles,
		Markers:      h.store.Markers(key),
	})
}

type watchlistEntry struct {
	InstrumentID int64                 `json:"instrument_id"`
	Tick         models.Tick           `json:"tick"`
	Degraded     bool                  `json:"degraded"`
	Reason       models.DegradedReason `json:"reason,omitempty"`
}

type watchlistPayload struct {
	Entries     []watchlistEntry `json:"entries"`
	RefreshedAt time.Time        `json:"refreshed_at"`
	State       string           `json:"state"`
}

func (h *MarketEchoHandler) Watchlist(c echo.Context) error {
	snapshot, refreshedAt := h.fetcher.Snapshot()
	entries := make([]watchlistEntry, 0, len(snapshot))
	for id, res := range snapshot {
		entries = append(entries, watchlistEntry{
			InstrumentID: id,
			Tick:         res.Tick,
			Degraded:     res.Degraded,
			Reason:       res.Reason,
		})
	}
	return xhttp.SuccessResponse(c, watchlistPayload{
		Entries:     entries,
		RefreshedAt: refreshedAt,
		State:       h.seq.State().String(),
	})
}

func (h *MarketEchoHandler) Signal(c echo.Context) error {
	sig, ok := h.seq.Signal()
	if !ok {
		return xhttp.NotFoundResponse(c, "no signal derived yet")
	}
	return xhttp.SuccessResponse(c, sig)
}

// Markers projects the session's executed trades onto the requested series and
// attaches them as the chart overlay.
func (h *MarketEchoHandler) Markers(c echo.Context) error {
	req := &models.MarkersRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	trades, err := h.feed.Trades(c.Request().Context(), req.SessionID)
	if err != nil {
		h.logger.Warn("trade history unavailable",
			xlogger.String("session_id", req.SessionID), xlogger.Error(err))
		// no trades is a fine overlay: render nothing rather than fail the chart
		trades = nil
	}

	key := domrepo.SeriesKey{
		InstrumentID: req.InstrumentID,
		TF:           domrepo.NormalizeTimeframe(req.TF),
	}
	markers := h.projector.Project(key, trades)
	h.store.SetMarkers(key, markers)

	return xhttp.ListResponse(c, markers, int64(len(markers)))
}

func (h *MarketEchoHandler) findInstrument(c echo.Context, id int64) (models.Instrument, bool) {
	insts, err := h.feed.Instruments(c.Request().Context())
	if err != nil {
		h.logger.Error("instrument lookup error", xlogger.Int64("instrument_id", id), xlogger.Error(err))
		return models.Instrument{}, false
	}
	for _, inst := range insts {
		if inst.ID == id {
			return inst, true
		}
	}
	return models.Instrument{}, false
}
