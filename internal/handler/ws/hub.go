package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"TradeSense/internal/domain/models"
	domrepo "TradeSense/internal/domain/repository"
	streammetrics "TradeSense/internal/service/metrics"
	applogger "TradeSense/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait      = 5 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 64
)

// CandleUpdate is the push frame sent to chart clients on every anchor merge.
type CandleUpdate struct {
	InstrumentID int64         `json:"instrument_id"`
	TF           string        `json:"tf"`
	Candle       models.Candle `json:"candle"`
}

// Hub fans merged anchor candles out to connected chart clients. Slow clients
// get dropped frames, never a blocked engine.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *applogger.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(logger *applogger.Logger) *Hub {
	streammetrics.Register()
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the engine serves a browser front-end on another origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// Handle upgrades the request and pumps candle updates until the peer goes away.
func (h *Hub) Handle(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	streammetrics.StreamClients.Inc()

	go h.writePump(cl)
	h.readPump(cl)
	return nil
}

// NotifyCandle implements usecase.CandleNotifier.
func (h *Hub) NotifyCandle(key domrepo.SeriesKey, candle models.Candle) {
	frame, err := json.Marshal(CandleUpdate{
		InstrumentID: key.InstrumentID,
		TF:           string(key.TF),
		Candle:       candle,
	})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- frame:
		default:
			// client is not keeping up; skip this frame
			streammetrics.StreamDroppedFrames.Inc()
		}
	}
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for cl := range h.clients {
		close(cl.send)
		delete(h.clients, cl)
		streammetrics.StreamClients.Dec()
	}
	h.mu.Unlock()
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(cl *client) {
	defer h.drop(cl)
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(cl *client) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		close(cl.send)
		delete(h.clients, cl)
		streammetrics.StreamClients.Dec()
	}
	h.mu.Unlock()
	_ = cl.conn.Close()
}
