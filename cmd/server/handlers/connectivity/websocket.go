package connectivity

import (
	"context"
	"sync"
	"time"

	"note-sync/cmd/server/handlers/httperr"
	"note-sync/internal/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
)

const (
	// WSClosePolicyViolation represents WebSocket close code for policy violation
	WSClosePolicyViolation = 1008

	wsWriteTimeout     = 10 * time.Second
	wsPingInterval     = 25 * time.Second
	wsPingWriteTimeout = 5 * time.Second

	parentCtxKey = "parentCtx"

	msgFailedToCloseWebSocketConnection = "failed to close WebSocket connection"
)

// Source is the connectivity signal streamed to clients.
type Source interface {
	Online() bool
	SubscribeConnectivity(cb func(online bool)) (unsubscribe func())
}

// Status is the payload of GET /connectivity and of every stream frame.
type Status struct {
	Online bool `json:"online" example:"true"`
}

// Handlers serves the connectivity status and its WebSocket stream.
type Handlers struct {
	source        Source
	maxSessionSec int
	outboxBuffer  int
}

// NewHandlers creates connectivity handlers
func NewHandlers(source Source, maxSessionSec, outboxBuffer int) *Handlers {
	if outboxBuffer <= 0 {
		outboxBuffer = 1
	}
	return &Handlers{
		source:        source,
		maxSessionSec: maxSessionSec,
		outboxBuffer:  outboxBuffer,
	}
}

// Get returns the current connectivity status
// @Summary Remote connectivity status
// @Tags connectivity
// @Produce json
// @Success 200 {object} connectivity.Status
// @Router /connectivity [get]
func (h *Handlers) Get(c *fiber.Ctx) error {
	return c.JSON(Status{Online: h.source.Online()})
}

// WSUpgrade rejects plain HTTP requests to the stream endpoint.
func (h *Handlers) WSUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals(parentCtxKey, c.UserContext())
		return c.Next()
	}

	logger.L().Warn("websocket upgrade required", "handler", "WSUpgrade", "path", c.Path())
	return httperr.Fail(httperr.E{
		Status:  fiber.StatusBadRequest,
		Message: "WebSocket upgrade required",
	})
}

// outbox holds status frames not yet written. When full the oldest frame is
// dropped since only the latest status matters.
type outbox struct {
	mu sync.Mutex
	ch chan Status
}

func (o *outbox) push(s Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	select {
	case o.ch <- s:
		return
	default:
	}
	select {
	case <-o.ch:
	default:
	}
	o.ch <- s
}

// WSStream streams {"online":bool} frames, starting with the current status.
func (h *Handlers) WSStream(c *websocket.Conn) {
	parentCtx, ok := c.Locals(parentCtxKey).(context.Context)
	if !ok {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	connID := ulid.Make().String()
	box := &outbox{ch: make(chan Status, h.outboxBuffer)}

	unsubscribe := h.source.SubscribeConnectivity(func(online bool) {
		box.push(Status{Online: online})
	})
	defer unsubscribe()

	logger.L().Info("connectivity stream opened", "conn_id", connID)

	sessionTimer := time.AfterFunc(time.Duration(h.maxSessionSec)*time.Second, func() {
		logger.L().Info("WebSocket session timeout", "conn_id", connID)
		h.sendCloseMessage(c, connID)
		h.closeConnection(c)
		cancel()
	})
	defer sessionTimer.Stop()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	go h.writeLoop(ctx, c, connID, box, ping)

	h.readLoop(c, connID)

	logger.L().Info("connectivity stream closed", "conn_id", connID)
}

func (h *Handlers) writeLoop(ctx context.Context, c *websocket.Conn, connID string, box *outbox, ping *time.Ticker) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("panic in WebSocket sender", "error", r, "conn_id", connID)
		}
	}()

	for {
		select {
		case s := <-box.ch:
			if err := c.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				logger.L().Error("failed to set write deadline", "error", err, "conn_id", connID)
				return
			}
			if err := c.WriteJSON(s); err != nil {
				logger.L().Warn("failed to write WebSocket message", "error", err, "conn_id", connID)
				return
			}
		case <-ping.C:
			if err := c.SetWriteDeadline(time.Now().Add(wsPingWriteTimeout)); err != nil {
				return
			}
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.L().Warn("failed to write ping message", "error", err, "conn_id", connID)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// readLoop drains client frames until the connection closes.
func (h *Handlers) readLoop(c *websocket.Conn, connID string) {
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger.L().Warn("WebSocket error", "error", err, "conn_id", connID)
			}
			return
		}
	}
}

func (h *Handlers) sendCloseMessage(c *websocket.Conn, connID string) {
	err := c.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(WSClosePolicyViolation, "session timeout"),
		time.Now().Add(wsWriteTimeout))
	if err != nil {
		logger.L().Error("failed to send close message", "error", err, "conn_id", connID)
	}
}

func (h *Handlers) closeConnection(c *websocket.Conn) {
	if err := c.Close(); err != nil {
		logger.L().Error(msgFailedToCloseWebSocketConnection, "error", err)
	}
}
