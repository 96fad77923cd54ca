package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/jobmate/signaling/internal/app"
	"github.com/jobmate/signaling/internal/config"
	"github.com/jobmate/signaling/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

// SignalWSController terminates the WebSocket transport and feeds
// named events into the engine. One instance serves all sockets.
type SignalWSController struct {
	Engine   *app.Orchestrator
	cfg      *config.Config
	limiter  *CallRateLimiter
	validate *validator.Validate
}

func NewSignalWSController(engine *app.Orchestrator, cfg *config.Config) *SignalWSController {
	return &SignalWSController{
		Engine:   engine,
		cfg:      cfg,
		limiter:  NewCallRateLimiter(cfg.Call.RequestLimit, cfg.Call.RequestInterval),
		validate: validator.New(),
	}
}

// WsSignalConn wraps one gorilla socket behind core.SignalConnection.
// TrySend never blocks; a full send buffer is a drop.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and starts the pumps. Each socket
// gets a fresh session id: identity only attaches once the client
// sends register.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(uuid.NewString())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("client_token", c.GetString("client_token")).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.cfg.ReadLimit)

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, conn)
}
