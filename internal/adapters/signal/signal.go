// Package signal is the WebSocket controller: it authenticates the
// handshake, pumps frames and dispatches the signaling protocol.
package signal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avail-chat/signaling/internal/app"
	"github.com/avail-chat/signaling/internal/config"
	"github.com/avail-chat/signaling/internal/core"
	"github.com/avail-chat/signaling/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Orch     *app.Orchestrator
	Identity core.IdentityVerifier
	Cfg      *config.Config
}

func NewController(orch *app.Orchestrator, identity core.IdentityVerifier, cfg *config.Config) *Controller {
	return &Controller{Orch: orch, Identity: identity, Cfg: cfg}
}

// WsSignalConn wraps one client socket with a buffered outbound queue.
// TrySend never blocks: a slow receiver fills its own buffer and loses
// frames without stalling fan-out to anyone else.
type WsSignalConn struct {
	conn WSConn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

// WSConn is an indirection over *websocket.Conn to ease testing.
type WSConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	Close() error
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

// HandleSignal gates a new transport connection. The credential is
// checked exactly once, before the upgrade; a rejected client never
// gets a socket, so no pump or registry state exists for it.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	uid, err := ctl.Identity.Verify(c.Request.Context(), bearerToken(c))
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("remote", c.ClientIP()).Msg("handshake rejected")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	cid := domain.ConnectionID(uuid.NewString())
	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.Cfg.SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.Bind(cid, uid, conn, cancel)
	log.Info().Str("module", "signal").Str("conn", string(cid)).Str("user", string(uid)).Msg("new WS connection")

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cid, conn)
}

func bearerToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	h := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return after
	}
	return ""
}

// broadcastRoom fans v out to every room participant except the origin.
// Delivery is per-receiver independent: each target has its own send
// buffer and write pump, a failure on one never blocks the rest.
func (ctl *Controller) broadcastRoom(rid domain.RoomID, except domain.ConnectionID, v any) {
	frame, err := encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("broadcast marshal")
		return
	}
	for _, p := range ctl.Orch.Rooms.Participants(rid) {
		if p.ConnectionID == except {
			continue
		}
		target, ok := ctl.Orch.Registry.Conn(p.ConnectionID)
		if !ok {
			continue
		}
		if err := target.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "signal").
				Str("room", string(rid)).
				Str("conn", string(p.ConnectionID)).
				Msg("dropped broadcast frame")
		}
	}
}
