package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avail-chat/signaling/internal/domain"
)

func (ctl *Controller) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Cfg.WriteTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping failed")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Cfg.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump drives the whole connection lifecycle. Its deferred cleanup
// is the disconnect reaper: graceful close, abrupt drop and keepalive
// expiry all land here, exactly once, and vacate every room the
// connection occupied.
func (ctl *Controller) readPump(ctx context.Context, cid domain.ConnectionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(cid)).Msg("readPump closing")
		for _, rid := range ctl.Orch.Reap(cid) {
			ctl.broadcastRoom(rid, cid, userDisconnectedEvent{Event: evtDisconnected, ConnectionID: cid})
		}
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.Cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.Cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.Cfg.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(cid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("readPump read error")
				}
				return
			}
			ctl.handleMessage(ctx, cid, c, data)
		}
	}
}

func (ctl *Controller) handleMessage(ctx context.Context, cid domain.ConnectionID, c *WsSignalConn, data []byte) {
	var env struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("bad json")
		ctl.sendError(c, "malformed message")
		return
	}

	switch env.Event {
	case evtJoinRoom:
		ctl.handleJoinRoom(ctx, cid, c, data)
	case evtLeaveRoom:
		ctl.handleLeaveRoom(cid, c, data)
	case evtSignal:
		ctl.handleSignal(cid, c, data)
	case evtToggleMic:
		ctl.handleToggleMic(cid, c, data)
	default:
		log.Warn().Str("module", "signal").Str("event", env.Event).Msg("unknown message")
		ctl.sendError(c, "unknown message")
	}
}

func (ctl *Controller) sendJSON(c *WsSignalConn, v any) {
	frame, err := encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(frame)
}

func (ctl *Controller) sendError(c *WsSignalConn, msg string) {
	ctl.sendJSON(c, errorEvent{Event: evtError, Message: msg})
}
