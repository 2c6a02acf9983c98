package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/avail-chat/signaling/internal/domain"
)

func (ctl *Controller) handleJoinRoom(ctx context.Context, cid domain.ConnectionID, c *WsSignalConn, data []byte) {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Warn().Str("module", "signal").Str("conn", string(cid)).Msg("bad join-room payload")
		ctl.sendError(c, "bad payload")
		return
	}
	rid := domain.RoomID(p.RoomID)

	res, err := ctl.Orch.Join(ctx, rid, cid)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").
			Str("room", string(rid)).
			Str("conn", string(cid)).
			Msg("join-room failed")
		switch {
		case errors.Is(err, domain.ErrAuthorization):
			ctl.sendError(c, "not authorized for room")
		default:
			ctl.sendError(c, "failed to join room")
		}
		return
	}

	ctl.sendJSON(c, createdEvent{
		Event:        evtCreated,
		RoomID:       rid,
		Participants: res.Participants,
	})
	ctl.broadcastRoom(rid, cid, userConnectedEvent{
		Event:        evtConnected,
		ConnectionID: cid,
		UserData:     res.Self.UserData,
	})
}

// handleLeaveRoom removes the participant without dropping the socket.
// Leaving a room never joined is a silent no-op.
func (ctl *Controller) handleLeaveRoom(cid domain.ConnectionID, c *WsSignalConn, data []byte) {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Warn().Str("module", "signal").Str("conn", string(cid)).Msg("bad leave-room payload")
		ctl.sendError(c, "bad payload")
		return
	}
	rid := domain.RoomID(p.RoomID)

	if !ctl.Orch.Leave(rid, cid) {
		return
	}
	ctl.broadcastRoom(rid, cid, userDisconnectedEvent{
		Event:        evtDisconnected,
		ConnectionID: cid,
	})
}
