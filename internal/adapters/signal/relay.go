package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/avail-chat/signaling/internal/domain"
)

// handleSignal relays a directed offer/answer/candidate to its target
// connection verbatim, tagged with the sender. Signaling is best-effort:
// a missing or slow target drops the frame silently, the peers' own
// negotiation timeout handles lost messages. A frame addressed to the
// sender itself is never looped back.
func (ctl *Controller) handleSignal(cid domain.ConnectionID, c *WsSignalConn, data []byte) {
	var p signalPayload
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" || !validSignalType(p.Type) {
		log.Warn().Str("module", "signal").Str("conn", string(cid)).Msg("bad signal payload")
		ctl.sendError(c, "bad payload")
		return
	}

	to := domain.ConnectionID(p.To)
	if to == cid {
		return
	}
	target, ok := ctl.Orch.Registry.Conn(to)
	if !ok {
		log.Debug().Str("module", "signal").
			Str("from", string(cid)).
			Str("to", p.To).
			Msg("signal target gone, dropped")
		return
	}

	out := signalPayload{
		Event:     evtSignal,
		From:      string(cid),
		Type:      p.Type,
		SDP:       p.SDP,
		Candidate: p.Candidate,
	}
	frame, err := encode(out)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("signal marshal")
		return
	}
	if err := target.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("to", p.To).Msg("dropped signal frame")
	}
}

func validSignalType(t string) bool {
	switch t {
	case "offer", "answer", "candidate":
		return true
	}
	return false
}

// handleToggleMic flips the sender's mic flag and tells the rest of the
// room. Toggling in a room the connection never joined changes nothing
// and broadcasts nothing.
func (ctl *Controller) handleToggleMic(cid domain.ConnectionID, c *WsSignalConn, data []byte) {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Warn().Str("module", "signal").Str("conn", string(cid)).Msg("bad toggle-mic payload")
		ctl.sendError(c, "bad payload")
		return
	}
	rid := domain.RoomID(p.RoomID)

	enabled, ok := ctl.Orch.ToggleMic(rid, cid)
	if !ok {
		return
	}
	ctl.broadcastRoom(rid, cid, micToggleEvent{
		Event:        evtMicToggle,
		ConnectionID: cid,
		MicToggle:    enabled,
	})
}
