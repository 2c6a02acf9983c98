package signal

import (
	"encoding/json"

	"github.com/avail-chat/signaling/internal/core"
	"github.com/avail-chat/signaling/internal/domain"
)

// Wire envelope: every frame is a JSON object whose "event" field names
// the message. The directed signal family keeps its own "type" field
// (offer/answer/candidate) untouched, so the two never collide.

const (
	evtJoinRoom     = "join-room"
	evtLeaveRoom    = "leave-room"
	evtSignal       = "signal"
	evtToggleMic    = "toggle-mic"
	evtCreated      = "created"
	evtConnected    = "user-connected"
	evtDisconnected = "user-disconnected"
	evtMicToggle    = "user-mic-toggle"
	evtError        = "error"
)

type roomPayload struct {
	Event  string `json:"event"`
	RoomID string `json:"roomId"`
}

// signalPayload is forwarded verbatim: sdp and candidate stay raw JSON,
// this subsystem never parses negotiation contents.
type signalPayload struct {
	Event     string          `json:"event"`
	To        string          `json:"to,omitempty"`
	From      string          `json:"from,omitempty"`
	Type      string          `json:"type"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

type createdEvent struct {
	Event        string               `json:"event"`
	RoomID       domain.RoomID        `json:"roomId"`
	Participants []domain.Participant `json:"participants"`
}

type userConnectedEvent struct {
	Event        string              `json:"event"`
	ConnectionID domain.ConnectionID `json:"connectionId"`
	UserData     domain.UserData     `json:"userData"`
}

type userDisconnectedEvent struct {
	Event        string              `json:"event"`
	ConnectionID domain.ConnectionID `json:"connectionId"`
}

type micToggleEvent struct {
	Event        string              `json:"event"`
	ConnectionID domain.ConnectionID `json:"connectionId"`
	MicToggle    bool                `json:"micToggle"`
}

type errorEvent struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

func encode(v any) (core.Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return core.Frame(b), nil
}
