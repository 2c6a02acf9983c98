package signal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/avail-chat/signaling/internal/app"
	"github.com/avail-chat/signaling/internal/config"
	"github.com/avail-chat/signaling/internal/core"
	"github.com/avail-chat/signaling/internal/domain"
)

type fakeAuthority struct {
	denied map[domain.RoomID]bool
}

func (f *fakeAuthority) Authorize(_ context.Context, room domain.RoomID, _ domain.UserID) (string, error) {
	if f.denied[room] {
		return "", domain.ErrAuthorization
	}
	return "member", nil
}

type fakeProfiles struct{}

func (fakeProfiles) Fetch(_ context.Context, uid domain.UserID) (domain.Profile, error) {
	return domain.Profile{Username: "user-" + string(uid)}, nil
}

type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, credential string) (domain.UserID, error) {
	if credential == "" {
		return "", domain.ErrAuthentication
	}
	return domain.UserID(credential), nil
}

func testConfig() *config.Config {
	return &config.Config{
		Mode:         "debug",
		ReadLimit:    32768,
		PingPeriod:   25 * time.Second,
		PongWait:     60 * time.Second,
		WriteTimeout: 5 * time.Second,
		SendBuffer:   32,
	}
}

func newTestController(denied ...domain.RoomID) *Controller {
	auth := &fakeAuthority{denied: make(map[domain.RoomID]bool)}
	for _, r := range denied {
		auth.denied[r] = true
	}
	orch := &app.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    core.NewRoomRegistry(),
		Members:  auth,
		Profiles: fakeProfiles{},
	}
	return NewController(orch, fakeVerifier{}, testConfig())
}

// bindConn registers an in-memory connection; handlers only ever push
// into its send buffer, so no socket or pump is needed.
func bindConn(ctl *Controller, cid domain.ConnectionID, uid domain.UserID) *WsSignalConn {
	c := &WsSignalConn{send: make(chan core.Frame, 32)}
	ctl.Orch.Registry.Bind(cid, uid, c, nil)
	return c
}

func recvEvent(t *testing.T, c *WsSignalConn) map[string]any {
	t.Helper()
	select {
	case f := <-c.send:
		var m map[string]any
		if err := json.Unmarshal(f, &m); err != nil {
			t.Fatalf("bad frame %s: %v", f, err)
		}
		return m
	default:
		t.Fatal("no frame queued")
		return nil
	}
}

func expectNoEvent(t *testing.T, c *WsSignalConn) {
	t.Helper()
	select {
	case f := <-c.send:
		t.Fatalf("unexpected frame: %s", f)
	default:
	}
}

func dispatch(ctl *Controller, cid domain.ConnectionID, c *WsSignalConn, msg string) {
	ctl.handleMessage(context.Background(), cid, c, []byte(msg))
}

func TestJoinRoomEmitsCreatedAndUserConnected(t *testing.T) {
	ctl := newTestController()
	a := bindConn(ctl, "A", "1")
	b := bindConn(ctl, "B", "2")

	dispatch(ctl, "A", a, `{"event":"join-room","roomId":"channel-7"}`)
	ev := recvEvent(t, a)
	if ev["event"] != "created" || ev["roomId"] != "channel-7" {
		t.Fatalf("joiner got %v, want created for channel-7", ev)
	}
	if n := len(ev["participants"].([]any)); n != 1 {
		t.Fatalf("first join sees %d participants, want 1", n)
	}

	dispatch(ctl, "B", b, `{"event":"join-room","roomId":"channel-7"}`)
	ev = recvEvent(t, b)
	if n := len(ev["participants"].([]any)); n != 2 {
		t.Fatalf("second join sees %d participants, want 2", n)
	}

	ev = recvEvent(t, a)
	if ev["event"] != "user-connected" || ev["connectionId"] != "B" {
		t.Fatalf("existing member got %v, want user-connected for B", ev)
	}
	userData := ev["userData"].(map[string]any)
	if userData["username"] != "user-2" {
		t.Errorf("user-connected carries username %v", userData["username"])
	}
	expectNoEvent(t, b)
}

func TestJoinDeniedEmitsError(t *testing.T) {
	ctl := newTestController("channel-9")
	a := bindConn(ctl, "A", "1")

	dispatch(ctl, "A", a, `{"event":"join-room","roomId":"channel-9"}`)
	ev := recvEvent(t, a)
	if ev["event"] != "error" {
		t.Fatalf("denied join got %v, want error event", ev)
	}
	if got := ctl.Orch.Rooms.Participants("channel-9"); got != nil {
		t.Errorf("denied join created participants: %v", got)
	}
}

func TestDirectedSignalRelay(t *testing.T) {
	ctl := newTestController()
	a := bindConn(ctl, "A", "1")
	b := bindConn(ctl, "B", "2")

	dispatch(ctl, "A", a, `{"event":"signal","to":"B","type":"offer","sdp":"v=0 fake sdp"}`)

	ev := recvEvent(t, b)
	if ev["event"] != "signal" || ev["from"] != "A" || ev["type"] != "offer" {
		t.Fatalf("target got %v", ev)
	}
	if ev["sdp"] != "v=0 fake sdp" {
		t.Errorf("sdp not forwarded verbatim: %v", ev["sdp"])
	}
}

func TestSignalCandidatePayloadOpaque(t *testing.T) {
	ctl := newTestController()
	a := bindConn(ctl, "A", "1")
	b := bindConn(ctl, "B", "2")

	raw := `{"event":"signal","to":"B","type":"candidate","candidate":{"candidate":"candidate:1 1 udp","sdpMid":"0","sdpMLineIndex":0}}`
	dispatch(ctl, "A", a, raw)

	ev := recvEvent(t, b)
	cand := ev["candidate"].(map[string]any)
	if cand["candidate"] != "candidate:1 1 udp" || cand["sdpMid"] != "0" {
		t.Fatalf("candidate blob mangled: %v", cand)
	}
}

func TestSignalNeverLoopsBack(t *testing.T) {
	ctl := newTestController()
	a := bindConn(ctl, "A", "1")

	dispatch(ctl, "A", a, `{"event":"signal","to":"A","type":"offer","sdp":"x"}`)
	expectNoEvent(t, a)
}

func TestSignalUnknownTargetDroppedSilently(t *testing.T) {
	ctl := newTestController()
	a := bindConn(ctl, "A", "1")

	dispatch(ctl, "A", a, `{"event":"signal","to":"ghost","type":"answer","sdp":"x"}`)
	expectNoEvent(t, a)
}

func TestToggleMicBroadcast(t *testing.T) {
	ctl := newTestController()
	a := bindConn(ctl, "A", "1")
	b := bindConn(ctl, "B", "2")

	dispatch(ctl, "A", a, `{"event":"join-room","roomId":"channel-7"}`)
	dispatch(ctl, "B", b, `{"event":"join-room","roomId":"channel-7"}`)
	drain(a)
	drain(b)

	dispatch(ctl, "A", a, `{"event":"toggle-mic","roomId":"channel-7"}`)
	ev := recvEvent(t, b)
	if ev["event"] != "user-mic-toggle" || ev["connectionId"] != "A" || ev["micToggle"] != true {
		t.Fatalf("room got %v, want mic on for A", ev)
	}
	expectNoEvent(t, a)

	// Second toggle returns the flag to its original value.
	dispatch(ctl, "A", a, `{"event":"toggle-mic","roomId":"channel-7"}`)
	ev = recvEvent(t, b)
	if ev["micToggle"] != false {
		t.Fatalf("second toggle broadcast %v, want mic off", ev)
	}
}

func TestToggleMicAbsentHasNoEffect(t *testing.T) {
	ctl := newTestController()
	a := bindConn(ctl, "A", "1")
	b := bindConn(ctl, "B", "2")

	dispatch(ctl, "B", b, `{"event":"join-room","roomId":"channel-7"}`)
	drain(b)

	// A never joined channel-7: nothing observable happens.
	dispatch(ctl, "A", a, `{"event":"toggle-mic","roomId":"channel-7"}`)
	expectNoEvent(t, a)
	expectNoEvent(t, b)
}

func TestLeaveRoomBroadcastsDisconnect(t *testing.T) {
	ctl := newTestController()
	a := bindConn(ctl, "A", "1")
	b := bindConn(ctl, "B", "2")

	dispatch(ctl, "A", a, `{"event":"join-room","roomId":"channel-7"}`)
	dispatch(ctl, "B", b, `{"event":"join-room","roomId":"channel-7"}`)
	drain(a)
	drain(b)

	dispatch(ctl, "A", a, `{"event":"leave-room","roomId":"channel-7"}`)
	ev := recvEvent(t, b)
	if ev["event"] != "user-disconnected" || ev["connectionId"] != "A" {
		t.Fatalf("room got %v, want user-disconnected for A", ev)
	}

	// Leaving again is a silent no-op.
	dispatch(ctl, "A", a, `{"event":"leave-room","roomId":"channel-7"}`)
	expectNoEvent(t, a)
	expectNoEvent(t, b)
}

func TestMalformedMessage(t *testing.T) {
	ctl := newTestController()
	a := bindConn(ctl, "A", "1")

	for _, msg := range []string{
		`{not json`,
		`{"event":"no-such-thing"}`,
		`{"event":"join-room"}`,
		`{"event":"signal","to":"B","type":"bogus"}`,
	} {
		dispatch(ctl, "A", a, msg)
		ev := recvEvent(t, a)
		if ev["event"] != "error" {
			t.Errorf("message %q produced %v, want error event", msg, ev)
		}
	}
}

func TestBackpressureDropsForSlowReceiverOnly(t *testing.T) {
	ctl := newTestController()
	a := bindConn(ctl, "A", "1")
	b := bindConn(ctl, "B", "2")

	// A slow receiver with a full buffer.
	slow := &WsSignalConn{send: make(chan core.Frame)}
	ctl.Orch.Registry.Bind("S", "3", slow, nil)

	dispatch(ctl, "A", a, `{"event":"join-room","roomId":"channel-7"}`)
	dispatch(ctl, "B", b, `{"event":"join-room","roomId":"channel-7"}`)
	dispatch(ctl, "S", slow, `{"event":"join-room","roomId":"channel-7"}`)
	drain(a)
	drain(b)

	dispatch(ctl, "A", a, `{"event":"toggle-mic","roomId":"channel-7"}`)
	ev := recvEvent(t, b)
	if ev["event"] != "user-mic-toggle" {
		t.Fatalf("healthy receiver got %v despite slow peer", ev)
	}
}

func drain(c *WsSignalConn) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}
