package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/avail-chat/signaling/internal/core"
	"github.com/avail-chat/signaling/internal/domain"
)

// Orchestrator drives room membership against the collaborator
// services. It owns no transport; adapters emit the resulting events.
type Orchestrator struct {
	Registry *Registry
	Rooms    *core.RoomRegistry
	Members  core.MembershipAuthority
	Profiles core.ProfileStore
}

// JoinResult carries what the adapter needs to answer a join: the full
// room snapshot for the joiner and the joiner's own participant record
// for the user-connected broadcast.
type JoinResult struct {
	Participants []domain.Participant
	Self         domain.Participant
}

// Join authorizes the connection's user for the room, fetches the
// display profile and inserts the participant. Both collaborator calls
// happen before any registry lock is taken, so their latency never
// blocks other rooms' operations. A denial creates no state.
func (o *Orchestrator) Join(ctx context.Context, rid domain.RoomID, cid domain.ConnectionID) (JoinResult, error) {
	uid, ok := o.Registry.UserOf(cid)
	if !ok {
		return JoinResult{}, fmt.Errorf("%w: unknown connection %s", domain.ErrAuthentication, cid)
	}

	role, err := o.Members.Authorize(ctx, rid, uid)
	if err != nil {
		return JoinResult{}, fmt.Errorf("join room %s: %w", rid, err)
	}
	profile, err := o.Profiles.Fetch(ctx, uid)
	if err != nil {
		return JoinResult{}, fmt.Errorf("join room %s: %w", rid, err)
	}

	p := domain.NewParticipant(cid, uid, profile, role)
	snapshot := o.Rooms.Join(rid, p)
	log.Info().Str("module", "app.orchestrator").
		Str("room", string(rid)).
		Str("user", string(uid)).
		Int("participants", len(snapshot)).
		Msg("joined room")
	return JoinResult{Participants: snapshot, Self: *p}, nil
}

// Leave removes the participant; absent participants are a no-op.
func (o *Orchestrator) Leave(rid domain.RoomID, cid domain.ConnectionID) bool {
	return o.Rooms.Leave(rid, cid)
}

// ToggleMic flips the mic flag. ok=false (room or participant absent)
// is logged here and must not produce any broadcast.
func (o *Orchestrator) ToggleMic(rid domain.RoomID, cid domain.ConnectionID) (enabled, ok bool) {
	enabled, ok = o.Rooms.ToggleMic(rid, cid)
	if !ok {
		log.Warn().Str("module", "app.orchestrator").
			Str("room", string(rid)).
			Str("conn", string(cid)).
			Msg("toggle-mic for absent participant")
	}
	return enabled, ok
}

// Reap runs the disconnect path: remove the connection from every room
// it occupied and unbind its transport. It returns the vacated rooms so
// the adapter can broadcast user-disconnected to whoever remains.
// Safe to call after an explicit leave-room; the second pass finds
// nothing to remove. Unbind guards the path against double invocation.
func (o *Orchestrator) Reap(cid domain.ConnectionID) []domain.RoomID {
	if !o.Registry.Unbind(cid) {
		return nil
	}
	vacated := o.Rooms.DropConnection(cid)
	log.Info().Str("module", "app.orchestrator").
		Str("conn", string(cid)).
		Int("rooms", len(vacated)).
		Msg("reaped connection")
	return vacated
}
