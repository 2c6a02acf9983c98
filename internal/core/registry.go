package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/avail-chat/signaling/internal/domain"
)

type room struct {
	participants map[domain.ConnectionID]*domain.Participant
}

// RoomRegistry is the authoritative in-memory source of "who is where".
// It exclusively owns the room->participant graph plus a reverse index
// from connection to occupied rooms so that disconnect cleanup never
// scans all rooms. A room exists iff it has at least one participant:
// creation and deletion happen under the same lock as the membership
// change that crosses 1 or 0.
//
// Collaborator lookups (membership, profile) happen before any call
// into the registry; no method here blocks on anything external.
type RoomRegistry struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID]*room
	byConn map[domain.ConnectionID]map[domain.RoomID]struct{}
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:  make(map[domain.RoomID]*room),
		byConn: make(map[domain.ConnectionID]map[domain.RoomID]struct{}),
	}
}

// Join inserts a participant built from the already-authorized profile
// and role, creating the room lazily. A second join for the same
// (room, connection) pair overwrites the first, so join is idempotent
// per connection. Returns a snapshot of the room including the new
// participant.
func (rr *RoomRegistry) Join(rid domain.RoomID, p *domain.Participant) []domain.Participant {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	r, ok := rr.rooms[rid]
	if !ok {
		r = &room{participants: make(map[domain.ConnectionID]*domain.Participant)}
		rr.rooms[rid] = r
		log.Debug().Str("module", "core.registry").Str("room", string(rid)).Msg("room created")
	}
	r.participants[p.ConnectionID] = p

	idx, ok := rr.byConn[p.ConnectionID]
	if !ok {
		idx = make(map[domain.RoomID]struct{})
		rr.byConn[p.ConnectionID] = idx
	}
	idx[rid] = struct{}{}

	log.Info().Str("module", "core.registry").
		Str("room", string(rid)).
		Str("conn", string(p.ConnectionID)).
		Str("user", string(p.UserData.ID)).
		Msg("participant joined")
	return r.snapshot()
}

// Leave removes the participant if present. An absent participant is a
// no-op, not an error, which also makes reaper-after-explicit-leave
// safe. Returns whether anything was removed.
func (rr *RoomRegistry) Leave(rid domain.RoomID, cid domain.ConnectionID) bool {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	return rr.removeLocked(rid, cid)
}

// ToggleMic flips the participant's mic flag and returns the new value.
// ok is false when the room or participant does not exist.
func (rr *RoomRegistry) ToggleMic(rid domain.RoomID, cid domain.ConnectionID) (enabled, ok bool) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	r, ok := rr.rooms[rid]
	if !ok {
		return false, false
	}
	p, ok := r.participants[cid]
	if !ok {
		return false, false
	}
	p.MicEnabled = !p.MicEnabled
	return p.MicEnabled, true
}

// Participants returns a copied snapshot for fan-out decisions.
// The slice is nil when the room does not exist.
func (rr *RoomRegistry) Participants(rid domain.RoomID) []domain.Participant {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	r, ok := rr.rooms[rid]
	if !ok {
		return nil
	}
	return r.snapshot()
}

// DropConnection removes the connection from every room it occupied
// and returns the vacated rooms, for user-disconnected fan-out by the
// caller. Rooms emptied by the removal are deleted under the same lock.
func (rr *RoomRegistry) DropConnection(cid domain.ConnectionID) []domain.RoomID {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	idx, ok := rr.byConn[cid]
	if !ok {
		return nil
	}
	vacated := make([]domain.RoomID, 0, len(idx))
	for rid := range idx {
		rr.removeLocked(rid, cid)
		vacated = append(vacated, rid)
	}
	return vacated
}

// Rooms lists every live room with its participant count.
func (rr *RoomRegistry) Rooms() []RoomInfo {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	out := make([]RoomInfo, 0, len(rr.rooms))
	for rid, r := range rr.rooms {
		out = append(out, RoomInfo{Room: rid, ParticipantCount: len(r.participants)})
	}
	return out
}

func (rr *RoomRegistry) removeLocked(rid domain.RoomID, cid domain.ConnectionID) bool {
	r, ok := rr.rooms[rid]
	if !ok {
		return false
	}
	if _, ok := r.participants[cid]; !ok {
		return false
	}
	delete(r.participants, cid)
	if idx, ok := rr.byConn[cid]; ok {
		delete(idx, rid)
		if len(idx) == 0 {
			delete(rr.byConn, cid)
		}
	}
	if len(r.participants) == 0 {
		delete(rr.rooms, rid)
		log.Debug().Str("module", "core.registry").Str("room", string(rid)).Msg("room deleted")
	}
	log.Info().Str("module", "core.registry").
		Str("room", string(rid)).
		Str("conn", string(cid)).
		Msg("participant removed")
	return true
}

func (r *room) snapshot() []domain.Participant {
	out := make([]domain.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, *p)
	}
	return out
}
