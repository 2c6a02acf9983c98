package core

import (
	"context"

	"github.com/avail-chat/signaling/internal/domain"
)

// Frame is a raw signaling payload, already encoded for the wire.
type Frame []byte

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// IdentityVerifier validates the bearer credential presented at
// connect time and returns the subject user. Failures wrap
// domain.ErrAuthentication.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (domain.UserID, error)
}

// MembershipAuthority decides whether a user may join a room and
// returns a role label. Denials wrap domain.ErrAuthorization.
type MembershipAuthority interface {
	Authorize(ctx context.Context, room domain.RoomID, user domain.UserID) (string, error)
}

// ProfileStore returns display attributes for a user.
type ProfileStore interface {
	Fetch(ctx context.Context, user domain.UserID) (domain.Profile, error)
}

// RoomInfo is a read-only view for APIs.
type RoomInfo struct {
	Room             domain.RoomID `json:"room"`
	ParticipantCount int           `json:"participant_count"`
}
