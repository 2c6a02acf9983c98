package domain

type (
	// RoomID is the external room token, e.g. "channel-7".
	RoomID string
	// UserID is the platform-wide user identifier carried in the
	// credential's subject claim.
	UserID string
	// ConnectionID identifies one transport session within this process.
	ConnectionID string
)
