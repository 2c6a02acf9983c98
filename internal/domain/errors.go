package domain

import "errors"

var (
	// ErrAuthentication means the handshake credential is missing,
	// malformed or rejected. Fatal for the connection.
	ErrAuthentication = errors.New("authentication failed")
	// ErrAuthorization means the membership authority denied a join.
	// Connection-local, the transport stays open.
	ErrAuthorization = errors.New("not authorized for room")
	// ErrNotFound means the target room or participant does not exist.
	ErrNotFound = errors.New("not found")
)
