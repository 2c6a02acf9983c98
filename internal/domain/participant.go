// Package domain contains entities without logic, just meta-data.
package domain

// Profile is the displayable part of a user, fetched from the platform
// on join.
type Profile struct {
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
}

// UserData is what other room members see about a participant.
type UserData struct {
	ID             UserID `json:"id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
	Role           string `json:"role"`
}

// Participant is one connection's membership record within a room.
// Created on join with the mic off, mutated only by toggle, destroyed
// on leave or disconnect cleanup.
type Participant struct {
	ConnectionID ConnectionID `json:"connectionId"`
	UserData     UserData     `json:"userData"`
	MicEnabled   bool         `json:"micToggle"`
}

// NewParticipant avoids raw literals in adapters and keeps construction obvious.
func NewParticipant(cid ConnectionID, uid UserID, profile Profile, role string) *Participant {
	return &Participant{
		ConnectionID: cid,
		UserData: UserData{
			ID:             uid,
			Username:       profile.Username,
			ProfilePicture: profile.ProfilePicture,
			Role:           role,
		},
	}
}
