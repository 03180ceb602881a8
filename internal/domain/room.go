package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const MaxRoomNameLen = 64

type (
	RoomName string
	RoomID   string
)

// NormalizeRoomName trims surrounding whitespace. Comparison stays case-sensitive.
func NormalizeRoomName(raw string) (RoomName, error) {
	name := strings.TrimSpace(raw)
	if name == "" || utf8.RuneCountInString(name) > MaxRoomNameLen {
		return "", ErrInvalidRoomName
	}
	return RoomName(name), nil
}

type Room struct {
	ID           RoomID    `json:"id"`
	Name         RoomName  `json:"name"`
	CreatedBy    UserID    `json:"created_by"`
	Participants []UserID  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasParticipant reports whether uid already appears in the participant list.
func (r Room) HasParticipant(uid UserID) bool {
	for _, p := range r.Participants {
		if p == uid {
			return true
		}
	}
	return false
}

// RoomSummary is the listing view of a room.
type RoomSummary struct {
	ID               RoomID    `json:"id"`
	Name             RoomName  `json:"name"`
	CreatedBy        UserID    `json:"created_by"`
	CreatorName      string    `json:"creator_name"`
	ParticipantCount int       `json:"participant_count"`
	MessageCount     uint64    `json:"message_count"`
	Online           int       `json:"online"`
	CreatedAt        time.Time `json:"created_at"`
}
