package domain

import "time"

// Message is immutable once appended. Seq is its 1-based position in the
// room history and never changes.
type Message struct {
	Seq       uint64    `json:"seq"`
	RoomID    RoomID    `json:"room_id"`
	Author    UserID    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// EnrichedMessage carries the author's display name for delivery.
type EnrichedMessage struct {
	Message
	AuthorName string `json:"author_name"`
}
