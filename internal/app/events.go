package app

import (
	json "github.com/goccy/go-json"
	"github.com/studyhall/server/internal/core"
	"github.com/studyhall/server/internal/domain"
)

// Server-initiated event types on the realtime channel.
const (
	EventHistory     = "history"
	EventMessage     = "message"
	EventRoomCreated = "room_created"
)

type HistoryEvent struct {
	Type     string                   `json:"type"`
	Room     domain.RoomID            `json:"room"`
	Messages []domain.EnrichedMessage `json:"messages"`
}

type MessageEvent struct {
	Type    string                 `json:"type"`
	Message domain.EnrichedMessage `json:"message"`
}

type RoomCreatedEvent struct {
	Type string      `json:"type"`
	Room domain.Room `json:"room"`
}

func Encode(v any) (core.Frame, error) {
	return json.Marshal(v)
}
