//go:generate go run go.uber.org/mock/mockgen -source=store_iface.go -destination=../mocks/mock_store.go -package=mocks
package core

import (
	"context"

	"github.com/studyhall/server/internal/domain"
)

// RoomStore is the persisted room catalog.
type RoomStore interface {
	CreateRoom(ctx context.Context, room domain.Room) (domain.Room, error)
	GetRoom(ctx context.Context, id domain.RoomID) (domain.Room, error)
	ListRooms(ctx context.Context) ([]domain.Room, error)
	AddParticipant(ctx context.Context, id domain.RoomID, uid domain.UserID) error
}

// MessageStore owns room histories. Appends are the only mutation.
type MessageStore interface {
	AppendMessage(ctx context.Context, id domain.RoomID, author domain.UserID, text string) (domain.Message, error)
	// Messages returns history in append order; limit > 0 keeps the newest limit entries.
	Messages(ctx context.Context, id domain.RoomID, limit int) ([]domain.Message, error)
	MessageCount(ctx context.Context, id domain.RoomID) (uint64, error)
}

// UserStore is the local replica of user identities.
type UserStore interface {
	PutUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, id domain.UserID) (domain.User, error)
}

// IdentityResolver maps a user id to a human-readable name.
type IdentityResolver interface {
	DisplayName(ctx context.Context, id domain.UserID) (string, error)
}
