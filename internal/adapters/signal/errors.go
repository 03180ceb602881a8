package signal

import (
	"errors"

	"github.com/studyhall/server/internal/domain"
)

// Error codes carried by the "error" event.
const (
	CodeBadPayload         = "bad_payload"
	CodeRoomNotFound       = "room_not_found"
	CodeNotInRoom          = "not_in_room"
	CodeMessageTooLong     = "message_too_long"
	CodeRateLimited        = "rate_limited"
	CodePersistenceFailure = "persistence_failure"
	CodeUnauthenticated    = "unauthenticated"
	CodeInternal           = "internal"
)

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return CodeRoomNotFound
	case errors.Is(err, domain.ErrNotInRoom):
		return CodeNotInRoom
	case errors.Is(err, domain.ErrMessageTooLong):
		return CodeMessageTooLong
	case errors.Is(err, domain.ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, domain.ErrPersistence):
		return CodePersistenceFailure
	case errors.Is(err, domain.ErrAnonymous), errors.Is(err, domain.ErrIdentityClash):
		return CodeUnauthenticated
	case errors.Is(err, domain.ErrUserIDEmpty), errors.Is(err, domain.ErrUserIDTooLong),
		errors.Is(err, domain.ErrUsernameTooLong), errors.Is(err, domain.ErrUsernameEmpty):
		return CodeBadPayload
	default:
		return CodeInternal
	}
}
