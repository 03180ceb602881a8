package domain

import "errors"

var (
	ErrUserIDEmpty     = errors.New("user id empty")
	ErrUserIDTooLong   = errors.New("user id too long")
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")

	ErrInvalidRoomName = errors.New("invalid room name")
	ErrDuplicateName   = errors.New("room already exists")
	ErrRoomNotFound    = errors.New("room not found")

	ErrMessageTooLong = errors.New("message too long")
	ErrNotInRoom      = errors.New("session is not in a room")
	ErrSessionUnknown = errors.New("unknown session")
	ErrAnonymous      = errors.New("session has no user identity")
	ErrIdentityClash  = errors.New("session already bound to another user")
	ErrRateLimited    = errors.New("rate limited")

	ErrPersistence        = errors.New("persistence failure")
	ErrIdentityUnresolved = errors.New("identity unresolved")
)
