package core

import "github.com/studyhall/server/internal/domain"

type SessionID string

// MemberSession binds domain.Member and its transport endpoint.
// This is what a room channel stores and fans out to.
type MemberSession interface {
	Meta() *domain.Member
	Signal() SignalConnection
	UpdateSignal(SignalConnection) MemberSession
}
