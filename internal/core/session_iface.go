package core

import "github.com/dkeye/Jukebox/internal/domain"

type SessionID string

// MemberSession binds domain.Member and its transport endpoints.
// This is what presence stores and what the notifier fans out to.
type MemberSession interface {
	Meta() *domain.Member
	Signal() SignalConnection
	Listener() ListenerConnection
	UpdateSignal(SignalConnection) MemberSession
	UpdateListener(ListenerConnection) MemberSession
}
