package app

import (
	"github.com/dkeye/Jukebox/internal/core"
	"github.com/dkeye/Jukebox/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a member whose signal queue is full.
type Policy interface {
	OnBackPressure(room domain.RoomID, member core.MemberSession) BackpressureAction
}

// SimplePolicy disconnects members that cannot keep up.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.RoomID, core.MemberSession) BackpressureAction {
	return KickMember
}
