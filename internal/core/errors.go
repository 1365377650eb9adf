package core

import "errors"

var (
	ErrConnectFailed     = errors.New("could not connect to the audio sink")
	ErrNotFound          = errors.New("nothing found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNoSession         = errors.New("no active queue")
	ErrSessionClosed     = errors.New("session closed")
	ErrNotInRoom         = errors.New("join the room first")
)
