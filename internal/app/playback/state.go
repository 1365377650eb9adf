package playback

import (
	"fmt"

	"github.com/dkeye/Jukebox/internal/core"
)

// State is the playback state of a room.
type State int

const (
	StateIdle       State = iota // no connection, nothing streaming
	StateConnecting              // joining the sink
	StatePlaying                 // one track streaming
	StatePaused                  // stream suspended, resumable
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// TransitionError reports a command that is not valid in the current state.
// It matches core.ErrInvalidTransition with errors.Is.
type TransitionError struct {
	Op   string
	From State
	// Stopping is set while a stop waits for the stream to report back.
	Stopping bool
}

func (e *TransitionError) Error() string {
	if e.Stopping {
		return "already stopping"
	}
	switch e.Op {
	case "resume":
		return "nothing is paused"
	case "pause":
		if e.From == StatePaused {
			return "already paused"
		}
		return "nothing is playing"
	case "stop":
		return "nothing is playing"
	case "skip":
		if e.From == StatePlaying || e.From == StatePaused {
			return "track is already being skipped"
		}
		return "nothing is playing"
	}
	return fmt.Sprintf("cannot %s while %s", e.Op, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == core.ErrInvalidTransition
}
