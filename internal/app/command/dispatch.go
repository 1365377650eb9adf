package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dkeye/Jukebox/internal/app/orch"
	"github.com/dkeye/Jukebox/internal/core"
	"github.com/dkeye/Jukebox/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	ReplyJoinFirst  = "🔊 Join the room first!"
	ReplyEmptyQuery = "🎵 Specify a title or a link!"
	ReplyNotFound   = "❌ Nothing found."
	ReplyNoQueue    = "❌ No active queue."
	ReplyNoConnect  = "❌ Could not connect to the audio sink."
	ReplyEmptyList  = "📋 Queue is empty."
)

// Player is the part of the orchestrator commands drive.
type Player interface {
	RoomOf(sid core.SessionID) (domain.RoomID, bool)
	Play(ctx context.Context, room domain.RoomID, query string) (domain.Track, error)
	Skip(room domain.RoomID) error
	Stop(room domain.RoomID) error
	Pause(room domain.RoomID) error
	Resume(room domain.RoomID) error
	Queue(room domain.RoomID) orch.QueueView
}

type Dispatcher struct {
	Prefix string
	Player Player
}

// Handle runs text as a command of sid in sid's room. It returns the reply
// for the caller alone; room-wide status goes out through the notifier.
// handled is false for text that is not a known command.
func (d *Dispatcher) Handle(ctx context.Context, sid core.SessionID, text string) (reply string, handled bool) {
	cmd, err := Parse(d.Prefix, text)
	if err != nil {
		return "", false
	}
	logger := log.With().Str("module", "command").Str("sid", string(sid)).Str("cmd", string(cmd.Name)).Logger()

	room, ok := d.Player.RoomOf(sid)
	if !ok {
		return ReplyJoinFirst, true
	}

	switch cmd.Name {
	case Play:
		if cmd.Arg == "" {
			return ReplyEmptyQuery, true
		}
		_, err = d.Player.Play(ctx, room, cmd.Arg)
	case Skip:
		err = d.Player.Skip(room)
	case Stop:
		err = d.Player.Stop(room)
	case Pause:
		err = d.Player.Pause(room)
	case Resume:
		err = d.Player.Resume(room)
	case Queue:
		return FormatQueue(d.Player.Queue(room).Tracks), true
	}
	if err != nil {
		logger.Info().Err(err).Str("room", string(room)).Msg("command rejected")
	}
	return replyFor(err), true
}

// FormatQueue lists tracks with the head first.
func FormatQueue(tracks []string) string {
	if len(tracks) == 0 {
		return ReplyEmptyList
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Queue (%d):", len(tracks))
	for i, t := range tracks {
		fmt.Fprintf(&b, "\n%d. %s", i+1, t)
	}
	return b.String()
}

// replyFor maps an error to the caller's reply. Success has no reply
// because the session announces it to the room.
func replyFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, core.ErrNotFound):
		return ReplyNotFound
	case errors.Is(err, core.ErrNoSession):
		return ReplyNoQueue
	case errors.Is(err, core.ErrNotInRoom):
		return ReplyJoinFirst
	case errors.Is(err, core.ErrConnectFailed):
		return ReplyNoConnect
	case errors.Is(err, core.ErrInvalidTransition):
		return "❌ " + capitalize(err.Error()) + "."
	default:
		return "❌ " + err.Error()
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
