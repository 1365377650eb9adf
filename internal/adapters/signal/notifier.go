package signal

import (
	"errors"

	"github.com/dkeye/Jukebox/internal/app"
	"github.com/dkeye/Jukebox/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomNotifier sends playback status text to every member of a room.
type RoomNotifier struct {
	Presence *app.Presence
	// Policy handles members whose queue is full. Nil drops the message.
	Policy app.Policy
}

type statusMessage struct {
	Type string        `json:"type"`
	Room domain.RoomID `json:"room"`
	Text string        `json:"text"`
}

func (n *RoomNotifier) Send(room domain.RoomID, text string) {
	members := n.Presence.MembersOfRoom(room)
	log.Info().
		Str("module", "signal.notifier").
		Str("room", string(room)).
		Int("members", len(members)).
		Msg(text)

	msg := statusMessage{Type: "status", Room: room, Text: text}
	for _, snap := range members {
		err := sendJSON(snap.Session.Signal(), msg)
		if !errors.Is(err, ErrBackpressure) || n.Policy == nil {
			continue
		}
		switch n.Policy.OnBackPressure(room, snap.Session) {
		case app.KickMember:
			log.Warn().Str("module", "signal.notifier").Str("sid", string(snap.SID)).Msg("kicking slow member")
			n.Presence.Cancel(snap.SID)
		case app.DropFrame, app.NoAction:
		}
	}
}
