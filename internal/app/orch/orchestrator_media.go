package orch

import (
	"errors"
	"fmt"

	"github.com/dkeye/Jukebox/internal/core"
	"github.com/rs/zerolog/log"
)

var ErrNoListening = errors.New("listening is not available with this sink")

// Listen attaches lc as sid's listener in its current room. The caller
// applies the remote offer afterwards so the answer carries the track.
func (o *Orchestrator) Listen(sid core.SessionID, lc core.ListenerConnection) error {
	if o.Relays == nil {
		return ErrNoListening
	}
	room, sess, ok := o.Presence.RoomOf(sid)
	if !ok {
		return core.ErrNotInRoom
	}

	if prev := sess.Listener(); prev != nil && prev != lc {
		prev.Close()
	}
	if err := o.Relays.Subscribe(room, sid, lc); err != nil {
		return fmt.Errorf("subscribe listener: %w", err)
	}
	sess.UpdateListener(lc)
	lc.OnClosed(func() { o.OnListenerClosed(sid, lc) })

	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Msg("listener attached")
	return nil
}

// OnListenerClosed unsubscribes a listener whose PeerConnection ended.
func (o *Orchestrator) OnListenerClosed(sid core.SessionID, lc core.ListenerConnection) {
	sess, ok := o.Presence.GetSession(sid)
	if !ok || sess.Listener() != lc {
		return
	}
	if room, _, ok := o.Presence.RoomOf(sid); ok && o.Relays != nil {
		o.Relays.MarkSubscriberDelete(room, sid)
	}
	sess.UpdateListener(nil)
}

func (o *Orchestrator) cleanupMedia(sid core.SessionID) {
	room, sess, ok := o.Presence.RoomOf(sid)
	if !ok {
		return
	}
	if o.Relays != nil {
		o.Relays.MarkSubscriberDelete(room, sid)
	}
	if lc := sess.Listener(); lc != nil {
		sess.UpdateListener(nil)
		lc.Close()
	}
}
