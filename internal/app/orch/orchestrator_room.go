package orch

import (
	"github.com/dkeye/Jukebox/internal/core"
	"github.com/dkeye/Jukebox/internal/domain"
	"github.com/rs/zerolog/log"
)

// Join moves sid into room, leaving its previous room first.
func (o *Orchestrator) Join(sid core.SessionID, room domain.RoomID) bool {
	if from, _, ok := o.Presence.RoomOf(sid); ok {
		if from == room {
			return true
		}
		o.Leave(sid)
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("from_room", string(from)).Msg("left previous room")
	}
	if !o.Presence.UpdateRoom(sid, room) {
		return false
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Msg("added to room")
	return true
}

// Leave drops sid's listener and room association. The signal connection
// stays open.
func (o *Orchestrator) Leave(sid core.SessionID) {
	o.cleanupMedia(sid)
	o.Presence.RemoveRoom(sid)
}

// OnDisconnect forgets sess once its signal connection is gone.
func (o *Orchestrator) OnDisconnect(sid core.SessionID, sess core.MemberSession) {
	current, ok := o.Presence.GetSession(sid)
	if !ok || current != sess {
		return
	}
	o.Leave(sid)
	o.Presence.Unbind(sid, sess)
}

// EvictRoom stops the room's playback, removes its members and drops its
// relay.
func (o *Orchestrator) EvictRoom(room domain.RoomID) {
	evicted := o.Sessions.Evict(room)
	members := o.Presence.MembersOfRoom(room)
	for _, snap := range members {
		o.Leave(snap.SID)
	}
	if o.Relays != nil {
		o.Relays.StopRelay(room)
	}
	log.Info().
		Str("module", "orch").
		Str("room", string(room)).
		Bool("had_session", evicted).
		Int("members", len(members)).
		Msg("room evicted")
}

// RoomOf returns the room sid has joined.
func (o *Orchestrator) RoomOf(sid core.SessionID) (domain.RoomID, bool) {
	room, _, ok := o.Presence.RoomOf(sid)
	return room, ok
}
