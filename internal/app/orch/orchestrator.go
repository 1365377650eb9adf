// Package orch ties presence, playback sessions and listener media together.
package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Jukebox/internal/app"
	"github.com/dkeye/Jukebox/internal/app/playback"
	"github.com/dkeye/Jukebox/internal/app/sfu"
	"github.com/dkeye/Jukebox/internal/core"
	"github.com/dkeye/Jukebox/internal/domain"
	"github.com/rs/zerolog/log"
)

// enqueueAttempts bounds the race where a session closes between lookup
// and enqueue; the registry hands out a fresh one on the next try.
const enqueueAttempts = 3

type Orchestrator struct {
	Presence *app.Presence
	Sessions *playback.Registry
	Resolver core.Resolver
	Sink     core.Sink
	// Relays is nil when the sink does not serve WebRTC listeners.
	Relays *sfu.RelayManager
}

// QueueView is a room's queue as shown to users.
type QueueView struct {
	Room   domain.RoomID `json:"room"`
	State  string        `json:"state"`
	Tracks []string      `json:"tracks"`
}

// Play resolves query and enqueues the result in room.
func (o *Orchestrator) Play(ctx context.Context, room domain.RoomID, query string) (domain.Track, error) {
	track, err := o.Resolver.Resolve(ctx, query)
	if err != nil {
		log.Info().Str("module", "orch").Str("room", string(room)).Str("query", query).Err(err).Msg("resolve failed")
		return domain.Track{}, err
	}

	for range enqueueAttempts {
		s := o.Sessions.GetOrCreate(room, o.Sink.Connect)
		err = s.Enqueue(ctx, track)
		if !errors.Is(err, core.ErrSessionClosed) {
			return track, err
		}
	}
	return track, fmt.Errorf("enqueue %q: %w", track.Title, err)
}

func (o *Orchestrator) Skip(room domain.RoomID) error {
	return o.command(room, (*playback.Session).Skip)
}

func (o *Orchestrator) Stop(room domain.RoomID) error {
	return o.command(room, (*playback.Session).Stop)
}

func (o *Orchestrator) Pause(room domain.RoomID) error {
	return o.command(room, (*playback.Session).Pause)
}

func (o *Orchestrator) Resume(room domain.RoomID) error {
	return o.command(room, (*playback.Session).Resume)
}

// command runs op on the room's live session. A session that closed under
// the caller counts as no session at all.
func (o *Orchestrator) command(room domain.RoomID, op func(*playback.Session) error) error {
	s, ok := o.Sessions.Get(room)
	if !ok {
		return core.ErrNoSession
	}
	err := op(s)
	if errors.Is(err, core.ErrSessionClosed) {
		return core.ErrNoSession
	}
	return err
}

// Queue never fails; a room without a session has an empty idle queue.
func (o *Orchestrator) Queue(room domain.RoomID) QueueView {
	view := QueueView{Room: room, State: playback.StateIdle.String(), Tracks: []string{}}
	if s, ok := o.Sessions.Get(room); ok {
		view.State = s.State().String()
		view.Tracks = s.Queue()
	}
	return view
}

func (o *Orchestrator) Rooms() []playback.RoomInfo {
	return o.Sessions.List()
}

// Authorize fails with core.ErrNotInRoom unless sid has joined room.
func (o *Orchestrator) Authorize(sid core.SessionID, room domain.RoomID) error {
	if !o.Presence.IsPresent(sid, room) {
		return core.ErrNotInRoom
	}
	return nil
}
