package app

import (
	"context"
	"sync"

	"github.com/dkeye/Jukebox/internal/core"
	"github.com/dkeye/Jukebox/internal/domain"
	"github.com/rs/zerolog/log"
)

type presenceEntry struct {
	Room    domain.RoomID
	Session core.MemberSession
	Cancel  context.CancelFunc
}

// Presence tracks which signal session sits in which room. The playback
// layer asks it whether a caller may command a room, and the notifier
// asks it whom to tell.
type Presence struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*presenceEntry
	users    map[core.SessionID]*domain.User
}

func NewPresence() *Presence {
	return &Presence{
		sessions: make(map[core.SessionID]*presenceEntry),
		users:    make(map[core.SessionID]*domain.User),
	}
}

func (p *Presence) GetOrCreateUser(sid core.SessionID) *domain.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := p.users[sid]; ok {
		return u
	}
	u := domain.NewGuest(domain.UserID(sid))
	p.users[sid] = u
	log.Info().Str("module", "app.presence").Str("sid", string(sid)).Msg("created new user")
	return u
}

func (p *Presence) UpdateUsername(sid core.SessionID, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[sid]
	if !ok {
		u = domain.NewGuest(domain.UserID(sid))
		p.users[sid] = u
	}
	if err := u.SetUsername(name); err != nil {
		return err
	}
	log.Info().Str("module", "app.presence").Str("sid", string(sid)).Str("username", name).Msg("updated username")
	return nil
}

// BindSignal registers a connected signal session outside of any room.
// A reconnect under the same sid cancels the previous connection.
func (p *Presence) BindSignal(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) {
	p.mu.Lock()
	prev := p.sessions[sid]
	var room domain.RoomID
	if prev != nil {
		room = prev.Room
	}
	sess.Meta().Room = room
	p.sessions[sid] = &presenceEntry{Room: room, Session: sess, Cancel: cancel}
	p.mu.Unlock()

	if prev != nil && prev.Cancel != nil {
		prev.Cancel()
	}
	log.Info().Str("module", "app.presence").Str("sid", string(sid)).Msg("bound signal")
}

func (p *Presence) GetSession(sid core.SessionID) (core.MemberSession, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if e, ok := p.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

// Unbind forgets sid, but only while it still refers to sess.
func (p *Presence) Unbind(sid core.SessionID, sess core.MemberSession) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.sessions[sid]
	if !ok || e.Session != sess {
		return false
	}
	delete(p.sessions, sid)
	log.Info().Str("module", "app.presence").Str("sid", string(sid)).Msg("unbind session")
	return true
}

func (p *Presence) RoomOf(sid core.SessionID) (domain.RoomID, core.MemberSession, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.sessions[sid]
	if !ok || e.Room == "" {
		return "", nil, false
	}
	return e.Room, e.Session, true
}

// IsPresent reports whether sid has joined room.
func (p *Presence) IsPresent(sid core.SessionID, room domain.RoomID) bool {
	got, _, ok := p.RoomOf(sid)
	return ok && got == room
}

func (p *Presence) UpdateRoom(sid core.SessionID, room domain.RoomID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.sessions[sid]
	if !ok {
		return false
	}
	e.Room = room
	e.Session.Meta().Room = room
	log.Info().Str("module", "app.presence").Str("sid", string(sid)).Str("room", string(room)).Msg("updated room")
	return true
}

func (p *Presence) RemoveRoom(sid core.SessionID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.sessions[sid]; ok {
		e.Room = ""
		e.Session.Meta().Room = ""
	}
	log.Info().Str("module", "app.presence").Str("sid", string(sid)).Msg("removed room association")
}

type MemberSnap struct {
	SID     core.SessionID
	Session core.MemberSession
}

func (p *Presence) MembersOfRoom(room domain.RoomID) []MemberSnap {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]MemberSnap, 0, len(p.sessions))
	for sid, e := range p.sessions {
		if e.Room == room {
			out = append(out, MemberSnap{SID: sid, Session: e.Session})
		}
	}
	return out
}

// CountRooms returns the number of distinct occupied rooms.
func (p *Presence) CountRooms() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	seen := make(map[domain.RoomID]struct{})
	for _, e := range p.sessions {
		if e.Room != "" {
			seen[e.Room] = struct{}{}
		}
	}
	return len(seen)
}

func (p *Presence) Cancel(sid core.SessionID) bool {
	p.mu.RLock()
	e, ok := p.sessions[sid]
	p.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.presence").Str("sid", string(sid)).Msg("canceled session")
	return true
}
