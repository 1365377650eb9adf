package playback

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Jukebox/internal/core"
	"github.com/dkeye/Jukebox/internal/domain"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// ConnectTimeout bounds a single sink join. Zero means no bound.
	ConnectTimeout time.Duration
}

type sessionDeps struct {
	streamer       core.Streamer
	notifier       core.Notifier
	release        func(*Session)
	connectTimeout time.Duration
}

// RoomInfo is a read-only view of a live session.
type RoomInfo struct {
	Room     domain.RoomID `json:"room"`
	State    string        `json:"state"`
	QueueLen int           `json:"queue_len"`
}

// Registry maps rooms to their live Session. At most one session per room.
// Lock order is session before registry: sessions remove themselves while
// holding their own lock, so the registry never calls into a session with
// mu held.
type Registry struct {
	ctx    context.Context
	cancel context.CancelFunc
	deps   sessionDeps

	mu       sync.RWMutex
	sessions map[domain.RoomID]*Session
}

func NewRegistry(parent context.Context, streamer core.Streamer, notifier core.Notifier, cfg Config) *Registry {
	ctx, cancel := context.WithCancel(parent)
	r := &Registry{
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[domain.RoomID]*Session),
	}
	r.deps = sessionDeps{
		streamer:       streamer,
		notifier:       notifier,
		release:        r.removeSession,
		connectTimeout: cfg.ConnectTimeout,
	}
	return r
}

// GetOrCreate returns the room's session or stores a new idle one.
// Creating a session does not touch the sink.
func (r *Registry) GetOrCreate(room domain.RoomID, connect ConnectFunc) *Session {
	r.mu.RLock()
	s, ok := r.sessions[room]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.sessions[room]; ok {
		return s
	}
	s = newSession(r.ctx, room, connect, r.deps)
	r.sessions[room] = s
	log.Info().Str("module", "playback.registry").Str("room", string(room)).Msg("session created")
	return s
}

func (r *Registry) Get(room domain.RoomID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[room]
	return s, ok
}

// Remove drops the room's session. The caller tears its connection down first.
func (r *Registry) Remove(room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[room]; !ok {
		return
	}
	delete(r.sessions, room)
	log.Info().Str("module", "playback.registry").Str("room", string(room)).Msg("session removed")
}

// Evict closes the room's session without notifying and forgets it.
func (r *Registry) Evict(room domain.RoomID) bool {
	s, ok := r.Get(room)
	if !ok {
		return false
	}
	s.Close()
	r.removeSession(s)
	return true
}

// removeSession removes s only if it is still the room's session.
func (r *Registry) removeSession(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.room]; ok && cur == s {
		delete(r.sessions, s.room)
		log.Info().Str("module", "playback.registry").Str("room", string(s.room)).Msg("session removed")
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List reports every live session sorted by room.
func (r *Registry) List() []RoomInfo {
	out := make([]RoomInfo, 0)
	for _, s := range r.snapshot() {
		out = append(out, RoomInfo{
			Room:     s.Room(),
			State:    s.State().String(),
			QueueLen: len(s.Queue()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Room < out[j].Room })
	return out
}

// Shutdown closes every session and cancels their streams.
func (r *Registry) Shutdown() {
	sessions := r.snapshot()
	for _, s := range sessions {
		s.Close()
	}
	r.mu.Lock()
	r.sessions = make(map[domain.RoomID]*Session)
	r.mu.Unlock()
	r.cancel()
	log.Info().Str("module", "playback.registry").Int("sessions", len(sessions)).Msg("registry shut down")
}

func (r *Registry) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
