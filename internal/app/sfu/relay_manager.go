package sfu

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dkeye/Jukebox/internal/core"
	"github.com/dkeye/Jukebox/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var (
	ErrFeedBusy   = errors.New("room already has a feed")
	ErrFeedClosed = errors.New("feed closed")
)

// Codec is what every OutTrack advertises to listeners.
var Codec = webrtc.RTPCodecCapability{
	MimeType:  webrtc.MimeTypeOpus,
	ClockRate: core.SampleRate,
	Channels:  core.Channels,
}

type RelayManager struct {
	mu     sync.RWMutex
	relays map[domain.RoomID]*Relay
}

func NewRelayManager() *RelayManager {
	return &RelayManager{
		relays: make(map[domain.RoomID]*Relay),
	}
}

// getOrCreateLocked expects m.mu to be held.
func (m *RelayManager) getOrCreateLocked(room domain.RoomID) *Relay {
	if r, ok := m.relays[room]; ok {
		return r
	}
	logger := log.With().Str("module", "relay").Str("room", string(room)).Logger()
	r := NewRelay(room, logger)
	m.relays[room] = r
	logger.Info().Msg("relay created")
	return r
}

// Attach claims the producing side of a room's relay.
func (m *RelayManager) Attach(room domain.RoomID) (*Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.getOrCreateLocked(room)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.feed != nil {
		return nil, fmt.Errorf("%w: %s", ErrFeedBusy, room)
	}
	f := &Feed{relay: r}
	r.feed = f
	r.logger.Info().Int("listeners", len(r.outTracks)).Msg("feed attached")
	return f, nil
}

// Detach releases a feed without firing its loss callback.
func (m *RelayManager) Detach(f *Feed) {
	f.close(false)
	r := f.relay
	r.mu.Lock()
	if r.feed == f {
		r.feed = nil
	}
	r.mu.Unlock()
	r.logger.Info().Msg("feed detached")
	m.pruneIfIdle(r)
}

// Subscribe adds an outgoing track for dst on lc and starts draining its RTCP.
func (m *RelayManager) Subscribe(room domain.RoomID, dst core.SessionID, lc core.ListenerConnection) error {
	track, err := webrtc.NewTrackLocalStaticRTP(Codec, "audio", "jukebox-"+string(room))
	if err != nil {
		return fmt.Errorf("create local track: %w", err)
	}
	sender, err := lc.AddLocalTrack(track)
	if err != nil {
		return fmt.Errorf("add local track: %w", err)
	}

	ot := NewOutTrack(track, sender)
	m.mu.Lock()
	r := m.getOrCreateLocked(room)
	r.AddOutTrack(dst, ot)
	m.mu.Unlock()

	logger := r.logger.With().Str("dst_sid", string(dst)).Logger()
	go ot.readRTCP(&logger)
	logger.Info().Msg("listener subscribed")
	return nil
}

// MarkSubscriberDelete marks the listener's OutTrack as TrackStateDelete.
func (m *RelayManager) MarkSubscriberDelete(room domain.RoomID, dst core.SessionID) {
	m.mu.RLock()
	r, ok := m.relays[room]
	m.mu.RUnlock()
	if !ok {
		return
	}

	r.mu.Lock()
	if ot, ok := r.outTracks[dst]; ok {
		ot.MarkDelete()
		delete(r.outTracks, dst)
	}
	r.mu.Unlock()
	m.pruneIfIdle(r)
}

// StopRelay drops every listener of room and reports the loss to its feed.
func (m *RelayManager) StopRelay(room domain.RoomID) {
	m.mu.Lock()
	r, ok := m.relays[room]
	if ok {
		delete(m.relays, room)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	r.markAllDelete()

	r.mu.Lock()
	f := r.feed
	r.feed = nil
	r.mu.Unlock()
	r.logger.Info().Msg("relay stopped")

	if f != nil {
		if lost := f.close(true); lost != nil {
			lost()
		}
	}
}

// HasRelay reports whether a relay exists for room.
func (m *RelayManager) HasRelay(room domain.RoomID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.relays[room]
	return ok
}

func (m *RelayManager) Listeners(room domain.RoomID) int {
	m.mu.RLock()
	r, ok := m.relays[room]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	return r.Listeners()
}

func (m *RelayManager) Rooms() []domain.RoomID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.RoomID, 0, len(m.relays))
	for room := range m.relays {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *RelayManager) pruneIfIdle(r *Relay) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.relays[r.Room] == r && r.idle() {
		delete(m.relays, r.Room)
		r.logger.Info().Msg("relay removed")
	}
}
