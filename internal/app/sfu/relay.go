package sfu

import (
	"maps"
	"sync"

	"github.com/dkeye/Jukebox/internal/core"
	"github.com/dkeye/Jukebox/internal/domain"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"
)

// Relay fans one room's RTP stream out to every listener in the room.
type Relay struct {
	Room domain.RoomID

	mu        sync.RWMutex
	outTracks map[core.SessionID]*OutTrack
	feed      *Feed

	logger zerolog.Logger
}

func NewRelay(room domain.RoomID, logger zerolog.Logger) *Relay {
	return &Relay{
		Room:      room,
		outTracks: make(map[core.SessionID]*OutTrack),
		logger:    logger,
	}
}

// forward writes pkt to every live OutTrack and drops the dead ones.
func (r *Relay) forward(pkt *rtp.Packet) {
	r.mu.RLock()
	snapshot := maps.Clone(r.outTracks)
	r.mu.RUnlock()

	dirty := make([]core.SessionID, 0, len(snapshot))
	for dstSID, ot := range snapshot {
		switch ot.GetState() {
		case TrackStateDelete:
			dirty = append(dirty, dstSID)
		case TrackStateMuted:
		case TrackStateOk:
			if err := ot.Track.WriteRTP(pkt); err != nil {
				r.logger.Error().
					Err(err).
					Str("dst_sid", string(dstSID)).
					Msg("relay write RTP error, marking outtrack as delete")
				ot.MarkDelete()
				dirty = append(dirty, dstSID)
			}
		}
	}

	// Cleanup is done outside the RLock.
	if len(dirty) > 0 {
		r.cleanupDeleted(dirty)
	}
}

func (r *Relay) cleanupDeleted(dirty []core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sid := range dirty {
		if ot, ok := r.outTracks[sid]; ok && ot.GetState() == TrackStateDelete {
			delete(r.outTracks, sid)
		}
	}
}

func (r *Relay) markAllDelete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ot := range r.outTracks {
		ot.MarkDelete()
	}
}

func (r *Relay) AddOutTrack(dst core.SessionID, ot *OutTrack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.outTracks[dst]; ok {
		old.MarkDelete()
	}
	r.outTracks[dst] = ot
}

// Listeners counts the OutTracks that are not marked for deletion.
func (r *Relay) Listeners() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, ot := range r.outTracks {
		if ot.GetState() != TrackStateDelete {
			n++
		}
	}
	return n
}

func (r *Relay) idle() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.feed == nil && len(r.outTracks) == 0
}

// Feed is the producing side of a relay, held by one sink connection.
type Feed struct {
	relay *Relay

	mu     sync.Mutex
	onLost func()
	done   bool
}

// WriteRTP forwards pkt to the room's listeners.
func (f *Feed) WriteRTP(pkt *rtp.Packet) error {
	f.mu.Lock()
	done := f.done
	f.mu.Unlock()
	if done {
		return ErrFeedClosed
	}
	f.relay.forward(pkt)
	return nil
}

// OnLost registers fn to run when the relay is stopped under the feed.
func (f *Feed) OnLost(fn func()) {
	f.mu.Lock()
	f.onLost = fn
	f.mu.Unlock()
}

// close marks the feed done and returns the loss callback if it should fire.
func (f *Feed) close(lost bool) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return nil
	}
	f.done = true
	if !lost {
		return nil
	}
	return f.onLost
}
