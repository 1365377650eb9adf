package sfu

import (
	"errors"
	"io"
	"sync/atomic"

	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

type TrackState int32

const (
	TrackStateOk TrackState = iota
	TrackStateMuted
	TrackStateDelete
)

// OutTrack represents a single outgoing track to a listener.
type OutTrack struct {
	Track  *webrtc.TrackLocalStaticRTP
	Sender *webrtc.RTPSender
	state  atomic.Int32 // Zero by default (TrackStateOk)
}

func NewOutTrack(track *webrtc.TrackLocalStaticRTP, sender *webrtc.RTPSender) *OutTrack {
	return &OutTrack{Track: track, Sender: sender}
}

func (ot *OutTrack) GetState() TrackState {
	return TrackState(ot.state.Load())
}

func (ot *OutTrack) MarkOk() {
	ot.state.Store(int32(TrackStateOk))
}

func (ot *OutTrack) MarkMuted() {
	ot.state.Store(int32(TrackStateMuted))
}

func (ot *OutTrack) MarkDelete() {
	ot.state.Store(int32(TrackStateDelete))
}

// readRTCP drains the sender's RTCP until the sender stops. pion needs the reads
// for interceptors to run; receiver reports are logged at debug.
func (ot *OutTrack) readRTCP(logger *zerolog.Logger) {
	if ot.Sender == nil {
		return
	}
	for {
		pkts, _, err := ot.Sender.ReadRTCP()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug().Err(err).Msg("rtcp read stopped")
			}
			return
		}
		for _, pkt := range pkts {
			logRTCP(pkt, logger)
		}
	}
}

func logRTCP(pkt rtcp.Packet, logger *zerolog.Logger) {
	switch p := pkt.(type) {
	case *rtcp.ReceiverReport:
		for _, r := range p.Reports {
			logger.Debug().
				Uint32("ssrc", r.SSRC).
				Uint8("fraction_lost", r.FractionLost).
				Uint32("jitter", r.Jitter).
				Msg("receiver report")
		}
	case *rtcp.Goodbye:
		logger.Debug().Msg("listener said goodbye")
	}
}
