package rtc

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/dkeye/Jukebox/internal/app/sfu"
	"github.com/dkeye/Jukebox/internal/core"
	"github.com/dkeye/Jukebox/internal/domain"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/hraban/opus.v2"
)

const (
	opusPayloadType = 111
	maxOpusPacket   = 4000
)

type encoder interface {
	Encode(pcm []int16, data []byte) (int, error)
}

// Sink feeds a room's relay with Opus over RTP.
type Sink struct {
	Relays  *sfu.RelayManager
	Bitrate int
}

func NewSink(relays *sfu.RelayManager, bitrate int) *Sink {
	return &Sink{Relays: relays, Bitrate: bitrate}
}

func (s *Sink) Connect(ctx context.Context, room domain.RoomID) (core.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	enc, err := opus.NewEncoder(core.SampleRate, core.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}
	if s.Bitrate > 0 {
		if err := enc.SetBitrate(s.Bitrate); err != nil {
			return nil, fmt.Errorf("set opus bitrate: %w", err)
		}
	}

	feed, err := s.Relays.Attach(room)
	if err != nil {
		return nil, err
	}
	c := newConnection(s.Relays, feed, enc, log.With().Str("module", "rtc.sink").Str("room", string(room)).Logger())
	c.logger.Info().Int("bitrate", s.Bitrate).Msg("sink connected")
	return c, nil
}

// connection packetizes each encoded frame into one RTP packet.
type connection struct {
	relays *sfu.RelayManager
	feed   *sfu.Feed
	enc    encoder
	logger zerolog.Logger

	mu        sync.Mutex
	buf       []byte
	seq       uint16
	timestamp uint32
	ssrc      uint32
	torn      bool
}

func newConnection(relays *sfu.RelayManager, feed *sfu.Feed, enc encoder, logger zerolog.Logger) *connection {
	return &connection{
		relays:    relays,
		feed:      feed,
		enc:       enc,
		logger:    logger,
		buf:       make([]byte, maxOpusPacket),
		seq:       uint16(rand.Uint32()),
		timestamp: rand.Uint32(),
		ssrc:      rand.Uint32(),
	}
}

func (c *connection) WriteFrame(pcm []int16) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.torn {
		return sfu.ErrFeedClosed
	}

	n, err := c.enc.Encode(pcm, c.buf)
	if err != nil {
		return fmt.Errorf("opus encode: %w", err)
	}
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    opusPayloadType,
			SequenceNumber: c.seq,
			Timestamp:      c.timestamp,
			SSRC:           c.ssrc,
		},
		Payload: append([]byte(nil), c.buf[:n]...),
	}
	c.seq++
	c.timestamp += core.FrameSamples
	return c.feed.WriteRTP(pkt)
}

func (c *connection) OnClosed(fn func()) {
	c.feed.OnLost(fn)
}

func (c *connection) Teardown() {
	c.mu.Lock()
	if c.torn {
		c.mu.Unlock()
		return
	}
	c.torn = true
	c.mu.Unlock()

	c.relays.Detach(c.feed)
	c.logger.Info().Msg("sink connection torn down")
}
