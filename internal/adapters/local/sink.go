// Package local plays a room on the host's sound card.
package local

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dkeye/Jukebox/internal/core"
	"github.com/dkeye/Jukebox/internal/domain"
	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog/log"
)

var ErrDeviceBusy = errors.New("sound card is playing another room")

type player interface {
	Play()
	Close() error
}

type newPlayerFunc func(r io.Reader) (player, error)

// Sink hands the sound card to one room at a time. oto allows a single
// context per process, so it is created on first use and kept.
type Sink struct {
	lifetime  context.Context
	newPlayer newPlayerFunc

	mu     sync.Mutex
	holder domain.RoomID
}

// NewSink returns a sink whose connections are lost when ctx ends.
func NewSink(ctx context.Context) *Sink {
	return &Sink{lifetime: ctx, newPlayer: otoPlayer()}
}

func otoPlayer() newPlayerFunc {
	var (
		once   sync.Once
		otoCtx *oto.Context
		err    error
	)
	return func(r io.Reader) (player, error) {
		once.Do(func() {
			var ready chan struct{}
			otoCtx, ready, err = oto.NewContext(&oto.NewContextOptions{
				SampleRate:   core.SampleRate,
				ChannelCount: core.Channels,
				Format:       oto.FormatSignedInt16LE,
			})
			if err == nil {
				<-ready
			}
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create oto context: %w", err)
		}
		return otoCtx.NewPlayer(r), nil
	}
}

func (s *Sink) Connect(ctx context.Context, room domain.RoomID) (core.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.holder != "" {
		holder := s.holder
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDeviceBusy, holder)
	}
	s.holder = room
	s.mu.Unlock()

	pr, pw := io.Pipe()
	p, err := s.newPlayer(pr)
	if err != nil {
		s.release(room)
		_ = pr.Close()
		return nil, err
	}
	p.Play()

	c := &connection{sink: s, room: room, player: p, pr: pr, pw: pw, done: make(chan struct{})}
	go c.watch(s.lifetime)
	log.Info().Str("module", "local.sink").Str("room", string(room)).Msg("sound card claimed")
	return c, nil
}

func (s *Sink) release(room domain.RoomID) {
	s.mu.Lock()
	if s.holder == room {
		s.holder = ""
	}
	s.mu.Unlock()
}

type connection struct {
	sink   *Sink
	room   domain.RoomID
	player player
	pr     *io.PipeReader
	pw     *io.PipeWriter
	buf    []byte

	mu       sync.Mutex
	onClosed func()
	torn     bool
	done     chan struct{}
}

// WriteFrame blocks until the player has consumed the frame.
func (c *connection) WriteFrame(pcm []int16) error {
	if cap(c.buf) < len(pcm)*2 {
		c.buf = make([]byte, len(pcm)*2)
	}
	out := c.buf[:len(pcm)*2]
	for i, v := range pcm {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	if _, err := c.pw.Write(out); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}
	return nil
}

func (c *connection) OnClosed(fn func()) {
	c.mu.Lock()
	c.onClosed = fn
	c.mu.Unlock()
}

func (c *connection) Teardown() {
	if !c.close() {
		return
	}
	log.Info().Str("module", "local.sink").Str("room", string(c.room)).Msg("sound card released")
}

// watch reports the connection lost when the sink's lifetime ends first.
func (c *connection) watch(lifetime context.Context) {
	select {
	case <-c.done:
		return
	case <-lifetime.Done():
	}
	c.mu.Lock()
	fn := c.onClosed
	c.mu.Unlock()
	if !c.close() {
		return
	}
	log.Warn().Str("module", "local.sink").Str("room", string(c.room)).Msg("sound card connection lost")
	if fn != nil {
		fn()
	}
}

func (c *connection) close() bool {
	c.mu.Lock()
	if c.torn {
		c.mu.Unlock()
		return false
	}
	c.torn = true
	close(c.done)
	c.mu.Unlock()

	_ = c.pw.Close()
	_ = c.player.Close()
	_ = c.pr.Close()
	c.sink.release(c.room)
	return true
}
