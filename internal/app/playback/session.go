package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Jukebox/internal/core"
	"github.com/dkeye/Jukebox/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ConnectFunc joins the audio sink for a room.
type ConnectFunc func(ctx context.Context, room domain.RoomID) (core.Connection, error)

// Session owns one room's queue and its sink connection.
// Every transition runs under mu, including the callbacks fired by the
// streaming goroutine, so no two transitions of a room ever interleave.
type Session struct {
	room     domain.RoomID
	ctx      context.Context
	connect  ConnectFunc
	streamer core.Streamer
	notifier core.Notifier
	release  func(*Session)
	timeout  time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	state  State
	closed bool
	queue  []domain.Track
	conn   core.Connection

	stream   core.Stream
	current  domain.Track
	gen      uint64
	stopping bool
	// headActive is true while queue[0] is the track being streamed.
	// Stop clears the queue under a live stream; the completion that follows
	// must then not pop whatever was enqueued in between.
	headActive bool
}

func newSession(ctx context.Context, room domain.RoomID, connect ConnectFunc, deps sessionDeps) *Session {
	return &Session{
		room:     room,
		ctx:      ctx,
		connect:  connect,
		streamer: deps.streamer,
		notifier: deps.notifier,
		release:  deps.release,
		timeout:  deps.connectTimeout,
		logger: log.With().
			Str("module", "playback.session").
			Str("room", string(room)).
			Logger(),
	}
}

func (s *Session) Room() domain.RoomID { return s.room }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Queue returns the titles in playback order; the head is the current track.
func (s *Session) Queue() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.queue))
	for _, t := range s.queue {
		out = append(out, t.Title)
	}
	return out
}

// Enqueue appends a track. An idle session joins the sink and starts
// playing; a busy one only reports the addition.
func (s *Session) Enqueue(ctx context.Context, track domain.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.ErrSessionClosed
	}
	s.queue = append(s.queue, track)

	switch s.state {
	case StatePlaying, StatePaused:
		s.logger.Info().Str("title", track.Title).Int("queue_len", len(s.queue)).Msg("track queued")
		s.notify(fmt.Sprintf("🎶 Added to queue: %s", track.Title))
		return nil
	default:
		return s.connectAndPlay(ctx)
	}
}

// Skip stops the active stream; the completion callback advances the queue.
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.ErrSessionClosed
	}
	if !s.streaming() || s.stopping {
		return s.invalid("skip")
	}
	s.stopping = true
	s.logger.Info().Str("title", s.current.Title).Msg("skip requested")
	s.notify(fmt.Sprintf("⏭ Skipped: %s", s.current.Title))
	s.stream.Stop()
	return nil
}

// Stop clears the queue and stops the active stream. The session tears
// down once the stream reports back.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.ErrSessionClosed
	}
	if !s.streaming() || (s.stopping && len(s.queue) == 0) {
		return s.invalid("stop")
	}
	s.queue = nil
	s.headActive = false
	s.logger.Info().Msg("stop requested")
	s.notify("⏹ Stopped and cleared the queue.")
	if !s.stopping {
		s.stopping = true
		s.stream.Stop()
	}
	return nil
}

func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.ErrSessionClosed
	}
	if s.state != StatePlaying || s.stream == nil || s.stopping {
		return s.invalid("pause")
	}
	s.stream.Pause()
	s.state = StatePaused
	s.logger.Info().Str("title", s.current.Title).Msg("paused")
	s.notify("⏸ Paused.")
	return nil
}

func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.ErrSessionClosed
	}
	if s.state != StatePaused || s.stream == nil || s.stopping {
		return s.invalid("resume")
	}
	s.stream.Resume()
	s.state = StatePlaying
	s.logger.Info().Str("title", s.current.Title).Msg("resumed")
	s.notify("▶️ Resumed.")
	return nil
}

// Close tears the session down without notifying the room. Used at shutdown.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.stream != nil {
		s.stream.Stop()
		s.stream = nil
	}
	s.queue = nil
	s.headActive = false
	s.teardownLocked()
	s.logger.Info().Msg("session closed")
}

func (s *Session) connectAndPlay(ctx context.Context) error {
	s.state = StateConnecting
	s.logger.Info().Msg("connecting to sink")

	cctx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	conn, err := s.connect(cctx, s.room)
	if err != nil {
		s.logger.Error().Err(err).Msg("sink connect failed")
		s.queue = nil
		s.teardownLocked()
		s.notify("❌ Could not connect to the audio sink.")
		s.release(s)
		return fmt.Errorf("%w: %v", core.ErrConnectFailed, err)
	}

	s.conn = conn
	conn.OnClosed(func() { s.connectionLost(conn) })
	s.playHeadLocked()
	return nil
}

// playHeadLocked starts the head of the queue. A track the streamer
// refuses outright is dropped and the next one is tried; an empty queue
// ends the session.
func (s *Session) playHeadLocked() {
	for len(s.queue) > 0 {
		head := s.queue[0]
		s.gen++
		gen := s.gen

		stream, err := s.streamer.Start(s.ctx, head, s.conn, func(err error) {
			s.streamDone(gen, err)
		})
		if err != nil {
			s.logger.Error().Err(err).Str("title", head.Title).Msg("stream start failed")
			s.queue = s.queue[1:]
			s.notify(fmt.Sprintf("⚠️ Could not play %s: %v", head.Title, err))
			continue
		}

		s.stream = stream
		s.current = head
		s.headActive = true
		s.stopping = false
		s.state = StatePlaying
		s.logger.Info().Str("title", head.Title).Uint64("gen", gen).Msg("now playing")
		s.notify(fmt.Sprintf("▶️ Now playing: %s", head.Title))
		return
	}
	s.finishLocked()
}

// streamDone is the single entry point for the streaming goroutine.
func (s *Session) streamDone(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen || s.stream == nil {
		s.logger.Debug().Uint64("gen", gen).Msg("stale stream callback ignored")
		return
	}
	s.stream = nil
	s.stopping = false

	if err != nil {
		s.handleStreamError(err)
		return
	}
	s.advance()
}

// advance pops the finished track and plays the next one, or idles the
// session. Natural completion, skip and stop all end up here.
func (s *Session) advance() {
	s.popHead()
	s.playHeadLocked()
}

// handleStreamError drops the failed track without retrying it.
func (s *Session) handleStreamError(err error) {
	s.logger.Error().Err(err).Str("title", s.current.Title).Msg("stream failed")
	s.popHead()
	s.notify(fmt.Sprintf("⚠️ Playback of %s failed: %v", s.current.Title, err))
	s.playHeadLocked()
}

func (s *Session) popHead() {
	if s.headActive && len(s.queue) > 0 {
		s.queue = s.queue[1:]
	}
	s.headActive = false
}

func (s *Session) finishLocked() {
	s.teardownLocked()
	s.logger.Info().Msg("queue finished")
	s.notify("⏹ Queue finished.")
	s.release(s)
}

func (s *Session) connectionLost(conn core.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.conn != conn {
		return
	}
	s.logger.Warn().Msg("sink connection lost")
	if s.stream != nil {
		s.stream.Stop()
		s.stream = nil
	}
	s.queue = nil
	s.headActive = false
	s.teardownLocked()
	s.notify("🔌 Connection lost, queue cleared.")
	s.release(s)
}

// teardownLocked closes the connection and marks the session dead. The
// session never reopens; the registry hands out a fresh one.
func (s *Session) teardownLocked() {
	if s.conn != nil {
		s.conn.Teardown()
		s.conn = nil
	}
	s.state = StateIdle
	s.closed = true
	s.stopping = false
}

func (s *Session) streaming() bool {
	return (s.state == StatePlaying || s.state == StatePaused) && s.stream != nil
}

func (s *Session) invalid(op string) error {
	err := &TransitionError{Op: op, From: s.state, Stopping: s.stopping && !s.headActive}
	s.logger.Debug().Str("op", op).Str("state", s.state.String()).Msg("invalid transition")
	return err
}

func (s *Session) notify(text string) {
	if s.notifier != nil {
		s.notifier.Send(s.room, text)
	}
}
