package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Jukebox/internal/core"
	"github.com/dkeye/Jukebox/internal/domain"
	"github.com/rs/zerolog/log"
)

type StreamerConfig struct {
	// HTTPTimeout bounds the response headers of a remote locator.
	HTTPTimeout time.Duration
	// Pace is the wall-clock interval between frames. Defaults to the
	// frame duration so sinks receive audio in real time.
	Pace time.Duration
}

// Streamer implements core.Streamer over local files and HTTP locators.
type Streamer struct {
	client *http.Client
	pace   time.Duration
}

func NewStreamer(cfg StreamerConfig) *Streamer {
	pace := cfg.Pace
	if pace <= 0 {
		pace = core.FrameDurationMs * time.Millisecond
	}
	return &Streamer{
		client: &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: cfg.HTTPTimeout,
		}},
		pace: pace,
	}
}

// Start validates the locator and streams it from a new goroutine. Open
// and decode failures are reported through done, never from Start.
func (s *Streamer) Start(ctx context.Context, track domain.Track, conn core.Connection, done func(error)) (core.Stream, error) {
	if track.Locator == "" {
		return nil, ErrEmptyLocator
	}
	if !isRemote(track.Locator) {
		if _, ok := FormatOf(track.Locator); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, track.Locator)
		}
	}

	sctx, cancel := context.WithCancel(ctx)
	st := &stream{cancel: cancel}
	go func() {
		err := s.run(sctx, st, track, conn)
		cancel()
		done(err)
	}()
	return st, nil
}

func (s *Streamer) run(ctx context.Context, st *stream, track domain.Track, conn core.Connection) error {
	logger := log.With().Str("module", "audio.streamer").Str("title", track.Title).Logger()

	src, err := Open(ctx, s.client, track.Locator)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		logger.Error().Err(err).Msg("open failed")
		return err
	}
	defer func() { _ = src.Close() }()

	logger.Info().Int("sample_rate", src.SampleRate()).Msg("streaming")
	frames := newFramer(src)
	ticker := time.NewTicker(s.pace)
	defer ticker.Stop()

	sent := 0
	for {
		if err := st.waitResumed(ctx); err != nil {
			logger.Info().Int("frames", sent).Msg("stream stopped")
			return nil
		}
		frame, err := frames.Next()
		if errors.Is(err, io.EOF) {
			logger.Info().Int("frames", sent).Msg("stream finished")
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			logger.Info().Int("frames", sent).Msg("stream stopped")
			return nil
		case <-ticker.C:
		}

		if err := conn.WriteFrame(frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("write frame: %w", err)
		}
		sent++
	}
}

// stream is the handle returned by Start.
type stream struct {
	cancel context.CancelFunc

	mu      sync.Mutex
	resumed chan struct{} // non-nil while paused
}

func (st *stream) Stop() { st.cancel() }

func (st *stream) Pause() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.resumed == nil {
		st.resumed = make(chan struct{})
	}
}

func (st *stream) Resume() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.resumed != nil {
		close(st.resumed)
		st.resumed = nil
	}
}

func (st *stream) waitResumed(ctx context.Context) error {
	st.mu.Lock()
	ch := st.resumed
	st.mu.Unlock()
	if ch == nil {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}
