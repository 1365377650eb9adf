package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Jukebox/internal/domain"
)

type countingConn struct {
	mu     sync.Mutex
	frames int
	err    error
	first  chan struct{}
}

func newCountingConn() *countingConn {
	return &countingConn{first: make(chan struct{})}
}

func (c *countingConn) WriteFrame(frame []int16) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.frames++
	if c.frames == 1 {
		close(c.first)
	}
	return nil
}

func (c *countingConn) OnClosed(func()) {}
func (c *countingConn) Teardown()       {}

func (c *countingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

func startStream(t *testing.T, s *Streamer, locator string, conn *countingConn) (stop func(), pause func(), resume func(), done <-chan error) {
	t.Helper()
	ch := make(chan error, 1)
	st, err := s.Start(context.Background(), domain.Track{Title: "t", Locator: locator}, conn, func(err error) { ch <- err })
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return st.Stop, st.Pause, st.Resume, ch
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("stream never reported completion")
		return nil
	}
}

func TestStreamPlaysToCompletion(t *testing.T) {
	// 100 ms of audio is five frames.
	p := writeWAV(t, "short.wav", 48000, 2, 4800)
	conn := newCountingConn()
	s := NewStreamer(StreamerConfig{Pace: time.Millisecond})

	_, _, _, done := startStream(t, s, p, conn)
	if err := waitDone(t, done); err != nil {
		t.Fatalf("done(%v), want nil", err)
	}
	if conn.count() != 5 {
		t.Fatalf("frames = %d, want 5", conn.count())
	}
}

func TestStreamStopReportsNil(t *testing.T) {
	p := writeWAV(t, "long.wav", 48000, 2, 48000*5)
	conn := newCountingConn()
	s := NewStreamer(StreamerConfig{Pace: 5 * time.Millisecond})

	stop, _, _, done := startStream(t, s, p, conn)
	<-conn.first
	stop()

	if err := waitDone(t, done); err != nil {
		t.Fatalf("done(%v), want nil", err)
	}
	if conn.count() >= 250 {
		t.Fatal("stream was not interrupted")
	}
}

func TestStreamPauseHoldsFrames(t *testing.T) {
	p := writeWAV(t, "pause.wav", 48000, 2, 4800)
	conn := newCountingConn()
	s := NewStreamer(StreamerConfig{Pace: 2 * time.Millisecond})

	_, pause, resume, done := startStream(t, s, p, conn)
	<-conn.first
	pause()
	time.Sleep(20 * time.Millisecond)
	held := conn.count()
	time.Sleep(30 * time.Millisecond)
	if conn.count() != held {
		t.Fatalf("frames advanced while paused: %d -> %d", held, conn.count())
	}

	resume()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("done(%v), want nil", err)
	}
	if conn.count() != 5 {
		t.Fatalf("frames = %d, want 5", conn.count())
	}
}

func TestStreamStopWhilePaused(t *testing.T) {
	p := writeWAV(t, "paused-stop.wav", 48000, 2, 48000)
	conn := newCountingConn()
	s := NewStreamer(StreamerConfig{Pace: time.Millisecond})

	stop, pause, _, done := startStream(t, s, p, conn)
	<-conn.first
	pause()
	stop()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("done(%v), want nil", err)
	}
}

func TestStreamFailures(t *testing.T) {
	s := NewStreamer(StreamerConfig{Pace: time.Millisecond})

	t.Run("unsupported extension fails at start", func(t *testing.T) {
		_, err := s.Start(context.Background(), domain.Track{Title: "x", Locator: "/music/notes.txt"}, newCountingConn(), func(error) {
			t.Error("done must not be called")
		})
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("empty locator fails at start", func(t *testing.T) {
		_, err := s.Start(context.Background(), domain.Track{Title: "x"}, newCountingConn(), func(error) {})
		if !errors.Is(err, ErrEmptyLocator) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("missing file is reported through done", func(t *testing.T) {
		conn := newCountingConn()
		_, _, _, done := startStream(t, s, "/does/not/exist.wav", conn)
		if err := waitDone(t, done); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("write errors are reported through done", func(t *testing.T) {
		p := writeWAV(t, "write-err.wav", 48000, 2, 4800)
		conn := newCountingConn()
		conn.err = errors.New("sink gone")
		_, _, _, done := startStream(t, s, p, conn)
		if err := waitDone(t, done); err == nil {
			t.Fatal("expected an error")
		}
	})
}
