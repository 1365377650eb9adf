package playback

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/Jukebox/internal/core"
	"github.com/dkeye/Jukebox/internal/domain"
)

type fakeConn struct {
	mu        sync.Mutex
	onClosed  func()
	teardowns int
}

func (c *fakeConn) WriteFrame([]int16) error { return nil }

func (c *fakeConn) OnClosed(fn func()) {
	c.mu.Lock()
	c.onClosed = fn
	c.mu.Unlock()
}

func (c *fakeConn) Teardown() {
	c.mu.Lock()
	c.teardowns++
	c.mu.Unlock()
}

func (c *fakeConn) Teardowns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.teardowns
}

// lose simulates the sink dropping the connection.
func (c *fakeConn) lose() {
	c.mu.Lock()
	fn := c.onClosed
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type fakeSink struct {
	mu    sync.Mutex
	err   error
	conns []*fakeConn
}

func (s *fakeSink) Connect(_ context.Context, _ domain.RoomID) (core.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	c := &fakeConn{}
	s.conns = append(s.conns, c)
	return c, nil
}

func (s *fakeSink) last() *fakeConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.conns) == 0 {
		return nil
	}
	return s.conns[len(s.conns)-1]
}

type fakeStream struct {
	st    *fakeStreamer
	track domain.Track
	done  func(error)

	mu      sync.Mutex
	stopped bool
	paused  bool
}

func (f *fakeStream) Stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeStream) Pause() {
	f.mu.Lock()
	f.paused = true
	f.mu.Unlock()
}

func (f *fakeStream) Resume() {
	f.mu.Lock()
	f.paused = false
	f.mu.Unlock()
}

func (f *fakeStream) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *fakeStream) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

// finish reports the end of the stream the way the streaming goroutine does.
func (f *fakeStream) finish(err error) {
	f.st.mu.Lock()
	f.st.active--
	f.st.mu.Unlock()
	f.done(err)
}

type fakeStreamer struct {
	mu        sync.Mutex
	startErr  map[string]error
	streams   []*fakeStream
	active    int
	maxActive int
}

func (s *fakeStreamer) Start(_ context.Context, t domain.Track, _ core.Connection, done func(error)) (core.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.startErr[t.Title]; err != nil {
		return nil, err
	}
	st := &fakeStream{st: s, track: t, done: done}
	s.streams = append(s.streams, st)
	s.active++
	if s.active > s.maxActive {
		s.maxActive = s.active
	}
	return st, nil
}

func (s *fakeStreamer) last() *fakeStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.streams) == 0 {
		return nil
	}
	return s.streams[len(s.streams)-1]
}

func (s *fakeStreamer) started() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.streams))
	for _, st := range s.streams {
		out = append(out, st.track.Title)
	}
	return out
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs map[domain.RoomID][]string
}

func (n *fakeNotifier) Send(room domain.RoomID, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.msgs == nil {
		n.msgs = make(map[domain.RoomID][]string)
	}
	n.msgs[room] = append(n.msgs[room], text)
}

func (n *fakeNotifier) of(room domain.RoomID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs[room]...)
}

type harness struct {
	sink     *fakeSink
	streamer *fakeStreamer
	notifier *fakeNotifier
	reg      *Registry
}

func newHarness() *harness {
	h := &harness{
		sink:     &fakeSink{},
		streamer: &fakeStreamer{startErr: map[string]error{}},
		notifier: &fakeNotifier{},
	}
	h.reg = NewRegistry(context.Background(), h.streamer, h.notifier, Config{})
	return h
}

func (h *harness) session(room domain.RoomID) *Session {
	return h.reg.GetOrCreate(room, h.sink.Connect)
}

func track(title string) domain.Track {
	return domain.Track{Title: title, Locator: "/music/" + title + ".mp3"}
}

var errBoom = errors.New("boom")
