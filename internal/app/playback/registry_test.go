package playback

import "testing"

func TestGetOrCreateReturnsSameSession(t *testing.T) {
	h := newHarness()

	first := h.session("r1")
	second := h.session("r1")
	other := h.session("r2")

	if first != second {
		t.Fatal("expected the same session for the same room")
	}
	if first == other {
		t.Fatal("rooms share a session")
	}
	if h.reg.Len() != 2 {
		t.Fatalf("len = %d, want 2", h.reg.Len())
	}
	if h.sink.last() != nil {
		t.Fatal("creating a session must not touch the sink")
	}
	if first.State() != StateIdle {
		t.Fatalf("new session state = %s", first.State())
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	h := newHarness()
	h.session("r1")

	h.reg.Remove("r1")
	h.reg.Remove("r1")

	if _, ok := h.reg.Get("r1"); ok {
		t.Fatal("session still registered")
	}
}

func TestStaleSessionDoesNotEvictSuccessor(t *testing.T) {
	h := newHarness()
	old := h.session("r1")
	h.reg.Remove("r1")
	fresh := h.session("r1")

	h.reg.removeSession(old)

	got, ok := h.reg.Get("r1")
	if !ok || got != fresh {
		t.Fatal("successor was evicted by a stale session")
	}
}

func TestListAndShutdown(t *testing.T) {
	h := newHarness()
	mustEnqueue(t, h.session("b"), track("B1"))
	mustEnqueue(t, h.session("a"), track("A1"))
	mustEnqueue(t, h.session("a"), track("A2"))

	list := h.reg.List()
	if len(list) != 2 || list[0].Room != "a" || list[0].QueueLen != 2 || list[0].State != "playing" {
		t.Fatalf("list = %+v", list)
	}

	h.reg.Shutdown()

	if h.reg.Len() != 0 {
		t.Fatalf("len after shutdown = %d", h.reg.Len())
	}
	for _, c := range h.sink.conns {
		if c.Teardowns() != 1 {
			t.Fatalf("teardowns = %d, want 1", c.Teardowns())
		}
	}
	for _, st := range h.streamer.streams {
		if !st.Stopped() {
			t.Fatal("stream left running after shutdown")
		}
	}
}

func TestEvictClosesSession(t *testing.T) {
	h := newHarness()
	s := h.session("r1")
	mustEnqueue(t, s, track("T1"))

	if !h.reg.Evict("r1") {
		t.Fatal("evict reported no session")
	}
	if h.reg.Evict("r1") {
		t.Fatal("second evict found a session")
	}
	if _, ok := h.reg.Get("r1"); ok {
		t.Fatal("session still registered")
	}
	if h.sink.last().Teardowns() != 1 || !h.streamer.last().Stopped() {
		t.Fatal("evicted session left resources behind")
	}
	if s.State() != StateIdle {
		t.Fatalf("state = %s, want idle", s.State())
	}
}
