package sfu

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/Jukebox/internal/core"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

type fakeListener struct {
	addErr error
	tracks []*webrtc.TrackLocalStaticRTP
}

func (f *fakeListener) Start(context.Context) error                 { return nil }
func (f *fakeListener) Close()                                      {}
func (f *fakeListener) IsClosed() bool                              { return false }
func (f *fakeListener) AddICECandidate(webrtc.ICECandidateInit) error { return nil }
func (f *fakeListener) OnICECandidate(func(webrtc.ICECandidateInit)) {}
func (f *fakeListener) OnClosed(func())                             {}

func (f *fakeListener) ApplyOfferAndCreateAnswer(webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	return &webrtc.SessionDescription{}, nil
}

func (f *fakeListener) AddLocalTrack(t *webrtc.TrackLocalStaticRTP) (*webrtc.RTPSender, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	f.tracks = append(f.tracks, t)
	return nil, nil
}

func packet(seq uint16) *rtp.Packet {
	return &rtp.Packet{
		Header:  rtp.Header{Version: 2, PayloadType: 111, SequenceNumber: seq},
		Payload: []byte{0xfc, 0xff, 0xfe},
	}
}

func TestAttachIsExclusive(t *testing.T) {
	m := NewRelayManager()

	f, err := m.Attach("lobby")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if _, err := m.Attach("lobby"); !errors.Is(err, ErrFeedBusy) {
		t.Fatalf("second Attach err = %v, want ErrFeedBusy", err)
	}
	if _, err := m.Attach("other"); err != nil {
		t.Fatalf("other room: %v", err)
	}

	m.Detach(f)
	if _, err := m.Attach("lobby"); err != nil {
		t.Fatalf("Attach after Detach: %v", err)
	}
}

func TestStopRelayReportsLoss(t *testing.T) {
	m := NewRelayManager()
	f, err := m.Attach("lobby")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	lost := 0
	f.OnLost(func() { lost++ })

	if err := f.WriteRTP(packet(1)); err != nil {
		t.Fatalf("WriteRTP: %v", err)
	}

	m.StopRelay("lobby")
	m.StopRelay("lobby")
	if lost != 1 {
		t.Fatalf("lost fired %d times, want 1", lost)
	}
	if err := f.WriteRTP(packet(2)); !errors.Is(err, ErrFeedClosed) {
		t.Fatalf("WriteRTP after stop err = %v", err)
	}
	if m.HasRelay("lobby") {
		t.Fatal("relay still registered")
	}

	// Detach of a lost feed is harmless and does not fire again.
	m.Detach(f)
	if lost != 1 {
		t.Fatalf("lost fired %d times after Detach", lost)
	}
}

func TestDetachDoesNotReportLoss(t *testing.T) {
	m := NewRelayManager()
	f, _ := m.Attach("lobby")
	f.OnLost(func() { t.Fatal("loss reported on a voluntary detach") })

	m.Detach(f)
	if m.HasRelay("lobby") {
		t.Fatal("idle relay not pruned")
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	m := NewRelayManager()
	a, b := &fakeListener{}, &fakeListener{}

	if err := m.Subscribe("lobby", "a", a); err != nil {
		t.Fatalf("Subscribe a: %v", err)
	}
	if err := m.Subscribe("lobby", "b", b); err != nil {
		t.Fatalf("Subscribe b: %v", err)
	}
	if len(a.tracks) != 1 || a.tracks[0].Codec().MimeType != webrtc.MimeTypeOpus {
		t.Fatalf("listener got tracks %v", a.tracks)
	}
	if m.Listeners("lobby") != 2 {
		t.Fatalf("listeners = %d, want 2", m.Listeners("lobby"))
	}

	f, err := m.Attach("lobby")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := f.WriteRTP(packet(1)); err != nil {
		t.Fatalf("WriteRTP: %v", err)
	}

	m.MarkSubscriberDelete("lobby", "a")
	if m.Listeners("lobby") != 1 {
		t.Fatalf("listeners = %d, want 1", m.Listeners("lobby"))
	}

	m.Detach(f)
	if !m.HasRelay("lobby") {
		t.Fatal("relay with a listener was pruned")
	}
	m.MarkSubscriberDelete("lobby", "b")
	if m.HasRelay("lobby") {
		t.Fatal("idle relay not pruned")
	}
	if len(m.Rooms()) != 0 {
		t.Fatalf("rooms = %v", m.Rooms())
	}
}

func TestSubscribeError(t *testing.T) {
	m := NewRelayManager()
	boom := errors.New("boom")
	if err := m.Subscribe("lobby", "a", &fakeListener{addErr: boom}); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if m.HasRelay("lobby") {
		t.Fatal("failed subscribe left a relay behind")
	}
}

func TestOutTrackStates(t *testing.T) {
	ot := NewOutTrack(nil, nil)
	if ot.GetState() != TrackStateOk {
		t.Fatal("new out track is not ok")
	}
	ot.MarkMuted()
	if ot.GetState() != TrackStateMuted {
		t.Fatal("mute not applied")
	}
	ot.MarkDelete()
	if ot.GetState() != TrackStateDelete {
		t.Fatal("delete not applied")
	}
}

func TestForwardWhileSubscribing(t *testing.T) {
	m := NewRelayManager()
	f, err := m.Attach("lobby")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	const n = 200
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range n {
			if err := f.WriteRTP(packet(uint16(i))); err != nil {
				t.Errorf("WriteRTP: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := range n {
			sid := core.SessionID(fmt.Sprintf("l%d", i%10))
			if err := m.Subscribe("lobby", sid, &fakeListener{}); err != nil {
				t.Errorf("Subscribe: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	if got := m.Listeners("lobby"); got != 10 {
		t.Fatalf("listeners = %d, want 10", got)
	}
}
