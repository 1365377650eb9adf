package command

import (
	"context"
	"errors"
	"testing"

	"github.com/dkeye/Jukebox/internal/app/orch"
	"github.com/dkeye/Jukebox/internal/app/playback"
	"github.com/dkeye/Jukebox/internal/core"
	"github.com/dkeye/Jukebox/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		text    string
		want    Command
		wantErr error
	}{
		{"!play daft punk", Command{Name: Play, Arg: "daft punk"}, nil},
		{"  !P   around the world ", Command{Name: Play, Arg: "around the world"}, nil},
		{"!play", Command{Name: Play}, nil},
		{"!SKIP", Command{Name: Skip}, nil},
		{"!stop now", Command{Name: Stop, Arg: "now"}, nil},
		{"!pause", Command{Name: Pause}, nil},
		{"!resume", Command{Name: Resume}, nil},
		{"!queue", Command{Name: Queue}, nil},
		{"!dance", Command{}, ErrUnknown},
		{"!", Command{}, ErrNotCommand},
		{"play something", Command{}, ErrNotCommand},
		{"", Command{}, ErrNotCommand},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := Parse("!", tt.text)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseCustomPrefix(t *testing.T) {
	if _, err := Parse("?", "!play x"); !errors.Is(err, ErrNotCommand) {
		t.Fatalf("err = %v", err)
	}
	got, err := Parse("dj ", "dj skip")
	if err != nil || got.Name != Skip {
		t.Fatalf("got %+v, %v", got, err)
	}
}

func TestFormatQueue(t *testing.T) {
	if got := FormatQueue(nil); got != ReplyEmptyList {
		t.Fatalf("got %q", got)
	}
	want := "📋 Queue (2):\n1. One\n2. Two"
	if got := FormatQueue([]string{"One", "Two"}); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

type fakePlayer struct {
	rooms   map[core.SessionID]domain.RoomID
	err     error
	queue   []string
	calls   []string
	queries []string
}

func (p *fakePlayer) RoomOf(sid core.SessionID) (domain.RoomID, bool) {
	r, ok := p.rooms[sid]
	return r, ok
}

func (p *fakePlayer) Play(_ context.Context, room domain.RoomID, q string) (domain.Track, error) {
	p.calls = append(p.calls, "play:"+string(room))
	p.queries = append(p.queries, q)
	return domain.Track{Title: q}, p.err
}

func (p *fakePlayer) Skip(room domain.RoomID) error   { return p.record("skip", room) }
func (p *fakePlayer) Stop(room domain.RoomID) error   { return p.record("stop", room) }
func (p *fakePlayer) Pause(room domain.RoomID) error  { return p.record("pause", room) }
func (p *fakePlayer) Resume(room domain.RoomID) error { return p.record("resume", room) }

func (p *fakePlayer) Queue(room domain.RoomID) orch.QueueView {
	return orch.QueueView{Room: room, Tracks: p.queue}
}

func (p *fakePlayer) record(op string, room domain.RoomID) error {
	p.calls = append(p.calls, op+":"+string(room))
	return p.err
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name      string
		sid       core.SessionID
		text      string
		err       error
		queue     []string
		wantReply string
		handled   bool
	}{
		{"chat is ignored", "a", "hello there", nil, nil, "", false},
		{"unknown is ignored", "a", "!dance", nil, nil, "", false},
		{"outside a room", "ghost", "!skip", nil, nil, ReplyJoinFirst, true},
		{"empty query", "a", "!play   ", nil, nil, ReplyEmptyQuery, true},
		{"play ok is silent", "a", "!play one", nil, nil, "", true},
		{"nothing found", "a", "!p zzz", core.ErrNotFound, nil, ReplyNotFound, true},
		{"connect failed", "a", "!p one", core.ErrConnectFailed, nil, ReplyNoConnect, true},
		{"skip without queue", "a", "!skip", core.ErrNoSession, nil, ReplyNoQueue, true},
		{"resume while playing", "a", "!resume", &playback.TransitionError{Op: "resume", From: playback.StatePlaying}, nil, "❌ Nothing is paused.", true},
		{"other errors", "a", "!stop", errors.New("disk on fire"), nil, "❌ disk on fire", true},
		{"queue listing", "a", "!queue", nil, []string{"One"}, "📋 Queue (1):\n1. One", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePlayer{rooms: map[core.SessionID]domain.RoomID{"a": "lobby"}, err: tt.err, queue: tt.queue}
			d := &Dispatcher{Prefix: "!", Player: p}

			reply, handled := d.Handle(context.Background(), tt.sid, tt.text)
			if handled != tt.handled || reply != tt.wantReply {
				t.Fatalf("Handle = (%q, %v), want (%q, %v)", reply, handled, tt.wantReply, tt.handled)
			}
		})
	}
}

func TestHandleRoutesToCallersRoom(t *testing.T) {
	p := &fakePlayer{rooms: map[core.SessionID]domain.RoomID{"a": "lobby", "b": "den"}}
	d := &Dispatcher{Prefix: "!", Player: p}

	d.Handle(context.Background(), "a", "!play around the world")
	d.Handle(context.Background(), "b", "!pause")

	want := []string{"play:lobby", "pause:den"}
	if len(p.calls) != 2 || p.calls[0] != want[0] || p.calls[1] != want[1] {
		t.Fatalf("calls = %v, want %v", p.calls, want)
	}
	if p.queries[0] != "around the world" {
		t.Fatalf("query = %q", p.queries[0])
	}
}
