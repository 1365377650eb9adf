package core

import (
	"context"

	"github.com/dkeye/Jukebox/internal/domain"
)

// Audio frames handed to a Connection are 20 ms of interleaved
// 16-bit stereo PCM at 48 kHz.
const (
	SampleRate      = 48000
	Channels        = 2
	FrameDurationMs = 20
	FrameSamples    = SampleRate / 1000 * FrameDurationMs // per channel
)

// Resolver turns free text into a playable track. Returns ErrNotFound
// when nothing matches.
type Resolver interface {
	Resolve(ctx context.Context, query string) (domain.Track, error)
}

// Sink hands out live connections one room at a time.
type Sink interface {
	Connect(ctx context.Context, room domain.RoomID) (Connection, error)
}

// Connection is a joined audio sink. Exactly one stream writes into it at a time.
type Connection interface {
	WriteFrame(pcm []int16) error
	// OnClosed registers a callback fired when the sink drops the connection.
	// It is not fired by Teardown.
	OnClosed(func())
	Teardown()
}

// Streamer decodes a track and pushes it into a connection.
// done is invoked exactly once, from the streaming goroutine: nil on
// completion (including a Stop), the failure otherwise.
type Streamer interface {
	Start(ctx context.Context, track domain.Track, conn Connection, done func(error)) (Stream, error)
}

// Stream is the handle of one in-flight track.
type Stream interface {
	Stop()
	Pause()
	Resume()
}

// Notifier delivers user-facing status text to a room. Fire-and-forget.
type Notifier interface {
	Send(room domain.RoomID, text string)
}
