package audio

import (
	"errors"
	"io"

	"github.com/dkeye/Jukebox/internal/core"
)

const readChunk = 4096 // samples per Read call

// framer cuts a Source into fixed 20 ms frames at core.SampleRate.
// The last partial frame is padded with silence.
type framer struct {
	src     Source
	rs      *resampler
	chunk   []int16
	pending []int16
	eof     bool
}

func newFramer(src Source) *framer {
	f := &framer{src: src, chunk: make([]int16, readChunk)}
	if rate := src.SampleRate(); rate > 0 && rate != core.SampleRate {
		f.rs = newResampler(rate, core.SampleRate)
	}
	return f
}

// Next returns the next frame, or io.EOF once the source is drained.
func (f *framer) Next() ([]int16, error) {
	size := core.FrameSamples * core.Channels
	for len(f.pending) < size && !f.eof {
		n, err := f.src.Read(f.chunk)
		if n > 0 {
			if f.rs != nil {
				f.pending = f.rs.process(f.chunk[:n], f.pending)
			} else {
				f.pending = append(f.pending, f.chunk[:n]...)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, err
			}
			f.eof = true
		}
	}

	if len(f.pending) == 0 {
		return nil, io.EOF
	}
	frame := make([]int16, size)
	n := copy(frame, f.pending)
	f.pending = f.pending[n:]
	return frame, nil
}
