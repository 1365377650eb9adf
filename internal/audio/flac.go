package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

// flacSource decodes FLAC frame by frame, converting to 16-bit stereo.
type flacSource struct {
	rc       io.ReadCloser
	stream   *flac.Stream
	channels int
	bitDepth int
	pending  []int16
}

func newFLACSource(rc io.ReadCloser) (*flacSource, error) {
	stream, err := flac.New(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}
	info := stream.Info
	if info.NChannels == 0 {
		return nil, fmt.Errorf("failed to decode FLAC: no channels")
	}
	return &flacSource{
		rc:       rc,
		stream:   stream,
		channels: int(info.NChannels),
		bitDepth: int(info.BitsPerSample),
	}, nil
}

func (s *flacSource) Read(samples []int16) (int, error) {
	n := 0
	for n < len(samples) {
		if len(s.pending) == 0 {
			if err := s.decodeFrame(); err != nil {
				if n > 0 && errors.Is(err, io.EOF) {
					return n, nil
				}
				return n, err
			}
		}
		c := copy(samples[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, nil
}

func (s *flacSource) decodeFrame() error {
	frame, err := s.stream.ParseNext()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("flac decode error: %w", err)
	}

	block := int(frame.BlockSize)
	out := make([]int16, 0, block*2)
	left := frame.Subframes[0].Samples
	right := left
	if s.channels > 1 {
		right = frame.Subframes[1].Samples
	}
	for i := 0; i < block; i++ {
		out = append(out, s.to16(left[i]), s.to16(right[i]))
	}
	s.pending = out
	return nil
}

func (s *flacSource) to16(sample int32) int16 {
	shift := s.bitDepth - 16
	if shift > 0 {
		return int16(sample >> shift)
	}
	return int16(sample << -shift)
}

func (s *flacSource) SampleRate() int { return int(s.stream.Info.SampleRate) }
func (s *flacSource) Close() error    { return s.rc.Close() }
