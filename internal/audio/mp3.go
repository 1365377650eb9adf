package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// mp3Source decodes MP3; go-mp3 always yields 16-bit little-endian stereo.
type mp3Source struct {
	rc      io.ReadCloser
	decoder *mp3.Decoder
	buf     []byte
}

func newMP3Source(rc io.ReadCloser) (*mp3Source, error) {
	decoder, err := mp3.NewDecoder(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}
	return &mp3Source{rc: rc, decoder: decoder}, nil
}

func (s *mp3Source) Read(samples []int16) (int, error) {
	need := len(samples) * 2
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]

	n, err := io.ReadFull(s.decoder, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	count := n / 2
	for i := 0; i < count; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return count, fmt.Errorf("mp3 decode error: %w", err)
	}
	return count, err
}

func (s *mp3Source) SampleRate() int { return s.decoder.SampleRate() }
func (s *mp3Source) Close() error    { return s.rc.Close() }
