package audio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var errBadWAV = errors.New("bad wav")

// wavSource reads 16-bit PCM WAV with one or two channels.
type wavSource struct {
	rc         io.ReadCloser
	r          io.Reader
	sampleRate int
	channels   int
	buf        []byte
}

func newWAVSource(rc io.ReadCloser) (*wavSource, error) {
	br := bufio.NewReader(rc)

	var riff [12]byte
	if _, err := io.ReadFull(br, riff[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadWAV, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE header", errBadWAV)
	}

	s := &wavSource{rc: rc}
	haveFmt := false
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(br, hdr[:]); err != nil {
			return nil, fmt.Errorf("%w: no data chunk", errBadWAV)
		}
		id := string(hdr[0:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", errBadWAV)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(br, body); err != nil {
				return nil, fmt.Errorf("%w: %v", errBadWAV, err)
			}
			audioFormat := binary.LittleEndian.Uint16(body[0:2])
			s.channels = int(binary.LittleEndian.Uint16(body[2:4]))
			s.sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bits := binary.LittleEndian.Uint16(body[14:16])
			if audioFormat != 1 || bits != 16 {
				return nil, fmt.Errorf("%w: only 16-bit PCM wav", ErrUnsupportedFormat)
			}
			if s.channels < 1 || s.channels > 2 {
				return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, s.channels)
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("%w: data before fmt", errBadWAV)
			}
			s.r = io.LimitReader(br, size)
			return s, nil
		default:
			if _, err := io.CopyN(io.Discard, br, size+size%2); err != nil {
				return nil, fmt.Errorf("%w: %v", errBadWAV, err)
			}
		}
	}
}

func (s *wavSource) Read(samples []int16) (int, error) {
	frames := len(samples) / 2
	need := frames * s.channels * 2
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]

	n, err := io.ReadFull(s.r, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	got := n / (2 * s.channels)
	for i := 0; i < got; i++ {
		if s.channels == 1 {
			v := int16(binary.LittleEndian.Uint16(buf[i*2:]))
			samples[i*2], samples[i*2+1] = v, v
			continue
		}
		samples[i*2] = int16(binary.LittleEndian.Uint16(buf[i*4:]))
		samples[i*2+1] = int16(binary.LittleEndian.Uint16(buf[i*4+2:]))
	}
	return got * 2, err
}

func (s *wavSource) SampleRate() int { return s.sampleRate }
func (s *wavSource) Close() error    { return s.rc.Close() }
