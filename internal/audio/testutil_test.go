package audio

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// wavBytes builds a 16-bit PCM WAV whose samples count up from 1.
func wavBytes(rate, channels, frames int) []byte {
	var data bytes.Buffer
	for i := 0; i < frames*channels; i++ {
		_ = binary.Write(&data, binary.LittleEndian, int16(i%30000+1))
	}

	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36+data.Len()+10))
	b.WriteString("WAVE")

	// An unknown chunk with odd size exercises padding.
	b.WriteString("LIST")
	_ = binary.Write(&b, binary.LittleEndian, uint32(1))
	b.Write([]byte{0, 0})

	b.WriteString("fmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&b, binary.LittleEndian, uint32(rate))
	_ = binary.Write(&b, binary.LittleEndian, uint32(rate*channels*2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(channels*2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(16))

	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(data.Len()))
	b.Write(data.Bytes())
	return b.Bytes()
}

func writeWAV(t *testing.T, name string, rate, channels, frames int) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, wavBytes(rate, channels, frames), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}
