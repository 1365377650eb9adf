package audio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWAVStereo(t *testing.T) {
	src, err := newWAVSource(io.NopCloser(bytes.NewReader(wavBytes(48000, 2, 10))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.SampleRate() != 48000 {
		t.Errorf("sample rate = %d", src.SampleRate())
	}

	buf := make([]int16, 64)
	n, err := src.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 20 {
		t.Fatalf("read %d samples, want 20", n)
	}
	if buf[0] != 1 || buf[1] != 2 || buf[19] != 20 {
		t.Errorf("unexpected samples %v", buf[:n])
	}
	if _, err := src.Read(buf); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestWAVMonoIsDuplicated(t *testing.T) {
	src, err := newWAVSource(io.NopCloser(bytes.NewReader(wavBytes(22050, 1, 4))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	buf := make([]int16, 8)
	n, _ := src.Read(buf)
	want := []int16{1, 1, 2, 2, 3, 3, 4, 4}
	if n != 8 {
		t.Fatalf("read %d samples", n)
	}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("samples = %v, want %v", buf, want)
		}
	}
}

func TestWAVRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not riff", []byte("OggS0000WAVEfmt ")},
		{"no data", wavBytes(48000, 2, 0)[:40]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := newWAVSource(io.NopCloser(bytes.NewReader(tt.data))); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		ok     bool
	}{
		{"song.mp3", FormatMP3, true},
		{"SONG.FLAC", FormatFLAC, true},
		{"/a/b/c.wav", FormatWAV, true},
		{"cover.jpg", "", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		f, ok := FormatOf(tt.name)
		if f != tt.format || ok != tt.ok {
			t.Errorf("FormatOf(%q) = %q, %v", tt.name, f, ok)
		}
	}
}

func TestOpenHTTP(t *testing.T) {
	body := wavBytes(48000, 2, 5)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/typed":
			w.Header().Set("Content-Type", "audio/wav")
			_, _ = w.Write(body)
		case "/by-ext.wav":
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write(body)
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	for _, p := range []string{"/typed", "/by-ext.wav"} {
		src, err := Open(context.Background(), srv.Client(), srv.URL+p)
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		if src.SampleRate() != 48000 {
			t.Errorf("%s: sample rate %d", p, src.SampleRate())
		}
		_ = src.Close()
	}

	if _, err := Open(context.Background(), srv.Client(), srv.URL+"/page"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("html page: err = %v", err)
	}
	if _, err := Open(context.Background(), srv.Client(), srv.URL+"/missing.mp3"); err == nil {
		t.Error("404: expected error")
	}
}

func TestOpenLocalErrors(t *testing.T) {
	if _, err := Open(context.Background(), nil, ""); !errors.Is(err, ErrEmptyLocator) {
		t.Errorf("empty: err = %v", err)
	}
	if _, err := Open(context.Background(), nil, "/tmp/readme.txt"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("txt: err = %v", err)
	}
	if _, err := Open(context.Background(), nil, "/does/not/exist.mp3"); err == nil {
		t.Error("missing file: expected error")
	}
}
