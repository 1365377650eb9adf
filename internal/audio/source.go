package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrEmptyLocator      = errors.New("empty locator")
)

// Format names a container the package can decode.
type Format string

const (
	FormatMP3  Format = "mp3"
	FormatFLAC Format = "flac"
	FormatWAV  Format = "wav"
)

// Source yields interleaved 16-bit stereo samples at SampleRate().
type Source interface {
	Read(samples []int16) (int, error)
	SampleRate() int
	Close() error
}

// FormatOf guesses the format from a file extension; ok is false when
// the extension is unknown.
func FormatOf(name string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		return FormatMP3, true
	case ".flac":
		return FormatFLAC, true
	case ".wav", ".wave":
		return FormatWAV, true
	}
	return "", false
}

func formatOfContentType(ct string) (Format, bool) {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", false
	}
	switch mt {
	case "audio/mpeg", "audio/mp3":
		return FormatMP3, true
	case "audio/flac", "audio/x-flac":
		return FormatFLAC, true
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return FormatWAV, true
	}
	return "", false
}

func isRemote(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

// Open resolves a locator to a decoding Source.
func Open(ctx context.Context, client *http.Client, locator string) (Source, error) {
	rc, format, err := openLocator(ctx, client, locator)
	if err != nil {
		return nil, err
	}
	src, err := newSource(format, rc)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	return src, nil
}

func openLocator(ctx context.Context, client *http.Client, locator string) (io.ReadCloser, Format, error) {
	if locator == "" {
		return nil, "", ErrEmptyLocator
	}
	if !isRemote(locator) {
		format, ok := FormatOf(locator)
		if !ok {
			return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(locator))
		}
		f, err := os.Open(locator)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open audio file: %w", err)
		}
		return f, format, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, "", fmt.Errorf("bad locator: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch HTTP stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, "", fmt.Errorf("HTTP error: %s", resp.Status)
	}

	format, ok := formatOfContentType(resp.Header.Get("Content-Type"))
	if !ok {
		if u, perr := url.Parse(locator); perr == nil {
			format, ok = FormatOf(path.Base(u.Path))
		}
	}
	if !ok {
		_ = resp.Body.Close()
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, resp.Header.Get("Content-Type"))
	}
	return resp.Body, format, nil
}

func newSource(format Format, rc io.ReadCloser) (Source, error) {
	switch format {
	case FormatMP3:
		return newMP3Source(rc)
	case FormatFLAC:
		return newFLACSource(rc)
	case FormatWAV:
		return newWAVSource(rc)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}
