// Package catalog resolves free-text queries to playable tracks.
package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/dkeye/Jukebox/internal/audio"
	"github.com/dkeye/Jukebox/internal/core"
	"github.com/dkeye/Jukebox/internal/domain"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const reindexDelay = 500 * time.Millisecond

type entry struct {
	track  domain.Track
	tokens []string
}

// Library indexes the audio files below a directory. A query is either a
// URL, a path to a file inside the directory, or words matched against file
// names.
type Library struct {
	dir string
	// root is dir made absolute with symlinks resolved.
	root string

	mu      sync.RWMutex
	entries []entry

	watcher *fsnotify.Watcher
	closed  chan struct{}
	once    sync.Once
}

// NewLibrary scans dir once. An empty dir gives a library that only
// resolves URLs.
func NewLibrary(dir string) (*Library, error) {
	l := &Library{dir: dir, closed: make(chan struct{})}
	if dir == "" {
		return l, nil
	}
	root, err := realPath(dir)
	if err != nil {
		return nil, fmt.Errorf("index library %s: %w", dir, err)
	}
	l.root = root
	if err := l.Reindex(); err != nil {
		return nil, err
	}
	return l, nil
}

// Resolve implements core.Resolver.
func (l *Library) Resolve(_ context.Context, query string) (domain.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.Track{}, core.ErrNotFound
	}
	if strings.HasPrefix(query, "http://") || strings.HasPrefix(query, "https://") {
		return domain.Track{Title: query, Locator: query}, nil
	}
	if _, ok := audio.FormatOf(query); ok {
		if p, ok := l.inside(query); ok {
			return trackOf(p), nil
		}
	}

	words := tokenize(query)
	if len(words) == 0 {
		return domain.Track{}, core.ErrNotFound
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	var best *entry
	for i := range l.entries {
		e := &l.entries[i]
		if !matchesAll(e.tokens, words) {
			continue
		}
		if best == nil || better(e, best) {
			best = e
		}
	}
	if best == nil {
		return domain.Track{}, core.ErrNotFound
	}
	return best.track, nil
}

// Len returns the number of indexed tracks.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Reindex walks the directory and replaces the index.
func (l *Library) Reindex() error {
	var entries []entry
	err := filepath.WalkDir(l.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := audio.FormatOf(p); !ok {
			return nil
		}
		t := trackOf(p)
		entries = append(entries, entry{track: t, tokens: tokenize(t.Title)})
		return nil
	})
	if err != nil {
		return fmt.Errorf("index library %s: %w", l.dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].track.Locator < entries[j].track.Locator })

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()

	log.Info().Str("module", "catalog").Str("dir", l.dir).Int("tracks", len(entries)).Msg("library indexed")
	return nil
}

// Watch re-indexes the library whenever files below it change. It adds
// every subdirectory present at call time and any created later.
func (l *Library) Watch() error {
	if l.dir == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	err = filepath.WalkDir(l.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
	if err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch library: %w", err)
	}
	l.watcher = watcher
	go l.watchLoop()
	return nil
}

// Close stops the watcher.
func (l *Library) Close() error {
	var err error
	l.once.Do(func() {
		close(l.closed)
		if l.watcher != nil {
			err = l.watcher.Close()
		}
	})
	return err
}

func (l *Library) watchLoop() {
	logger := log.With().Str("module", "catalog.watch").Logger()

	// Bursts of events (a copied album) collapse into one re-index.
	timer := time.NewTimer(reindexDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-l.closed:
			return
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				if st, err := os.Stat(event.Name); err == nil && st.IsDir() {
					if err := l.watcher.Add(event.Name); err != nil {
						logger.Warn().Err(err).Str("dir", event.Name).Msg("watch subdirectory")
					}
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				timer.Reset(reindexDelay)
			}
		case <-timer.C:
			if err := l.Reindex(); err != nil {
				logger.Error().Err(err).Msg("reindex failed")
			}
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

// inside resolves p and reports whether it is a regular file below the
// library root. Paths escaping the root through ".." or symlinks are refused.
func (l *Library) inside(p string) (string, bool) {
	if l.root == "" {
		return "", false
	}
	resolved, err := realPath(p)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(l.root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	st, err := os.Stat(resolved)
	if err != nil || !st.Mode().IsRegular() {
		return "", false
	}
	return resolved, true
}

func realPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func trackOf(p string) domain.Track {
	title := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
	return domain.Track{Title: title, Locator: p}
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// matchesAll reports whether every word is a prefix of some token.
func matchesAll(tokens, words []string) bool {
	for _, w := range words {
		found := false
		for _, t := range tokens {
			if strings.HasPrefix(t, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// better prefers the shorter title, then the alphabetically first one.
func better(a, b *entry) bool {
	if len(a.track.Title) != len(b.track.Title) {
		return len(a.track.Title) < len(b.track.Title)
	}
	return a.track.Title < b.track.Title
}
