// Package fileres loads Rust source files and maps module and crate names
// to the files that define them.
package fileres

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/maypok86/otter"
	"github.com/rs/zerolog"

	"github.com/phobologic/rustguide/internal/source"
)

// DefaultCacheCapacity is the default byte budget for cached file contents.
const DefaultCacheCapacity = 64 << 20

type options struct {
	logger   zerolog.Logger
	capacity int
}

// Option configures a Session or Locator.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithCacheCapacity bounds the total size in bytes of cached files.
func WithCacheCapacity(bytes int) Option {
	return func(o *options) { o.capacity = bytes }
}

func buildOptions(opts []Option) options {
	o := options{logger: zerolog.Nop(), capacity: DefaultCacheCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Session hands out file contents. Files read from disk are cached until
// evicted or invalidated; overlays registered with CacheFileContents shadow
// the disk until removed.
type Session struct {
	log   zerolog.Logger
	cache otter.Cache[string, *source.Buffer]

	mu       sync.RWMutex
	overlays map[string]*source.Buffer

	stop      chan struct{}
	closeOnce sync.Once
	watchers  sync.WaitGroup
}

// NewSession creates a Session. Close releases the cache.
func NewSession(opts ...Option) (*Session, error) {
	o := buildOptions(opts)
	if o.capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", o.capacity)
	}
	cache, err := otter.MustBuilder[string, *source.Buffer](o.capacity).
		Cost(func(_ string, buf *source.Buffer) uint32 {
			return uint32(min(buf.Len()+1, 1<<31))
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("building file cache: %w", err)
	}
	return &Session{
		log:      o.logger,
		cache:    cache,
		overlays: make(map[string]*source.Buffer),
		stop:     make(chan struct{}),
	}, nil
}

// Close stops any watchers, waits for them to exit and releases the cache.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.watchers.Wait()
		s.cache.Close()
	})
}

// LoadFile returns the contents of path, preferring an overlay.
func (s *Session) LoadFile(path string) (*source.Buffer, error) {
	path = filepath.Clean(path)
	s.mu.RLock()
	buf, ok := s.overlays[path]
	s.mu.RUnlock()
	if ok {
		return buf, nil
	}
	if buf, ok := s.cache.Get(path); ok {
		return buf, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	buf = source.NewBuffer(string(data))
	if !s.cache.Set(path, buf) {
		s.log.Debug().Str("path", path).Int("bytes", buf.Len()).Msg("file too large to cache")
	}
	return buf, nil
}

// ContainsFile reports whether the session holds path in memory, either as
// an overlay or cached.
func (s *Session) ContainsFile(path string) bool {
	path = filepath.Clean(path)
	s.mu.RLock()
	_, ok := s.overlays[path]
	s.mu.RUnlock()
	if ok {
		return true
	}
	return s.cache.Has(path)
}

// CacheFileContents registers unsaved contents for path. They are served
// instead of the file on disk until RemoveOverlay is called.
func (s *Session) CacheFileContents(path, contents string) {
	path = filepath.Clean(path)
	s.mu.Lock()
	s.overlays[path] = source.NewBuffer(contents)
	s.mu.Unlock()
}

// RemoveOverlay drops the unsaved contents registered for path.
func (s *Session) RemoveOverlay(path string) {
	path = filepath.Clean(path)
	s.mu.Lock()
	delete(s.overlays, path)
	s.mu.Unlock()
}

// Invalidate evicts the cached disk contents of path. Overlays are kept.
func (s *Session) Invalidate(path string) {
	s.cache.Delete(filepath.Clean(path))
}

// Watch evicts cached files under dirs as they change on disk. It returns
// once the watches are set up; watching stops when ctx is done or the
// session is closed.
func (s *Session) Watch(ctx context.Context, dirs ...string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := addTree(w, dir); err != nil {
			_ = w.Close()
			return err
		}
	}
	s.watchers.Go(func() { s.watch(ctx, w) })
	return nil
}

func (s *Session) watch(ctx context.Context, w *fsnotify.Watcher) {
	defer func() { _ = w.Close() }()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			s.handleEvent(w, ev)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.Warn().Err(err).Msg("file watcher error")
		}
	}
}

func (s *Session) handleEvent(w *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := addTree(w, ev.Name); err != nil {
				s.log.Warn().Err(err).Str("dir", ev.Name).Msg("cannot watch new directory")
			}
			return
		}
	}
	if filepath.Ext(ev.Name) != ".rs" {
		return
	}
	if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		s.log.Trace().Str("path", ev.Name).Stringer("op", ev.Op).Msg("invalidating cached file")
		s.Invalidate(ev.Name)
	}
}

// addTree watches dir and every directory below it, skipping hidden
// directories and cargo build output.
func addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && (d.Name() == "target" || d.Name()[0] == '.') {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
