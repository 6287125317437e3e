package rimage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// ErrSourceClosed is returned by Next once a source has been closed.
var ErrSourceClosed = errors.New("frame source is closed")

// FrameSource yields color video frames. Next returns io.EOF when a finite source is exhausted.
type FrameSource interface {
	Next(ctx context.Context) (*ColorBuffer, error)
	Connected() bool
	Close() error
}

// staticSource replays frames held in memory.
type staticSource struct {
	mu     sync.Mutex
	frames []*ColorBuffer
	next   int
	closed bool
}

// NewStaticSource returns a source that yields the given frames in order, then io.EOF.
func NewStaticSource(frames ...*ColorBuffer) FrameSource {
	return &staticSource{frames: frames}
}

func (s *staticSource) Next(ctx context.Context) (*ColorBuffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSourceClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.frames) {
		return nil, io.EOF
	}
	frame := s.frames[s.next]
	s.next++
	return frame, nil
}

func (s *staticSource) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *staticSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// imageSequenceSource decodes one image file per frame.
type imageSequenceSource struct {
	mu     sync.Mutex
	paths  []string
	next   int
	closed bool
}

// NewImageSequenceSource returns a source that decodes the files in paths in order, then
// returns io.EOF.
func NewImageSequenceSource(paths []string) FrameSource {
	return &imageSequenceSource{paths: paths}
}

// NewDirectorySource returns an image sequence over the image files directly inside dir, in
// lexical order.
func NewDirectorySource(dir string) (FrameSource, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, m := range matches {
		if IsImageFile(m) {
			paths = append(paths, m)
		}
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no image files in %q", dir)
	}
	return NewImageSequenceSource(paths), nil
}

func (s *imageSequenceSource) Next(ctx context.Context) (*ColorBuffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSourceClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.paths) {
		return nil, io.EOF
	}
	path := s.paths[s.next]
	s.next++
	return LoadColorBuffer(path)
}

func (s *imageSequenceSource) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *imageSequenceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// watchDirectorySource yields the image files already in a directory, then files as they are
// written into it.
type watchDirectorySource struct {
	watcher *fsnotify.Watcher
	pending []string
	seen    map[string]bool

	mu     sync.Mutex
	closed bool
}

// WatchDirectorySource returns a source over dir. Next first yields the image files present
// when the source is created, in lexical order, then blocks until a new image file is written.
// Each file is yielded once. Next must not be called concurrently.
func WatchDirectorySource(dir string) (FrameSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		//nolint:errcheck
		watcher.Close()
		return nil, errors.Wrapf(err, "cannot watch %q", dir)
	}
	// listed after Add so a file written in between is either listed or reported
	matches, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		//nolint:errcheck
		watcher.Close()
		return nil, err
	}
	s := &watchDirectorySource{watcher: watcher, seen: map[string]bool{}}
	for _, m := range matches {
		if IsImageFile(m) {
			s.pending = append(s.pending, m)
			s.seen[m] = true
		}
	}
	return s, nil
}

func (s *watchDirectorySource) Next(ctx context.Context) (*ColorBuffer, error) {
	if !s.Connected() {
		return nil, ErrSourceClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.pending) > 0 {
		path := s.pending[0]
		s.pending = s.pending[1:]
		return LoadColorBuffer(path)
	}
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil, ErrSourceClosed
			}
			return nil, err
		case event, ok := <-s.watcher.Events:
			if !ok {
				return nil, ErrSourceClosed
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !IsImageFile(event.Name) || s.seen[event.Name] {
				continue
			}
			frame, err := LoadColorBuffer(event.Name)
			if err != nil {
				// partially written; the next write event retries
				continue
			}
			s.seen[event.Name] = true
			return frame, nil
		}
	}
}

func (s *watchDirectorySource) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *watchDirectorySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.watcher.Close()
}

// IsImageFile reports whether the path has an extension the loaders can decode.
func IsImageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".gif", ".tif", ".tiff":
		return true
	default:
		return false
	}
}
