// Package watch reports batches of changed files under a set of directories.
//
// Changes are debounced: a batch is delivered once no relevant event has
// arrived for the configured quiet period, so an editor saving several files
// triggers a single rebuild.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is used when a non-positive debounce is given.
const DefaultDebounce = 300 * time.Millisecond

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithFilter restricts batches to paths for which keep returns true.
func WithFilter(keep func(path string) bool) Option {
	return func(w *Watcher) {
		w.filter = keep
	}
}

// Watcher watches directory trees and single files.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger
	filter   func(string) bool

	mu    sync.Mutex
	roots []string
	files map[string]struct{}

	closeOnce sync.Once
}

// New creates a watcher with the given quiet period.
func New(debounce time.Duration, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		watcher:  fw,
		debounce: debounce,
		logger:   zap.NewNop(),
		files:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Add watches each path. Directories are watched recursively, including
// subdirectories created later. A file is watched through its parent
// directory so atomic replacement by editors is still seen.
func (w *Watcher) Add(paths ...string) error {
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}

		if !info.IsDir() {
			if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
				return fmt.Errorf("watching %s: %w", p, err)
			}
			w.mu.Lock()
			w.files[abs] = struct{}{}
			w.mu.Unlock()
			continue
		}

		if err := w.addTree(abs); err != nil {
			return err
		}
		w.mu.Lock()
		w.roots = append(w.roots, abs)
		w.mu.Unlock()
	}
	return nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

// relevant reports whether an event for path belongs to a watched tree or
// file and passes the filter.
func (w *Watcher) relevant(path string) bool {
	w.mu.Lock()
	_, isFile := w.files[path]
	inTree := false
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			inTree = true
			break
		}
	}
	w.mu.Unlock()

	if !isFile && !inTree {
		return false
	}
	return w.filter == nil || w.filter(path)
}

// Run delivers batches of changed paths to fn until ctx is done or the
// watcher is closed. Paths in a batch are sorted and unique. fn runs on the
// Run goroutine; events arriving meanwhile are batched for the next call.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context, paths []string)) error {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = make(map[string]struct{})
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && w.relevantDir(event.Name) {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
					}
				}
			}
			if event.Op == fsnotify.Chmod || !w.relevant(event.Name) {
				continue
			}

			pending[event.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			sort.Strings(paths)

			w.logger.Debug("change batch ready", zap.Int("paths", len(paths)))
			fn(ctx, paths)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("filesystem watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevantDir(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, root := range w.roots {
		if strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.watcher.Close()
	})
	return err
}
