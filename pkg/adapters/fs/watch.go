package fs

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/timeline/pkg/core"
)

// changeBuffer bounds the pending notifications of Changes.
const changeBuffer = 64

// Watch evicts cached version files when they change on disk outside of
// PutAspect (another process, a sync tool, a manual edit). It returns once the
// watcher is registered; the event loop runs until ctx is cancelled.
func (s *Store) Watch(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if s.isWatching() {
		return fmt.Errorf("watcher already started")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := s.recursiveAdd(watcher, s.Path); err != nil {
		_ = watcher.Close()
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	changes := make(chan core.AspectChange, changeBuffer)
	s.mu.Lock()
	s.watcherActive = true
	s.stopWatch = cancel
	s.changes = changes
	s.mu.Unlock()

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(changes)
		return s.watchLoop(ctx, watcher, changes)
	}, lifecycle.WithErrorHandler(func(err error) {
		s.handleError(fmt.Errorf("watcher failed: %w", err))
	}))
	return nil
}

// Changes returns the notifications of the running watcher. The channel is
// closed when the watcher stops and is nil if Watch was never called.
// Notifications are dropped when the consumer falls behind.
func (s *Store) Changes() <-chan core.AspectChange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changes
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- core.AspectChange) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			// Stack only at debug level, to keep production logs small.
			if s.config.Logger != nil && s.config.Logger.Enabled(ctx, slog.LevelDebug) {
				s.config.Logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			}
		}
	}()
	defer s.setWatcherActive(false)
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			if change, ok := s.processEvent(watcher, event); ok {
				select {
				case changes <- change:
				default:
					if s.config.Logger != nil {
						s.config.Logger.Warn("dropping aspect change notification", "change", change.String())
					}
				}
			}

		case wErr, ok := <-watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			s.handleError(fmt.Errorf("fsnotify error: %w", wErr))
		}
	}
}

// processEvent drops the cache entries an event may have invalidated and
// maps version file events to an AspectChange.
func (s *Store) processEvent(watcher *fsnotify.Watcher, event fsnotify.Event) (core.AspectChange, bool) {
	if strings.HasPrefix(filepath.Base(event.Name), TempFilePrefix) {
		return core.AspectChange{}, false
	}

	rel, err := filepath.Rel(s.Path, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return core.AspectChange{}, false
	}
	rel = filepath.ToSlash(rel)

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := s.recursiveAdd(watcher, event.Name); err != nil {
				s.handleError(err)
			}
			return core.AspectChange{}, false
		}
	}

	if s.config.Logger != nil {
		s.config.Logger.Debug("evicting cached version file", "path", rel, "op", event.Op.String())
	}
	removed := event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
	if removed {
		s.cache.Prune(rel)
	} else {
		s.cache.Delete(rel)
	}
	s.recordEviction()

	change, ok := parseVersionPath(rel)
	if !ok || !(removed || event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
		return core.AspectChange{}, false
	}
	change.Removed = removed
	change.At = time.Now()
	return change, true
}

// parseVersionPath maps "<escaped entity>/<aspect>/<version>.<ext>" back to
// its coordinates.
func parseVersionPath(rel string) (core.AspectChange, bool) {
	parts := strings.Split(rel, "/")
	if len(parts) != 3 {
		return core.AspectChange{}, false
	}
	ext := path.Ext(parts[2])
	if _, ok := DefaultSerializers()[ext]; !ok {
		return core.AspectChange{}, false
	}
	version, err := strconv.ParseInt(strings.TrimSuffix(parts[2], ext), 10, 64)
	if err != nil || version < 0 {
		return core.AspectChange{}, false
	}
	entityID, err := url.PathUnescape(parts[0])
	if err != nil {
		return core.AspectChange{}, false
	}
	return core.AspectChange{EntityID: entityID, Aspect: parts[1], Version: version}, true
}

// recursiveAdd registers dir and every directory below it. Hidden directories
// are skipped.
func (s *Store) recursiveAdd(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

// Close stops the watcher, if any. The store stays usable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
	return nil
}

func (s *Store) handleError(err error) {
	if s.config.ErrorHandler != nil {
		s.config.ErrorHandler(err)
		return
	}
	if s.config.Logger != nil {
		s.config.Logger.Error("fs store watcher", "error", err)
	}
}

func (s *Store) isWatching() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watcherActive
}

func (s *Store) setWatcherActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcherActive = active
}

func (s *Store) recordEviction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.lastEviction = &now
}
