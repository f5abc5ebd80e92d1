// Package fs implements core.Store over a directory tree of version files.
//
// Layout:
//
//	<root>/<path-escaped entity id>/<aspect>/<version>.json
//
// Version 0 holds the latest value. Each file is an envelope carrying the
// creation time and the payload (see Serializer). YAML files are accepted on
// read; writes always produce JSON.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/timeline/pkg/core"
)

// versionPattern selects version files inside an aspect directory.
const versionPattern = "*.{json,yaml,yml}"

// Config holds the configuration for the filesystem store.
type Config struct {
	Path      string
	MustExist bool
	ReadOnly  bool
	Logger    *slog.Logger
	// ErrorHandler receives asynchronous watcher failures. Defaults to logging.
	ErrorHandler func(error)
}

// Store implements core.Store and core.AspectWriter using the filesystem.
type Store struct {
	Path        string
	config      Config
	serializers map[string]Serializer
	cache       *cache

	writeMu sync.Mutex

	mu            sync.RWMutex
	readOnly      bool
	watcherActive bool
	lastEviction  *time.Time
	stopWatch     context.CancelFunc
	changes       chan core.AspectChange
}

// New creates a filesystem-backed store rooted at config.Path.
func New(config Config) *Store {
	return &Store{
		Path:        config.Path,
		config:      config,
		serializers: DefaultSerializers(),
		cache:       newCache(),
		readOnly:    config.ReadOnly,
	}
}

// Initialize checks or creates the root directory.
func (s *Store) Initialize(ctx context.Context) error {
	if s.config.MustExist || s.readOnly {
		info, err := os.Stat(s.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("store path does not exist: %s", s.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("store path is not a directory: %s", s.Path)
		}
		return nil
	}

	if err := os.MkdirAll(s.Path, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	return nil
}

// GetAspectsInRange implements core.Store.
func (s *Store) GetAspectsInRange(ctx context.Context, entityID string, aspects []string, start, end time.Time) ([]core.AspectRow, error) {
	var out []core.AspectRow
	for _, aspect := range aspects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files, err := s.versionFiles(entityID, aspect)
		if err != nil {
			return nil, err
		}
		for version, file := range files {
			row, err := s.readRow(entityID, aspect, version, file)
			if err != nil {
				return nil, err
			}
			if row.CreatedAt.Before(start) || row.CreatedAt.After(end) {
				continue
			}
			out = append(out, row)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Aspect != out[j].Aspect {
			return out[i].Aspect < out[j].Aspect
		}
		return out[i].Version < out[j].Version
	})
	return out, nil
}

// GetNextVersions implements core.Store.
func (s *Store) GetNextVersions(ctx context.Context, entityID string, aspects []string) (map[string]int64, error) {
	out := make(map[string]int64, len(aspects))
	for _, aspect := range aspects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files, err := s.versionFiles(entityID, aspect)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			continue
		}
		out[aspect] = maxVersion(files) + 1
	}
	return out, nil
}

// GetAspect implements core.Store.
func (s *Store) GetAspect(ctx context.Context, entityID, aspect string, version int64) (core.AspectRow, error) {
	if err := ctx.Err(); err != nil {
		return core.AspectRow{}, err
	}
	files, err := s.versionFiles(entityID, aspect)
	if err != nil {
		return core.AspectRow{}, err
	}
	file, ok := files[version]
	if !ok {
		return core.AspectRow{}, fmt.Errorf("%s/%s@%d: %w", entityID, aspect, version, core.ErrAspectNotFound)
	}
	return s.readRow(entityID, aspect, version, file)
}

// PutAspect implements core.AspectWriter.
//
// The current version 0 file is renamed to the next free version, keeping its
// creation time, and the new payload is written atomically as version 0.
func (s *Store) PutAspect(ctx context.Context, entityID, aspect string, payload []byte, at time.Time) (int64, error) {
	if s.IsReadOnly() {
		return 0, fmt.Errorf("cannot write %s/%s: %w", entityID, aspect, core.ErrReadOnly)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !json.Valid(payload) {
		return 0, fmt.Errorf("%w: payload for %s/%s is not valid json", core.ErrPayloadMalformed, entityID, aspect)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	files, err := s.versionFiles(entityID, aspect)
	if err != nil {
		return 0, err
	}
	dir, err := s.aspectDir(entityID, aspect)
	if err != nil {
		return 0, err
	}

	var archived int64
	if current, ok := files[core.LatestVersion]; ok {
		archived = maxVersion(files) + 1
		target := strconv.FormatInt(archived, 10) + filepath.Ext(current)
		if err := os.Rename(filepath.Join(dir, current), filepath.Join(dir, target)); err != nil {
			return 0, fmt.Errorf("failed to archive latest version: %w", err)
		}
		s.cache.Delete(s.relPath(entityID, aspect, current))
	}

	data, err := s.serializers[WriteExtension].Serialize(record{CreatedAt: at, Payload: payload})
	if err != nil {
		return 0, fmt.Errorf("failed to serialize version file: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, "0"+WriteExtension), data, 0644); err != nil {
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	if s.config.Logger != nil {
		s.config.Logger.Debug("aspect written",
			"entity", entityID,
			"aspect", aspect,
			"archived_version", archived,
		)
	}
	return archived, nil
}

// IsReadOnly reports whether writes are rejected.
func (s *Store) IsReadOnly() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readOnly
}

// SetReadOnly toggles write rejection at runtime.
func (s *Store) SetReadOnly(readOnly bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readOnly = readOnly
}

// versionFiles maps version numbers to file names inside the aspect
// directory. A missing directory means the aspect was never written.
func (s *Store) versionFiles(entityID, aspect string) (map[int64]string, error) {
	dir, err := s.aspectDir(entityID, aspect)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	matches, err := doublestar.Glob(os.DirFS(dir), versionPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	files := make(map[int64]string, len(matches))
	for _, name := range matches {
		ext := filepath.Ext(name)
		version, err := strconv.ParseInt(strings.TrimSuffix(name, ext), 10, 64)
		if err != nil || version < 0 {
			continue
		}
		if existing, ok := files[version]; ok && extensionRank(filepath.Ext(existing)) <= extensionRank(ext) {
			continue
		}
		files[version] = name
	}
	return files, nil
}

func (s *Store) readRow(entityID, aspect string, version int64, file string) (core.AspectRow, error) {
	dir, err := s.aspectDir(entityID, aspect)
	if err != nil {
		return core.AspectRow{}, err
	}
	full := filepath.Join(dir, file)
	rel := s.relPath(entityID, aspect, file)

	info, err := os.Stat(full)
	if err != nil {
		return core.AspectRow{}, fmt.Errorf("failed to stat %s: %w", rel, err)
	}

	entry, ok := s.cache.Get(rel, info.ModTime(), info.Size())
	if !ok {
		data, err := os.ReadFile(full)
		if err != nil {
			return core.AspectRow{}, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		rec, err := s.serializers[filepath.Ext(file)].Parse(data)
		if err != nil {
			return core.AspectRow{}, fmt.Errorf("%w: %s: %w", core.ErrPayloadMalformed, rel, err)
		}
		entry = &cacheEntry{rec: rec, LastModified: info.ModTime(), Size: info.Size()}
		s.cache.Set(rel, entry)
	}

	return core.AspectRow{
		Aspect:    aspect,
		Version:   version,
		CreatedAt: entry.rec.CreatedAt,
		Payload:   append(json.RawMessage(nil), entry.rec.Payload...),
	}, nil
}

func (s *Store) aspectDir(entityID, aspect string) (string, error) {
	if err := validateSegment("entity id", entityID); err != nil {
		return "", err
	}
	if err := validateSegment("aspect", aspect); err != nil {
		return "", err
	}
	if strings.ContainsAny(aspect, `/\`) {
		return "", fmt.Errorf("invalid aspect name %q", aspect)
	}
	return filepath.Join(s.Path, url.PathEscape(entityID), aspect), nil
}

func (s *Store) relPath(entityID, aspect, file string) string {
	return path.Join(url.PathEscape(entityID), aspect, file)
}

func validateSegment(kind, v string) error {
	if v == "" || v == "." || v == ".." {
		return fmt.Errorf("invalid %s %q", kind, v)
	}
	return nil
}

func extensionRank(ext string) int {
	for i, e := range extensionOrder {
		if e == ext {
			return i
		}
	}
	return len(extensionOrder)
}

func maxVersion(files map[int64]string) int64 {
	var max int64
	for v := range files {
		if v > max {
			max = v
		}
	}
	return max
}

var _ core.Store = (*Store)(nil)
var _ core.AspectWriter = (*Store)(nil)
