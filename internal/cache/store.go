// Package cache persists cleaned, time-indexed tables so later runs can skip
// parsing the raw inputs.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-mag-etl/internal/atomicfile"
	"github.com/couchcryptid/quake-mag-etl/internal/domain"
	"github.com/couchcryptid/quake-mag-etl/internal/observability"
)

const manifestSuffix = ".meta.json"

// Manifest describes a snapshot and the inputs it was built from.
type Manifest struct {
	Key         string    `json:"key"`
	Fingerprint string    `json:"fingerprint"`
	Rows        int       `json:"rows"`
	Columns     []string  `json:"columns"`
	CreatedAt   time.Time `json:"created_at"`
	RunID       string    `json:"run_id"`
	Compressed  bool      `json:"compressed"`
}

// LoaderFunc produces a table when the cache cannot serve one.
type LoaderFunc func(ctx context.Context) (domain.Table, error)

// Store reads and writes snapshots in a single directory. It does no locking;
// concurrent runs against the same directory are unsupported.
type Store struct {
	dir      string
	compress bool
	clock    clockwork.Clock
	runID    string
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithCompression frames new snapshots with snappy.
func WithCompression(on bool) Option {
	return func(s *Store) { s.compress = on }
}

// WithClock sets the clock used for manifest timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithRunID stamps manifests with the given run ID.
func WithRunID(id string) Option {
	return func(s *Store) { s.runID = id }
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Store {
	s := &Store{
		dir:     dir,
		clock:   clockwork.NewRealClock(),
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the snapshot path for key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, key)
}

func (s *Store) manifestPath(key string) string {
	return s.Path(key) + manifestSuffix
}

// Load returns the snapshot stored under key when it is fresh, without calling
// load. Otherwise it calls load, persists the result and returns it.
//
// A snapshot is fresh when fingerprint is empty, or when its manifest records
// the same fingerprint. Read and write failures are returned, never papered
// over by recomputing.
func (s *Store) Load(ctx context.Context, key, fingerprint string, load LoaderFunc) (domain.Table, error) {
	path := s.Path(key)
	_, err := os.Stat(path)
	switch {
	case err == nil:
		fresh, reason, err := s.fresh(key, fingerprint)
		if err != nil {
			return domain.Table{}, err
		}
		if fresh {
			t, err := s.read(path)
			if err != nil {
				return domain.Table{}, err
			}
			s.metrics.CacheLookups.WithLabelValues(key, "hit").Inc()
			s.logger.Info("cache hit", "key", key, "rows", t.Len())
			return t, nil
		}
		s.metrics.CacheLookups.WithLabelValues(key, "stale").Inc()
		s.logger.Warn("cache stale, rebuilding", "key", key, "reason", reason)
	case errors.Is(err, fs.ErrNotExist):
		s.metrics.CacheLookups.WithLabelValues(key, "miss").Inc()
		s.logger.Info("cache miss", "key", key)
	default:
		return domain.Table{}, fmt.Errorf("stat cache %s: %w", path, err)
	}

	t, err := load(ctx)
	if err != nil {
		return domain.Table{}, err
	}
	if err := s.Save(key, fingerprint, t); err != nil {
		return domain.Table{}, err
	}
	return t, nil
}

func (s *Store) fresh(key, fingerprint string) (bool, string, error) {
	if fingerprint == "" {
		return true, "", nil
	}
	m, err := s.Manifest(key)
	if errors.Is(err, fs.ErrNotExist) {
		return false, "manifest missing", nil
	}
	if err != nil {
		return false, "", err
	}
	if m.Fingerprint != fingerprint {
		return false, "source fingerprint changed", nil
	}
	return true, "", nil
}

func (s *Store) read(path string) (domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Table{}, fmt.Errorf("open cache: %w", err)
	}
	defer f.Close()

	t, err := Decode(f)
	if err != nil {
		return domain.Table{}, fmt.Errorf("read cache %s: %w", path, err)
	}
	return t, nil
}

// Save writes t and its manifest under key.
func (s *Store) Save(key, fingerprint string, t domain.Table) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	var buf bytes.Buffer
	if s.compress {
		sw := snappy.NewBufferedWriter(&buf)
		if err := Encode(sw, t); err != nil {
			return fmt.Errorf("encode cache %s: %w", key, err)
		}
		if err := sw.Close(); err != nil {
			return fmt.Errorf("compress cache %s: %w", key, err)
		}
	} else if err := Encode(&buf, t); err != nil {
		return fmt.Errorf("encode cache %s: %w", key, err)
	}
	if err := atomicfile.WriteFile(s.Path(key), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write cache %s: %w", key, err)
	}

	m := Manifest{
		Key:         key,
		Fingerprint: fingerprint,
		Rows:        t.Len(),
		Columns:     t.Columns,
		CreatedAt:   s.clock.Now().UTC(),
		RunID:       s.runID,
		Compressed:  s.compress,
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := atomicfile.WriteFile(s.manifestPath(key), data, 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", key, err)
	}

	s.logger.Info("cache written", "key", key, "rows", t.Len(), "compressed", s.compress)
	return nil
}

// Manifest reads the manifest for key. It returns an error wrapping
// fs.ErrNotExist when there is none.
func (s *Store) Manifest(key string) (Manifest, error) {
	data, err := os.ReadFile(s.manifestPath(key))
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: manifest %s: %w", ErrCorrupt, key, err)
	}
	return m, nil
}

// Entry is the on-disk state of one cache key.
type Entry struct {
	Key      string
	Path     string
	Exists   bool
	Size     int64
	ModTime  time.Time
	Manifest *Manifest
}

// Status reports the state of each key. Missing artifacts are not an error.
func (s *Store) Status(keys []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		e := Entry{Key: key, Path: s.Path(key)}
		info, err := os.Stat(e.Path)
		switch {
		case err == nil:
			e.Exists = true
			e.Size = info.Size()
			e.ModTime = info.ModTime()
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("stat cache %s: %w", e.Path, err)
		}

		m, err := s.Manifest(key)
		switch {
		case err == nil:
			e.Manifest = &m
		case !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Clear deletes the snapshot and manifest of each key and returns the paths
// it removed.
func (s *Store) Clear(keys []string) ([]string, error) {
	var removed []string
	for _, key := range keys {
		for _, path := range []string{s.Path(key), s.manifestPath(key)} {
			err := os.Remove(path)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return removed, fmt.Errorf("remove %s: %w", path, err)
			}
			removed = append(removed, path)
			s.logger.Info("cache artifact removed", "path", path)
		}
	}
	return removed, nil
}
