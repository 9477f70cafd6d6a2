package overrides

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MrWong99/homophoner/internal/observe"
)

// DefaultFilename is used when no override path is configured.
const DefaultFilename = "homophoner_overrides.csv"

// Store reads and writes the override file. Parsed tables are cached and
// re-read when the file's modification time or size changes, so hand edits
// take effect on the next Load. Safe for concurrent use.
type Store struct {
	path     string
	defaults []Entry
	metrics  *observe.Metrics

	mu      sync.Mutex
	table   Table
	modTime time.Time
	size    int64
	sum     [sha256.Size]byte
}

// Option is a functional option for New.
type Option func(*Store)

// WithDefaults replaces [DefaultEntries] as the seed of a new file.
func WithDefaults(entries []Entry) Option {
	return func(s *Store) {
		s.defaults = entries
	}
}

// WithMetrics sets the metrics recorder. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New returns a Store for the file at path. path should come from
// [ResolvePath].
func New(path string, opts ...Option) *Store {
	s := &Store{path: path, defaults: DefaultEntries}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Path returns the override file location.
func (s *Store) Path() string { return s.path }

// Initialize creates the override file seeded with the default entries when
// it does not exist. The file is written to a temporary name and linked into
// place, so concurrent initialisers never expose a partial file and the
// first one to link wins.
func (s *Store) Initialize() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("overrides: stat %s: %w", s.path, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("overrides: initialize: %w", err)
	}
	seed := make(Table, len(s.defaults))
	for _, e := range s.defaults {
		if err := seed.Set(e); err != nil {
			return fmt.Errorf("overrides: initialize: default %+v: %w", e, err)
		}
	}
	tmp, err := s.writeTemp(dir, seed.Entries())
	if err != nil {
		return fmt.Errorf("overrides: initialize: %w", err)
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, s.path); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("overrides: initialize: %w", err)
	}
	return nil
}

// EnsureFile initialises the file and returns its path, for handing it to
// an editor.
func (s *Store) EnsureFile() (string, error) {
	if err := s.Initialize(); err != nil {
		return "", err
	}
	return s.path, nil
}

// Load initialises the file if needed and returns the parsed table. The
// result is shared between callers and must not be modified.
func (s *Store) Load(ctx context.Context) (Table, error) {
	if err := s.Initialize(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fi, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("overrides: stat %s: %w", s.path, err)
	}
	if s.table != nil && fi.ModTime().Equal(s.modTime) && fi.Size() == s.size {
		return s.table, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("overrides: read %s: %w", s.path, err)
	}
	sum := sha256.Sum256(data)
	s.modTime, s.size = fi.ModTime(), fi.Size()
	if s.table != nil && sum == s.sum {
		return s.table, nil
	}

	t, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("overrides: %s: %w", s.path, err)
	}
	s.table, s.sum = t, sum
	s.metrics.RecordOverrideReload(ctx)
	observe.Logger(ctx).Debug("override table loaded", "path", s.path, "entries", len(t))
	return t, nil
}

// Persist replaces the file contents with table, rows sorted by word and
// context. The write is atomic (temporary file + rename).
func (s *Store) Persist(table Table) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("overrides: persist: %w", err)
	}
	tmp, err := s.writeTemp(dir, table.Entries())
	if err != nil {
		return fmt.Errorf("overrides: persist: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("overrides: persist: %w", err)
	}
	return nil
}

// Set records a single override and persists the table.
func (s *Store) Set(ctx context.Context, word, contextWords, replacement string) error {
	t, err := s.Load(ctx)
	if err != nil {
		return err
	}
	next := t.Clone()
	if err := next.Set(Entry{Word: word, Context: contextWords, Replacement: replacement}); err != nil {
		return err
	}
	return s.Persist(next)
}

func (s *Store) writeTemp(dir string, entries []Entry) (string, error) {
	f, err := os.CreateTemp(dir, ".homophoner-overrides-*")
	if err != nil {
		return "", err
	}
	if err := Write(f, entries); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	if err := os.Chmod(f.Name(), 0o644); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
