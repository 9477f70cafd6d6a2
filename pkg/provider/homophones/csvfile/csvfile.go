// Package csvfile provides a homophones.Source reading a homophones.csv file
// in the format used by voice-control command sets: one comma-separated group
// per line.
//
//	right,write,rite,wright
//	buy,by,bye
//
// Every member of a group maps to the whole group. A word listed in several
// groups maps to the union, in order of first appearance. The file is
// re-read whenever its modification time or size changes, so edits take
// effect on the next lookup. A missing file is treated as an empty set.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/homophoner/pkg/provider/homophones"
)

var _ homophones.Source = (*Source)(nil)

// Source is a file-backed homophones.Source.
type Source struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	size    int64
	loaded  bool
	groups  map[string][]string
}

// New returns a Source reading from path.
func New(path string) (*Source, error) {
	if path == "" {
		return nil, errors.New("csvfile: path must not be empty")
	}
	return &Source{path: path}, nil
}

// Homophones implements homophones.Source.
func (s *Source) Homophones(_ context.Context, word string) ([]string, error) {
	groups, err := s.current()
	if err != nil {
		return nil, err
	}
	g := groups[strings.ToLower(strings.TrimSpace(word))]
	if len(g) == 0 {
		return nil, nil
	}
	return slices.Clone(g), nil
}

func (s *Source) current() (map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fi, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.groups, s.loaded = nil, false
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csvfile: stat %s: %w", s.path, err)
	}
	if s.loaded && fi.ModTime().Equal(s.modTime) && fi.Size() == s.size {
		return s.groups, nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("csvfile: open %s: %w", s.path, err)
	}
	defer f.Close()

	groups, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("csvfile: parse %s: %w", s.path, err)
	}
	s.groups, s.modTime, s.size, s.loaded = groups, fi.ModTime(), fi.Size(), true
	return groups, nil
}

// Parse reads homophone groups. Blank fields are dropped; groups with fewer
// than two members are ignored. Stray quotes are kept as literal text and
// malformed lines are skipped. The returned map is keyed by lowercase word.
func Parse(r io.Reader) (map[string][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	cr.LazyQuotes = true

	groups := make(map[string][]string)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			slog.Debug("csvfile: skipping malformed line", "line", perr.Line, "err", perr.Err)
			continue
		}
		if err != nil {
			return nil, err
		}
		var group []string
		for _, f := range rec {
			if f = strings.TrimSpace(f); f != "" && !slices.Contains(group, f) {
				group = append(group, f)
			}
		}
		if len(group) < 2 {
			continue
		}
		for _, w := range group {
			key := strings.ToLower(w)
			merged := groups[key]
			for _, m := range group {
				if !slices.Contains(merged, m) {
					merged = append(merged, m)
				}
			}
			groups[key] = merged
		}
	}
	return groups, nil
}
