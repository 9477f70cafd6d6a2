// Package glove provides an in-memory vectors.Model loaded from a GloVe or
// word2vec text file.
//
// Both formats store one word per line followed by its whitespace-separated
// vector components:
//
//	the 0.418 0.24968 -0.41242 ...
//
// word2vec text files additionally start with a "<count> <dimensions>" header
// line, which is detected and skipped. The file is memory-mapped while it is
// parsed so that large models are not copied through a read buffer first; the
// mapping is released once the table is built.
//
// Example:
//
//	m, err := glove.Open("/data/glove.6B.50d.txt", glove.WithModelID("glove-wiki-gigaword-50"))
package glove

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/MrWong99/homophoner/pkg/provider/vectors"
)

var (
	_ vectors.Model      = (*Model)(nil)
	_ vectors.Vocabulary = (*Model)(nil)
)

// Model is an immutable word → vector table. Safe for concurrent use.
type Model struct {
	id    string
	dims  int
	table map[string][]float32
	order []string
}

type config struct {
	modelID string
	limit   int
}

// Option is a functional option for Open.
type Option func(*config)

// WithModelID sets the identifier returned by ModelID. Defaults to the file's
// base name without extension.
func WithModelID(id string) Option {
	return func(c *config) {
		c.modelID = id
	}
}

// WithLimit stops parsing after n words. Embedding files are ordered by word
// frequency, so a limit keeps the most common vocabulary while saving memory.
// Zero or negative means no limit.
func WithLimit(n int) Option {
	return func(c *config) {
		c.limit = n
	}
}

// Open memory-maps the file at path and parses it into a [Model].
func Open(path string, opts ...Option) (*Model, error) {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.modelID == "" {
		base := filepath.Base(path)
		cfg.modelID = base[:len(base)-len(filepath.Ext(base))]
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("glove: open %q: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("glove: stat %q: %w", path, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("glove: %q is empty", path)
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("glove: mmap %q: %w", path, err)
	}
	defer data.Unmap()

	m, err := parse(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("glove: parse %q: %w", path, err)
	}
	return m, nil
}

// Parse builds a [Model] from an in-memory GloVe or word2vec text buffer.
// Useful in tests and for embedded vocabularies.
func Parse(data []byte, opts ...Option) (*Model, error) {
	cfg := &config{modelID: "inline"}
	for _, o := range opts {
		o(cfg)
	}
	m, err := parse(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("glove: parse: %w", err)
	}
	return m, nil
}

func parse(data []byte, cfg *config) (*Model, error) {
	m := &Model{
		id:    cfg.modelID,
		table: make(map[string][]float32),
	}

	lineNo := 0
	for len(data) > 0 {
		var line []byte
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			line, data = data, nil
		}
		lineNo++

		fields := bytes.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if lineNo == 1 && isWord2VecHeader(fields) {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: no vector components", lineNo)
		}

		vec := make([]float32, len(fields)-1)
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(string(f), 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: component %d: %w", lineNo, i, err)
			}
			vec[i] = float32(v)
		}

		if m.dims == 0 {
			m.dims = len(vec)
		} else if len(vec) != m.dims {
			return nil, fmt.Errorf("line %d: got %d dimensions, want %d", lineNo, len(vec), m.dims)
		}

		word := string(fields[0])
		if _, dup := m.table[word]; dup {
			continue
		}
		m.table[word] = vec
		m.order = append(m.order, word)

		if cfg.limit > 0 && len(m.order) >= cfg.limit {
			break
		}
	}

	if len(m.table) == 0 {
		return nil, fmt.Errorf("no vectors found")
	}
	return m, nil
}

// isWord2VecHeader reports whether fields look like the "<count> <dims>"
// header of a word2vec text file.
func isWord2VecHeader(fields [][]byte) bool {
	if len(fields) != 2 {
		return false
	}
	for _, f := range fields {
		if _, err := strconv.Atoi(string(f)); err != nil {
			return false
		}
	}
	return true
}

// Lookup implements vectors.Model.
func (m *Model) Lookup(_ context.Context, word string) ([]float32, bool, error) {
	vec, ok := m.table[word]
	return vec, ok, nil
}

// Dimensions implements vectors.Model.
func (m *Model) Dimensions() int { return m.dims }

// ModelID implements vectors.Model.
func (m *Model) ModelID() string { return m.id }

// Len returns the vocabulary size.
func (m *Model) Len() int { return len(m.table) }

// Words implements vectors.Vocabulary, iterating in file order.
func (m *Model) Words(fn func(string, []float32) error) error {
	for _, w := range m.order {
		if err := fn(w, m.table[w]); err != nil {
			return err
		}
	}
	return nil
}
