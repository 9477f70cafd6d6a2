// Package mock provides a test double for the vectors.Model interface.
//
// Use Model to serve a hand-crafted embedding space without loading a real
// model, and to verify which words were looked up.
//
// Example:
//
//	m := &mock.Model{
//	    Vectors: map[string][]float32{
//	        "rite":     {1, 0},
//	        "religion": {0.9, 0.1},
//	    },
//	}
//	vec, ok, _ := m.Lookup(ctx, "rite")
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/homophoner/pkg/provider/vectors"
)

// Model is a mock implementation of vectors.Model backed by a plain map.
type Model struct {
	mu sync.Mutex

	// Vectors holds the vocabulary. Words absent from the map are
	// out-of-vocabulary.
	Vectors map[string][]float32

	// Errs maps words to errors returned by Lookup for that word.
	Errs map[string]error

	// ModelIDValue is returned by ModelID.
	ModelIDValue string

	// LookupCalls records every word passed to Lookup, in order.
	LookupCalls []string
}

// Lookup records the call and returns the configured vector or error.
func (m *Model) Lookup(_ context.Context, word string) ([]float32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LookupCalls = append(m.LookupCalls, word)
	if err, ok := m.Errs[word]; ok {
		return nil, false, err
	}
	vec, ok := m.Vectors[word]
	return vec, ok, nil
}

// Dimensions returns the length of an arbitrary vector in Vectors, or 0 for
// an empty vocabulary.
func (m *Model) Dimensions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.Vectors {
		return len(v)
	}
	return 0
}

// ModelID returns ModelIDValue.
func (m *Model) ModelID() string {
	return m.ModelIDValue
}

// Words iterates the vocabulary in unspecified order.
func (m *Model) Words(fn func(string, []float32) error) error {
	m.mu.Lock()
	snapshot := make(map[string][]float32, len(m.Vectors))
	for w, v := range m.Vectors {
		snapshot[w] = v
	}
	m.mu.Unlock()
	for w, v := range snapshot {
		if err := fn(w, v); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears the recorded calls.
func (m *Model) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LookupCalls = nil
}

var (
	_ vectors.Model      = (*Model)(nil)
	_ vectors.Vocabulary = (*Model)(nil)
)
