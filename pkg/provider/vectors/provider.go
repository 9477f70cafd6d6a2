// Package vectors defines the Model interface for word-embedding backends.
//
// A vectors model is a read-only keyed-vector store: it maps a single word to a
// dense float32 vector and answers whether a word is part of its vocabulary.
// Homophoner uses these vectors to compare the meaning of homophone candidates
// with the meaning of the surrounding dictation context.
//
// Implementations range from an in-memory GloVe table to a pgvector-backed
// table or a remote embedding API. All of them must be safe for concurrent use.
package vectors

import "context"

// Model is the abstraction over any keyed word-vector backend.
//
// All vectors returned by a single Model share the same dimensionality
// (returned by Dimensions). The core never mutates a Model.
//
// Implementations must be safe for concurrent use.
type Model interface {
	// Lookup returns the vector for word and true when word is part of the
	// model vocabulary. When word is unknown, Lookup returns (nil, false, nil).
	//
	// A non-nil error means the backend could not answer (e.g. a network
	// failure); callers treat such words as out-of-vocabulary.
	//
	// The returned slice is owned by the Model and must not be modified.
	Lookup(ctx context.Context, word string) ([]float32, bool, error)

	// Dimensions returns the fixed length of every vector produced by this
	// model, or 0 when it is not yet known.
	Dimensions() int

	// ModelID returns a human-readable identifier of the underlying model
	// (e.g. "glove-wiki-gigaword-50").
	ModelID() string
}

// Contains reports whether word is part of the vocabulary of m. Backend
// errors are reported as false.
func Contains(ctx context.Context, m Model, word string) bool {
	_, ok, err := m.Lookup(ctx, word)
	return err == nil && ok
}

// Vocabulary is implemented by models that can enumerate all their words.
// It is used to bulk-copy a model into another backend (see the postgres
// package's Import).
type Vocabulary interface {
	// Words calls fn for every (word, vector) pair of the model. Iteration
	// stops at the first non-nil error returned by fn, which is then returned.
	Words(fn func(word string, vec []float32) error) error
}
