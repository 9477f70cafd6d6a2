// Package phonetic defines the Dictionary interface for pronunciation data.
//
// A pronunciation dictionary maps a word to one or more pronunciations, each
// an ordered list of phoneme symbols (e.g. "read" → [[R EH1 D] [R IY1 D]]).
// The phonetic homophone index groups words by pronunciation to find words
// that sound alike.
package phonetic

import (
	"context"
	"errors"
)

// ErrUnavailable is returned (possibly wrapped) by Dictionary.Entries when the
// dataset has not been acquired yet. Callers that see it may call
// Acquirer.Acquire once and retry.
var ErrUnavailable = errors.New("phonetic: dataset unavailable")

// Dictionary is the abstraction over any word → pronunciations source.
//
// Implementations must be safe for concurrent use.
type Dictionary interface {
	// Entries returns the full dataset. Keys are lowercase words; each value
	// lists every pronunciation of the word. The returned map must not be
	// modified by the caller.
	Entries(ctx context.Context) (map[string][][]string, error)
}

// Acquirer is implemented by dictionaries that can fetch their dataset on
// demand (for example by downloading it).
type Acquirer interface {
	// Acquire makes the dataset available so that a subsequent Entries call
	// can succeed.
	Acquire(ctx context.Context) error
}
