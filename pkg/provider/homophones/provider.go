// Package homophones defines the Source interface for user-curated homophone
// sets.
//
// A user homophone set is authoritative: when a source returns a non-empty
// group for a word, the candidate resolver uses it verbatim, in the order the
// user wrote it, and never merges it with phonetic data.
package homophones

import "context"

// Source returns the user-defined homophone group containing a word.
//
// Implementations must be safe for concurrent use.
type Source interface {
	// Homophones returns the group for word (including word itself, in the
	// user's order), or nil when the user has not registered any. Lookup is
	// case-insensitive.
	Homophones(ctx context.Context, word string) ([]string, error)
}
