// Package phonetic groups words by pronunciation and answers "which other
// words sound like W".
//
// An [Index] is built once from a pronunciation dictionary and is immutable
// afterwards. [Service] owns the process-wide index: it builds it lazily on
// first use, acquires the dictionary dataset when it is missing, and degrades
// to "no homophones" when the dataset cannot be obtained.
package phonetic

import (
	"slices"
	"strings"
)

// Index maps pronunciation signatures to the words sharing them. Safe for
// concurrent reads.
type Index struct {
	groups map[string][]string // signature -> sorted words
	sigs   map[string][]string // word -> signatures
}

// Signature returns the grouping key of a pronunciation: its phonemes joined
// by a single space.
func Signature(phones []string) string {
	return strings.Join(phones, " ")
}

// Build creates an Index from a word → pronunciations mapping. Every
// pronunciation of a word independently adds the word to its signature
// group. Words are lowercased.
func Build(entries map[string][][]string) *Index {
	idx := &Index{
		groups: make(map[string][]string),
		sigs:   make(map[string][]string, len(entries)),
	}
	for word, prons := range entries {
		word = strings.ToLower(word)
		for _, p := range prons {
			if len(p) == 0 {
				continue
			}
			sig := Signature(p)
			if !slices.Contains(idx.sigs[word], sig) {
				idx.sigs[word] = append(idx.sigs[word], sig)
				idx.groups[sig] = append(idx.groups[sig], word)
			}
		}
	}
	for sig, words := range idx.groups {
		slices.Sort(words)
		idx.groups[sig] = slices.Compact(words)
	}
	return idx
}

// HomophonesFor returns every word sharing at least one pronunciation with
// word, excluding word itself, sorted and de-duplicated. It returns nil when
// word is unknown or has no homophones.
func (idx *Index) HomophonesFor(word string) []string {
	word = strings.ToLower(strings.TrimSpace(word))
	var out []string
	for _, sig := range idx.sigs[word] {
		for _, w := range idx.groups[sig] {
			if w != word {
				out = append(out, w)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Len returns the number of distinct pronunciation signatures.
func (idx *Index) Len() int { return len(idx.groups) }

// Words returns the number of indexed words.
func (idx *Index) Words() int { return len(idx.sigs) }
