// Package metaphone provides a phonetic.Dictionary derived from a plain word
// list using Double Metaphone codes.
//
// Every word contributes its primary and (when different) secondary code as
// single-symbol pronunciations. Double Metaphone is coarser than CMUdict, so
// the resulting groups contain near-homophones as well ("right", "write",
// "rite", "wright", but also "rate"). It is useful for vocabularies that
// CMUdict does not cover.
package metaphone

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/homophoner/pkg/provider/phonetic"
)

var _ phonetic.Dictionary = (*Dictionary)(nil)

// Dictionary computes pronunciations for a fixed word list.
type Dictionary struct {
	path  string
	words []string
}

// New returns a Dictionary that reads one word per line from path. Blank
// lines and lines starting with '#' are ignored.
func New(path string) (*Dictionary, error) {
	if path == "" {
		return nil, errors.New("metaphone: path must not be empty")
	}
	return &Dictionary{path: path}, nil
}

// FromWords returns a Dictionary over an in-memory word list.
func FromWords(words []string) *Dictionary {
	return &Dictionary{words: append([]string(nil), words...)}
}

// Entries implements phonetic.Dictionary.
func (d *Dictionary) Entries(_ context.Context) (map[string][][]string, error) {
	words := d.words
	if d.path != "" {
		f, err := os.Open(d.path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("metaphone: open %s: %w: %w", d.path, phonetic.ErrUnavailable, err)
		}
		if err != nil {
			return nil, fmt.Errorf("metaphone: open %s: %w", d.path, err)
		}
		defer f.Close()
		words, err = readWords(f)
		if err != nil {
			return nil, fmt.Errorf("metaphone: read %s: %w", d.path, err)
		}
	}
	return Encode(words), nil
}

// Encode maps every word to its Double Metaphone codes. Words that produce
// no code (no consonants, digits only, …) are omitted.
func Encode(words []string) map[string][][]string {
	entries := make(map[string][][]string, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || !hasLetter(w) {
			continue
		}
		if _, seen := entries[w]; seen {
			continue
		}
		p, s := matchr.DoubleMetaphone(w)
		var prons [][]string
		if p != "" {
			prons = append(prons, []string{p})
		}
		if s != "" && s != p {
			prons = append(prons, []string{s})
		}
		if len(prons) > 0 {
			entries[w] = prons
		}
	}
	return entries
}

func readWords(r io.Reader) ([]string, error) {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, strings.Fields(line)[0])
	}
	return words, sc.Err()
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
