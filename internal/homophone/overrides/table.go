// Package overrides persists user-specified (word, context) → spelling
// overrides that take precedence over semantic scoring.
//
// The table lives in a small CSV file that users edit by hand:
//
//	input_homophone,context_words,correct_replacement_homophone
//	right,read,write
//
// Words are matched case-insensitively; contexts are matched after trimming
// surrounding whitespace and folding case.
package overrides

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
)

// Header is the fixed first row of an override file.
var Header = []string{"input_homophone", "context_words", "correct_replacement_homophone"}

// Entry is one override row.
type Entry struct {
	Word        string
	Context     string
	Replacement string
}

// DefaultEntries seed a newly created override file.
var DefaultEntries = []Entry{
	{Word: "right", Context: "read", Replacement: "write"},
}

// ErrInvalidEntry is returned by [Table.Set] for entries with a blank field.
var ErrInvalidEntry = errors.New("overrides: word, context and replacement must not be empty")

// Key identifies an override: a lowercase word and a normalised context.
type Key struct {
	Word    string
	Context string
}

// Table maps override keys to replacement spellings. A Table returned by
// [Store.Load] is shared and must not be modified; use [Table.Clone].
type Table map[Key]string

// NormalizeContext trims surrounding whitespace and folds case.
func NormalizeContext(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeWord(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// KeyFor builds the lookup key for word and a raw context.
func KeyFor(word, contextWords string) Key {
	return Key{Word: normalizeWord(word), Context: NormalizeContext(contextWords)}
}

// Lookup returns the replacement registered for word in context.
func (t Table) Lookup(word, contextWords string) (string, bool) {
	r, ok := t[KeyFor(word, contextWords)]
	return r, ok
}

// Set adds or replaces an entry. Blank fields are rejected.
func (t Table) Set(e Entry) error {
	k := KeyFor(e.Word, e.Context)
	r := strings.TrimSpace(e.Replacement)
	if k.Word == "" || k.Context == "" || r == "" {
		return ErrInvalidEntry
	}
	t[k] = r
	return nil
}

// Clone returns a modifiable copy of t.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Entries returns the table's rows sorted by word, then context.
func (t Table) Entries() []Entry {
	out := make([]Entry, 0, len(t))
	for k, v := range t {
		out = append(out, Entry{Word: k.Word, Context: k.Context, Replacement: v})
	}
	slices.SortFunc(out, func(a, b Entry) int {
		return cmp.Or(cmp.Compare(a.Word, b.Word), cmp.Compare(a.Context, b.Context))
	})
	return out
}

// Parse reads an override file. The header row is optional. Malformed rows
// and rows with a missing or blank field are skipped and logged at debug
// level; a later row for the same key replaces an earlier one. Only read
// errors from r are returned.
func Parse(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	t := make(Table)
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			slog.Debug("overrides: skipping malformed row", "line", perr.Line, "err", perr.Err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("overrides: parse: %w", err)
		}
		if line == 1 && isHeader(rec) {
			continue
		}
		if len(rec) < 3 {
			slog.Debug("overrides: skipping short row", "line", line, "fields", len(rec))
			continue
		}
		if err := t.Set(Entry{Word: rec[0], Context: rec[1], Replacement: rec[2]}); err != nil {
			slog.Debug("overrides: skipping row with blank field", "line", line)
		}
	}
	return t, nil
}

// Write serialises entries with the header row.
func Write(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{e.Word, e.Context, e.Replacement}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func isHeader(rec []string) bool {
	return len(rec) >= 3 &&
		strings.EqualFold(strings.TrimSpace(rec[0]), Header[0]) &&
		strings.EqualFold(strings.TrimSpace(rec[1]), Header[1])
}
