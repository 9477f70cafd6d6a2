// Package homophone resolves a spoken word with several valid spellings to
// the spelling that best fits its dictation context.
//
// Resolution is a strict chain:
//
//  1. [Candidates] collects the spellings: the user's own homophone group
//     when one exists, otherwise the phonetic index's sound-alikes with the
//     word itself first. No candidates means the word is returned unchanged.
//  2. The override table is consulted for the word and every candidate; a
//     hit wins outright.
//  3. [Scorer] ranks the candidates by embedding similarity to the context.
//
// [Resolver] sequences the steps and is the only entry point hosts need.
package homophone

import (
	"context"
	"slices"
	"strings"

	"github.com/MrWong99/homophoner/internal/observe"
	"github.com/MrWong99/homophoner/pkg/provider/homophones"
)

// PhoneticLookup returns words pronounced like word, excluding word itself.
// It is satisfied by *phonetic.Service.
type PhoneticLookup interface {
	HomophonesFor(ctx context.Context, word string) []string
}

// Candidates produces the spelling candidates for a word.
type Candidates struct {
	user     homophones.Source
	phonetic PhoneticLookup
}

// NewCandidates returns a Candidates over the given sources. Either may be
// nil.
func NewCandidates(user homophones.Source, phonetic PhoneticLookup) *Candidates {
	return &Candidates{user: user, phonetic: phonetic}
}

// For returns the ordered candidates for word, or nil when no source knows
// it. A user group is returned verbatim and fully shadows phonetic data; the
// phonetic fallback always lists word first, trimmed and lowercased like the
// index entries.
func (c *Candidates) For(ctx context.Context, word string) []string {
	if c.user != nil {
		group, err := c.user.Homophones(ctx, word)
		if err != nil {
			observe.Logger(ctx).Warn("user homophone lookup failed, falling back to phonetic index",
				"word", word, "err", err)
		} else if len(group) > 0 {
			return slices.Clone(group)
		}
	}

	if c.phonetic == nil {
		return nil
	}
	alikes := c.phonetic.HomophonesFor(ctx, word)
	if len(alikes) == 0 {
		return nil
	}
	norm := strings.ToLower(strings.TrimSpace(word))
	out := make([]string, 0, len(alikes)+1)
	out = append(out, norm)
	for _, w := range alikes {
		if w != norm {
			out = append(out, w)
		}
	}
	return out
}
