// Package mock provides a test double for the homophones.Source interface.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/MrWong99/homophoner/pkg/provider/homophones"
)

// Source is a mock homophones.Source backed by a map keyed by lowercase word.
type Source struct {
	mu sync.Mutex

	// Groups maps a lowercase word to its group.
	Groups map[string][]string

	// Err, when non-nil, is returned by every Homophones call.
	Err error

	// Calls records every word passed to Homophones.
	Calls []string
}

// Homophones records the call and returns the configured group.
func (s *Source) Homophones(_ context.Context, word string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, word)
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Groups[strings.ToLower(word)], nil
}

var _ homophones.Source = (*Source)(nil)
