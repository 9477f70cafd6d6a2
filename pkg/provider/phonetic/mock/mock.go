// Package mock provides a test double for the phonetic.Dictionary and
// phonetic.Acquirer interfaces.
//
// Example:
//
//	d := &mock.Dictionary{
//	    EntriesResult: map[string][][]string{
//	        "buy": {{"B", "AY1"}},
//	        "by":  {{"B", "AY1"}},
//	    },
//	}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/homophoner/pkg/provider/phonetic"
)

// Dictionary is a mock implementation of phonetic.Dictionary and
// phonetic.Acquirer.
type Dictionary struct {
	mu sync.Mutex

	// EntriesResult is returned by Entries once EntriesErr is nil.
	EntriesResult map[string][][]string

	// EntriesErr is returned by Entries while non-nil.
	EntriesErr error

	// AcquireErr is returned by Acquire. When nil, Acquire clears EntriesErr
	// so the next Entries call succeeds.
	AcquireErr error

	// EntriesCalls counts Entries invocations.
	EntriesCalls int

	// AcquireCalls counts Acquire invocations.
	AcquireCalls int
}

// Entries records the call and returns the configured result.
func (d *Dictionary) Entries(_ context.Context) (map[string][][]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.EntriesCalls++
	if d.EntriesErr != nil {
		return nil, d.EntriesErr
	}
	return d.EntriesResult, nil
}

// Acquire records the call. On success it clears EntriesErr.
func (d *Dictionary) Acquire(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.AcquireCalls++
	if d.AcquireErr != nil {
		return d.AcquireErr
	}
	d.EntriesErr = nil
	return nil
}

// Calls returns the recorded (Entries, Acquire) call counts.
func (d *Dictionary) Calls() (entries, acquire int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.EntriesCalls, d.AcquireCalls
}

var (
	_ phonetic.Dictionary = (*Dictionary)(nil)
	_ phonetic.Acquirer   = (*Dictionary)(nil)
)
