// Package lazy provides a memoising, concurrency-safe loader for expensive
// process-lifetime resources such as embedding models and phonetic indexes.
//
// A [Loader] moves through the states NotLoaded → Loading → Ready | Failed.
// Get triggers the load on first use; concurrent callers wait for that single
// load instead of starting their own. Both the value and the error are
// memoised, so a resource that cannot be loaded fails fast on every later
// call until [Loader.Invalidate] is called.
//
// [Loader.Warm] is the startup variant: it runs the same load but a failure
// resets the loader to NotLoaded, so a failed background warm-up never
// poisons the request path.
package lazy

import (
	"context"
	"errors"
	"sync"
)

// State is the lifecycle state of a [Loader].
type State int

const (
	// NotLoaded means no load has been attempted, or the last attempt was
	// discarded.
	NotLoaded State = iota

	// Loading means a load is in progress.
	Loading

	// Ready means the value is available.
	Ready

	// Failed means the last load returned an error, which is memoised.
	Failed
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case NotLoaded:
		return "not_loaded"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Func produces the resource. The context is the one of the caller that
// triggered the load.
type Func[T any] func(ctx context.Context) (T, error)

// Loader memoises the result of a [Func]. The zero value is not usable; use
// [New].
type Loader[T any] struct {
	load Func[T]

	mu    sync.Mutex
	state State
	val   T
	err   error
	done  chan struct{} // closed when the in-flight load settles
	gen   uint64        // bumped by Invalidate
}

// New returns a Loader for fn.
func New[T any](fn Func[T]) *Loader[T] {
	return &Loader[T]{load: fn}
}

// Get returns the resource, loading it if necessary. If another goroutine is
// already loading, Get waits for that load or for ctx to be done.
func (l *Loader[T]) Get(ctx context.Context) (T, error) {
	return l.get(ctx, false)
}

// Warm loads the resource if it has not been loaded yet. Unlike Get, a load
// failure is not memoised: the loader returns to NotLoaded and the next Get
// retries.
func (l *Loader[T]) Warm(ctx context.Context) error {
	_, err := l.get(ctx, true)
	return err
}

// State returns the current state.
func (l *Loader[T]) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Invalidate discards a settled value or error so the next Get reloads. An
// in-flight load is not interrupted; its result is discarded when it
// settles.
func (l *Loader[T]) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	if l.state == Loading {
		l.done = nil
	}
	var zero T
	l.state, l.val, l.err = NotLoaded, zero, nil
}

func (l *Loader[T]) get(ctx context.Context, warm bool) (T, error) {
	var zero T
	for {
		l.mu.Lock()
		switch l.state {
		case Ready:
			v := l.val
			l.mu.Unlock()
			return v, nil
		case Failed:
			err := l.err
			l.mu.Unlock()
			return zero, err
		case Loading:
			done := l.done
			l.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		// NotLoaded: this caller performs the load.
		done := make(chan struct{})
		l.state, l.done = Loading, done
		gen := l.gen
		l.mu.Unlock()

		v, err := l.run(ctx)

		l.mu.Lock()
		if l.gen == gen {
			switch {
			case err == nil:
				l.state, l.val, l.err = Ready, v, nil
			case warm || isCallerCancel(ctx, err):
				l.state = NotLoaded
			default:
				l.state, l.err = Failed, err
			}
			l.done = nil
		}
		close(done)
		l.mu.Unlock()
		return v, err
	}
}

func (l *Loader[T]) run(ctx context.Context) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return l.load(ctx)
}

// isCallerCancel reports whether err stems from the triggering caller's own
// context. Such failures say nothing about the resource and are not memoised.
func isCallerCancel(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

// PanicError is returned when the load function panics.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return "lazy: load panicked"
}
