package phonetic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrWong99/homophoner/internal/lazy"
	"github.com/MrWong99/homophoner/internal/observe"
	phondict "github.com/MrWong99/homophoner/pkg/provider/phonetic"
)

// resourceName labels index loads in metrics and logs.
const resourceName = "phonetic_index"

// Service owns the lazily built, process-wide phonetic [Index].
type Service struct {
	dict    phondict.Dictionary
	metrics *observe.Metrics
	loader  *lazy.Loader[*Index]
}

// Option is a functional option for NewService.
type Option func(*Service)

// WithMetrics sets the metrics recorder. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService returns a Service building its index from dict.
func NewService(dict phondict.Dictionary, opts ...Option) *Service {
	s := &Service{dict: dict}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	s.loader = lazy.New(s.build)
	return s
}

// build loads the dictionary, acquiring the dataset and retrying exactly
// once when it reports [phondict.ErrUnavailable].
func (s *Service) build(ctx context.Context) (idx *Index, err error) {
	ctx, span := observe.StartSpan(ctx, "phonetic.BuildIndex")
	defer func() { observe.Finish(span, err) }()
	start := time.Now()
	entries, err := s.dict.Entries(ctx)
	if errors.Is(err, phondict.ErrUnavailable) {
		if acq, ok := s.dict.(phondict.Acquirer); ok {
			observe.Logger(ctx).Info("phonetic dictionary missing, acquiring dataset")
			if aerr := acq.Acquire(ctx); aerr != nil {
				err = fmt.Errorf("phonetic: acquire dataset: %w", errors.Join(err, aerr))
			} else {
				entries, err = s.dict.Entries(ctx)
			}
		}
	}
	s.metrics.RecordLoad(ctx, resourceName, time.Since(start), err)
	if err != nil {
		observe.Logger(ctx).Warn("phonetic index unavailable, phonetic fallback disabled", "err", err)
		return nil, fmt.Errorf("phonetic: build index: %w", err)
	}

	idx = Build(entries)
	observe.Logger(ctx).Info("phonetic index built",
		"words", idx.Words(),
		"signatures", idx.Len(),
		"duration", time.Since(start),
	)
	return idx, nil
}

// Index returns the index, building it on first use.
func (s *Service) Index(ctx context.Context) (*Index, error) {
	return s.loader.Get(ctx)
}

// HomophonesFor returns the phonetic homophones of word. When the index
// cannot be built it returns nil: the phonetic fallback is optional.
func (s *Service) HomophonesFor(ctx context.Context, word string) []string {
	idx, err := s.loader.Get(ctx)
	if err != nil {
		return nil
	}
	return idx.HomophonesFor(word)
}

// Warm builds the index in the background path. A failure is not memoised,
// so the next HomophonesFor retries the build.
func (s *Service) Warm(ctx context.Context) error {
	return s.loader.Warm(ctx)
}

// Ready reports nil when the index is built, or an error describing the
// current loader state. Used as a readiness check.
func (s *Service) Ready(context.Context) error {
	if st := s.loader.State(); st != lazy.Ready {
		return fmt.Errorf("phonetic index %s", st)
	}
	return nil
}

// Invalidate discards the built index so the next lookup rebuilds it, for
// example after the dictionary file was replaced.
func (s *Service) Invalidate() {
	s.loader.Invalidate()
}
