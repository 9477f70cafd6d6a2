package homophone

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/homophoner/internal/homophone/overrides"
	"github.com/MrWong99/homophoner/internal/observe"
)

// ErrModelUnavailable is returned when the embedding model cannot be loaded.
// It is the only error [Resolver.Resolve] surfaces; every missing-data case
// has a defined fallback.
var ErrModelUnavailable = errors.New("homophone: embedding model unavailable")

// Outcome names the terminal state of a resolution.
type Outcome string

const (
	// OutcomeIdentity means no candidates were known; the word is returned
	// unchanged.
	OutcomeIdentity Outcome = observe.OutcomeIdentity

	// OutcomeOverride means an override table entry decided the result.
	OutcomeOverride Outcome = observe.OutcomeOverride

	// OutcomeScored means the semantic scorer decided the result. This
	// includes the unscored first-candidate fallback for empty contexts.
	OutcomeScored Outcome = observe.OutcomeScored
)

// Resolution describes how a word was resolved.
type Resolution struct {
	Word       string   `json:"word"`
	Outcome    Outcome  `json:"outcome"`
	Candidates []string `json:"candidates,omitempty"`
	Scores     []Score  `json:"scores,omitempty"`
}

// OverrideSource loads the override table. Satisfied by *overrides.Store.
type OverrideSource interface {
	Load(ctx context.Context) (overrides.Table, error)
}

// Resolver is the single entry point for homophone resolution. Safe for
// concurrent use.
type Resolver struct {
	candidates *Candidates
	overrides  OverrideSource
	models     ModelSource
	scorer     Scorer
	metrics    *observe.Metrics
}

// Option is a functional option for NewResolver.
type Option func(*Resolver)

// WithOverrides sets the override table source. Without it no overrides
// apply.
func WithOverrides(o OverrideSource) Option {
	return func(r *Resolver) {
		r.overrides = o
	}
}

// WithMetrics sets the metrics recorder. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// NewResolver wires a Resolver.
func NewResolver(candidates *Candidates, models ModelSource, opts ...Option) *Resolver {
	r := &Resolver{candidates: candidates, models: models}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r
}

// Candidates returns the candidate list for word (nil when unknown).
func (r *Resolver) Candidates(ctx context.Context, word string) []string {
	return r.candidates.For(ctx, word)
}

// Resolve returns the spelling of word that best fits contextText. The only
// error is [ErrModelUnavailable].
func (r *Resolver) Resolve(ctx context.Context, word, contextText string) (string, error) {
	res, err := r.Explain(ctx, word, contextText)
	if err != nil {
		return "", err
	}
	return res.Word, nil
}

// Explain resolves like [Resolver.Resolve] and reports how the result was
// reached.
func (r *Resolver) Explain(ctx context.Context, word, contextText string) (res Resolution, err error) {
	ctx, span := observe.StartSpan(ctx, "homophone.Resolve", trace.WithAttributes(attribute.String("homophone.word", word)))
	start := time.Now()
	defer func() {
		outcome := string(res.Outcome)
		if err != nil {
			outcome = observe.OutcomeError
		}
		span.SetAttributes(attribute.String("homophone.outcome", outcome))
		r.metrics.RecordResolution(ctx, outcome, time.Since(start))
		observe.Finish(span, err)
	}()

	log := observe.Logger(ctx)

	candidates := r.candidates.For(ctx, word)
	if len(candidates) == 0 {
		log.Debug("no homophones registered", "word", word)
		return Resolution{Word: word, Outcome: OutcomeIdentity}, nil
	}

	if hit, ok := r.override(ctx, word, contextText, candidates); ok {
		log.Debug("override matched", "word", word, "context", contextText, "replacement", hit)
		return Resolution{Word: hit, Outcome: OutcomeOverride, Candidates: candidates}, nil
	}

	model, err := r.models.Model(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}

	rk := r.scorer.Rank(ctx, model, candidates, contextText)
	log.Debug("candidates ranked", "word", word, "best", rk.Best, "scored", rk.Scored, "scores", rk.Scores)
	return Resolution{
		Word:       rk.Best,
		Outcome:    OutcomeScored,
		Candidates: candidates,
		Scores:     rk.Scores,
	}, nil
}

// override checks the table for the word itself, then each candidate.
func (r *Resolver) override(ctx context.Context, word, contextText string, candidates []string) (string, bool) {
	if r.overrides == nil {
		return "", false
	}
	table, err := r.overrides.Load(ctx)
	if err != nil {
		observe.Logger(ctx).Warn("override table unavailable, skipping overrides", "err", err)
		return "", false
	}
	if hit, ok := table.Lookup(word, contextText); ok {
		return hit, true
	}
	for _, c := range candidates {
		if hit, ok := table.Lookup(c, contextText); ok {
			return hit, true
		}
	}
	return "", false
}
