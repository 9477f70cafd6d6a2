// Package remote adapts a text-embedding API into a word-level vectors.Model.
//
// Hosted embedding services (OpenAI, Ollama, …) embed arbitrary text, so every
// non-empty word is "in vocabulary". The adapter caches each word's vector for
// the lifetime of the Model, since homophone candidates and common context
// words repeat constantly during dictation, and wraps every request in a
// circuit breaker so that an unreachable service fails fast instead of
// stalling each resolution on a network timeout.
package remote

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/MrWong99/homophoner/internal/resilience"
	"github.com/MrWong99/homophoner/pkg/provider/vectors"
)

var _ vectors.Model = (*Model)(nil)

// Embedder is implemented by remote embedding clients (see the openai and
// ollama subpackages).
//
// Implementations must be safe for concurrent use.
type Embedder interface {
	// EmbedWords returns one vector per input word, in input order.
	EmbedWords(ctx context.Context, words []string) ([][]float32, error)

	// ModelID returns the remote model identifier.
	ModelID() string
}

// Model is a cached, breaker-protected vectors.Model over an [Embedder].
type Model struct {
	embedder Embedder
	breaker  *resilience.CircuitBreaker

	mu    sync.RWMutex
	cache map[string][]float32
	dims  int
}

type config struct {
	breaker resilience.CircuitBreakerConfig
}

// Option is a functional option for New.
type Option func(*config)

// WithCircuitBreaker overrides the breaker configuration.
func WithCircuitBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(c *config) {
		c.breaker = cfg
	}
}

// New wraps e into a word-level Model.
func New(e Embedder, opts ...Option) *Model {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.breaker.Name == "" {
		cfg.breaker.Name = "vectors/" + e.ModelID()
	}
	return &Model{
		embedder: e,
		breaker:  resilience.NewCircuitBreaker(cfg.breaker),
		cache:    make(map[string][]float32),
	}
}

// Lookup implements vectors.Model. Blank words are out-of-vocabulary; every
// other word is embedded once and then served from the cache.
func (m *Model) Lookup(ctx context.Context, word string) ([]float32, bool, error) {
	if strings.TrimSpace(word) == "" {
		return nil, false, nil
	}

	m.mu.RLock()
	vec, ok := m.cache[word]
	m.mu.RUnlock()
	if ok {
		return vec, len(vec) > 0, nil
	}

	var vecs [][]float32
	err := m.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		vecs, err = m.embedder.EmbedWords(ctx, []string{word})
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("remote vectors: lookup %q: %w", word, err)
	}
	if len(vecs) != 1 {
		return nil, false, fmt.Errorf("remote vectors: lookup %q: expected 1 embedding, got %d", word, len(vecs))
	}

	vec = vecs[0]
	m.mu.Lock()
	m.cache[word] = vec
	if m.dims == 0 {
		m.dims = len(vec)
	}
	m.mu.Unlock()
	return vec, len(vec) > 0, nil
}

// Prefetch embeds every uncached word in a single batch request. Used by the
// warm-up task to seed the cache with known homophone candidates.
func (m *Model) Prefetch(ctx context.Context, words []string) error {
	m.mu.RLock()
	var missing []string
	for _, w := range words {
		if _, ok := m.cache[w]; !ok && strings.TrimSpace(w) != "" {
			missing = append(missing, w)
		}
	}
	m.mu.RUnlock()
	if len(missing) == 0 {
		return nil
	}

	var vecs [][]float32
	err := m.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		vecs, err = m.embedder.EmbedWords(ctx, missing)
		return err
	})
	if err != nil {
		return fmt.Errorf("remote vectors: prefetch: %w", err)
	}
	if len(vecs) != len(missing) {
		return fmt.Errorf("remote vectors: prefetch: expected %d embeddings, got %d", len(missing), len(vecs))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range missing {
		m.cache[w] = vecs[i]
		if m.dims == 0 {
			m.dims = len(vecs[i])
		}
	}
	return nil
}

// Dimensions implements vectors.Model. It is 0 until the first vector has
// been fetched.
func (m *Model) Dimensions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dims
}

// ModelID implements vectors.Model.
func (m *Model) ModelID() string { return m.embedder.ModelID() }

// Breaker exposes the circuit breaker state for readiness checks.
func (m *Model) Breaker() *resilience.CircuitBreaker { return m.breaker }
