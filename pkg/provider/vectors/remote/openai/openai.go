// Package openai provides a remote.Embedder backed by the OpenAI embeddings
// API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/homophoner/pkg/provider/vectors/remote"
)

// DefaultModel is the default OpenAI embeddings model.
const DefaultModel = oai.EmbeddingModelTextEmbedding3Small

var _ remote.Embedder = (*Embedder)(nil)

// Embedder implements remote.Embedder using the OpenAI API.
type Embedder struct {
	client oai.Client
	model  string
}

type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for New.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL (useful for
// OpenAI-compatible gateways).
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs an OpenAI Embedder. If model is empty, DefaultModel is used.
func New(apiKey string, model string, opts ...Option) (*Embedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai embedder: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Embedder{client: oai.NewClient(reqOpts...), model: model}, nil
}

// EmbedWords implements remote.Embedder with a single batched request.
func (e *Embedder) EmbedWords(ctx context.Context, words []string) ([][]float32, error) {
	if len(words) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
		Model: e.model,
		Input: oai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: words,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedder: %w", err)
	}
	if len(resp.Data) != len(words) {
		return nil, fmt.Errorf("openai embedder: expected %d embeddings, got %d", len(words), len(resp.Data))
	}

	out := make([][]float32, len(words))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(words) {
			return nil, fmt.Errorf("openai embedder: unexpected index %d", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	return out, nil
}

// ModelID implements remote.Embedder.
func (e *Embedder) ModelID() string { return e.model }
