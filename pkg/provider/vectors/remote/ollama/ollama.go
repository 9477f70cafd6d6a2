// Package ollama provides a remote.Embedder backed by a local Ollama server.
//
// It calls Ollama's native /api/embed endpoint, which accepts a batch of
// inputs in a single request. Only net/http and encoding/json are needed; the
// endpoint is a single JSON POST.
//
// Example:
//
//	e, err := ollama.New("", "nomic-embed-text") // http://localhost:11434
//	m := remote.New(e)
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/homophoner/pkg/provider/vectors/remote"
)

// DefaultBaseURL is the default base URL for a locally running Ollama instance.
const DefaultBaseURL = "http://localhost:11434"

var _ remote.Embedder = (*Embedder)(nil)

// Embedder implements remote.Embedder against Ollama. Safe for concurrent use.
type Embedder struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option is a functional option for New.
type Option func(*Embedder)

// WithTimeout sets a per-request HTTP timeout. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Embedder) {
		e.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the HTTP client (used by tests with httptest).
func WithHTTPClient(c *http.Client) Option {
	return func(e *Embedder) {
		e.httpClient = c
	}
}

// New constructs an Ollama Embedder. An empty baseURL selects DefaultBaseURL.
// model must not be empty.
func New(baseURL, model string, opts ...Option) (*Embedder, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama embedder: model must not be empty")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	e := &Embedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EmbedWords implements remote.Embedder.
func (e *Embedder) EmbedWords(ctx context.Context, words []string) ([][]float32, error) {
	if len(words) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{Model: e.model, Input: words})
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embedder: unexpected status %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ollama embedder: decode response: %w", err)
	}
	if len(out.Embeddings) != len(words) {
		return nil, fmt.Errorf("ollama embedder: expected %d embeddings, got %d", len(words), len(out.Embeddings))
	}
	return out.Embeddings, nil
}

// ModelID implements remote.Embedder.
func (e *Embedder) ModelID() string { return e.model }
