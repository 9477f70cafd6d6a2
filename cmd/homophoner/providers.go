package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/homophoner/internal/config"
	"github.com/MrWong99/homophoner/internal/resilience"
	"github.com/MrWong99/homophoner/pkg/provider/homophones"
	"github.com/MrWong99/homophoner/pkg/provider/homophones/csvfile"
	redishomophones "github.com/MrWong99/homophoner/pkg/provider/homophones/redis"
	"github.com/MrWong99/homophoner/pkg/provider/phonetic"
	"github.com/MrWong99/homophoner/pkg/provider/phonetic/cmudict"
	"github.com/MrWong99/homophoner/pkg/provider/phonetic/metaphone"
	"github.com/MrWong99/homophoner/pkg/provider/vectors"
	"github.com/MrWong99/homophoner/pkg/provider/vectors/glove"
	pgvectors "github.com/MrWong99/homophoner/pkg/provider/vectors/postgres"
	"github.com/MrWong99/homophoner/pkg/provider/vectors/remote"
	ollamaembed "github.com/MrWong99/homophoner/pkg/provider/vectors/remote/ollama"
	oaembed "github.com/MrWong99/homophoner/pkg/provider/vectors/remote/openai"
)

// defaultPostgresDimensions matches the glove-wiki-gigaword-50 model.
const defaultPostgresDimensions = 50

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Embedding models ──────────────────────────────────────────────────────

	reg.RegisterModel("glove", func(_ context.Context, entry config.ProviderEntry) (vectors.Model, error) {
		opts := []glove.Option{glove.WithLimit(entry.IntOption("limit", 0))}
		if entry.Model != "" {
			opts = append(opts, glove.WithModelID(entry.Model))
		}
		return glove.Open(entry.Path, opts...)
	})

	reg.RegisterModel("postgres", func(ctx context.Context, entry config.ProviderEntry) (vectors.Model, error) {
		var opts []pgvectors.Option
		if entry.Model != "" {
			opts = append(opts, pgvectors.WithModelID(entry.Model))
		}
		return pgvectors.NewStore(ctx, entry.DSN, entry.IntOption("dimensions", defaultPostgresDimensions), opts...)
	})

	reg.RegisterModel("openai", func(_ context.Context, entry config.ProviderEntry) (vectors.Model, error) {
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		if secs := entry.IntOption("timeout_seconds", 0); secs > 0 {
			opts = append(opts, oaembed.WithTimeout(time.Duration(secs)*time.Second))
		}
		e, err := oaembed.New(entry.APIKey, entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return remote.New(e, remote.WithCircuitBreaker(breakerConfig(entry))), nil
	})

	reg.RegisterModel("ollama", func(_ context.Context, entry config.ProviderEntry) (vectors.Model, error) {
		var opts []ollamaembed.Option
		if secs := entry.IntOption("timeout_seconds", 0); secs > 0 {
			opts = append(opts, ollamaembed.WithTimeout(time.Duration(secs)*time.Second))
		}
		e, err := ollamaembed.New(entry.BaseURL, entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return remote.New(e, remote.WithCircuitBreaker(breakerConfig(entry))), nil
	})

	// ── Pronunciation dictionaries ────────────────────────────────────────────

	reg.RegisterPhonetic("cmudict", func(entry config.ProviderEntry) (phonetic.Dictionary, error) {
		var opts []cmudict.Option
		if entry.URL != "" {
			opts = append(opts, cmudict.WithURL(entry.URL))
		}
		return cmudict.New(entry.Path, opts...)
	})

	reg.RegisterPhonetic("metaphone", func(entry config.ProviderEntry) (phonetic.Dictionary, error) {
		return metaphone.New(entry.Path)
	})

	// ── User homophones ───────────────────────────────────────────────────────

	reg.RegisterHomophones("csv", func(_ context.Context, entry config.ProviderEntry) (homophones.Source, error) {
		return csvfile.New(entry.Path)
	})

	reg.RegisterHomophones("redis", func(ctx context.Context, entry config.ProviderEntry) (homophones.Source, error) {
		var opts []redishomophones.Option
		if prefix := optString(entry.Options, "key_prefix"); prefix != "" {
			opts = append(opts, redishomophones.WithKeyPrefix(prefix))
		}
		src, err := redishomophones.Dial(ctx, entry.BaseURL, entry.APIKey, entry.IntOption("db", 0), opts...)
		if err != nil {
			return nil, fmt.Errorf("redis homophones at %s: %w", entry.BaseURL, err)
		}
		return src, nil
	})

	for kind, names := range config.ValidProviderNames {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// breakerConfig reads the circuit breaker tuning of a remote model.
func breakerConfig(entry config.ProviderEntry) resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		Name:        "model/" + entry.Name,
		MaxFailures: entry.IntOption("max_failures", 0),
		Cooldown:    time.Duration(entry.IntOption("cooldown_seconds", 0)) * time.Second,
	}
}

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	s, _ := opts[key].(string)
	return s
}
