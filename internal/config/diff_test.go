package config_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/homophoner/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{ListenAddr: "127.0.0.1:7357", LogLevel: config.LogInfo, MetricsPath: "/metrics"},
		Model:    config.ProviderEntry{Name: "glove", Path: "/data/glove.txt", Model: "glove-wiki-gigaword-50"},
		Phonetic: config.ProviderEntry{Name: "cmudict", Path: "/data/cmudict.dict"},
		Warmup:   config.WarmupConfig{Concurrency: 2},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()

	d := config.Diff(baseConfig(), baseConfig())
	if !d.Empty() {
		t.Errorf("expected empty diff, got %+v", d)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()

	next := baseConfig()
	next.Server.LogLevel = config.LogDebug
	d := config.Diff(baseConfig(), next)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("got %+v, want log level change to debug", d)
	}
	if len(d.RestartRequired) != 0 {
		t.Errorf("log level change must not require restart: %v", d.RestartRequired)
	}
}

func TestDiff_ModelChanged(t *testing.T) {
	t.Parallel()

	next := baseConfig()
	next.Model.Path = "/data/glove.6B.100d.txt"
	d := config.Diff(baseConfig(), next)
	if !d.ModelChanged {
		t.Error("expected ModelChanged")
	}
	if d.LogLevelChanged || len(d.RestartRequired) != 0 {
		t.Errorf("unexpected extra changes: %+v", d)
	}
}

func TestDiff_ModelOptionsChanged(t *testing.T) {
	t.Parallel()

	old := baseConfig()
	old.Model.Options = map[string]any{"max_words": 1000}
	next := baseConfig()
	next.Model.Options = map[string]any{"max_words": 2000}
	if d := config.Diff(old, next); !d.ModelChanged {
		t.Error("expected ModelChanged for differing options")
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()

	next := baseConfig()
	next.Server.ListenAddr = "0.0.0.0:8080"
	next.Phonetic = config.ProviderEntry{Name: "metaphone", Path: "/data/words.txt"}
	next.Homophones = config.ProviderEntry{Name: "csv", Path: "/data/h.csv"}
	next.Overrides.Path = "other.csv"
	disabled := false
	next.Warmup.Enabled = &disabled

	d := config.Diff(baseConfig(), next)
	want := []string{"server", "phonetic", "homophones", "overrides", "warmup"}
	if !slices.Equal(d.RestartRequired, want) {
		t.Errorf("RestartRequired = %v, want %v", d.RestartRequired, want)
	}
	if d.ModelChanged {
		t.Error("model did not change")
	}
}
