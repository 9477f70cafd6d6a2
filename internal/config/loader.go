package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [ApplyDefaults].
const (
	DefaultListenAddr  = "127.0.0.1:7357"
	DefaultMetricsPath = "/metrics"
	DefaultPhonetic    = "cmudict"
	DefaultConcurrency = 2
	DefaultCMUdictFile = "cmudict.dict"
	DefaultModelName   = "glove-wiki-gigaword-50"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"model":      {"glove", "postgres", "openai", "ollama"},
	"phonetic":   {"cmudict", "metaphone"},
	"homophones": {"csv", "redis"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result. An empty document yields the default config.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DataDir returns the directory downloaded datasets are stored in by default:
// "homophoner" below the user cache directory, or the working directory when
// no cache directory is known.
func DataDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "homophoner")
}

// ApplyDefaults fills unset fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.MetricsPath == "" {
		cfg.Server.MetricsPath = DefaultMetricsPath
	}
	if cfg.Model.Name == "glove" && cfg.Model.Model == "" {
		cfg.Model.Model = DefaultModelName
	}
	if cfg.Phonetic.Name == "" {
		cfg.Phonetic.Name = DefaultPhonetic
	}
	if cfg.Phonetic.Name == "cmudict" && cfg.Phonetic.Path == "" {
		cfg.Phonetic.Path = filepath.Join(DataDir(), DefaultCMUdictFile)
	}
	if cfg.Warmup.Concurrency == 0 {
		cfg.Warmup.Concurrency = DefaultConcurrency
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	validateProviderName("model", cfg.Model.Name)
	validateProviderName("phonetic", cfg.Phonetic.Name)
	validateProviderName("homophones", cfg.Homophones.Name)

	// Model
	switch cfg.Model.Name {
	case "":
		errs = append(errs, errors.New("model.name is required"))
	case "glove":
		if cfg.Model.Path == "" {
			errs = append(errs, errors.New("model.path is required for the glove provider"))
		}
	case "postgres":
		if cfg.Model.DSN == "" {
			errs = append(errs, errors.New("model.dsn is required for the postgres provider"))
		}
	case "openai":
		if cfg.Model.APIKey == "" {
			errs = append(errs, errors.New("model.api_key is required for the openai provider"))
		}
	case "ollama":
		if cfg.Model.Model == "" {
			errs = append(errs, errors.New("model.model is required for the ollama provider"))
		}
	}

	// Phonetic dictionary
	if cfg.Phonetic.Name == "metaphone" && cfg.Phonetic.Path == "" {
		errs = append(errs, errors.New("phonetic.path is required for the metaphone provider"))
	}

	// User homophones
	switch cfg.Homophones.Name {
	case "csv":
		if cfg.Homophones.Path == "" {
			errs = append(errs, errors.New("homophones.path is required for the csv provider"))
		}
	case "redis":
		if cfg.Homophones.BaseURL == "" {
			errs = append(errs, errors.New("homophones.base_url is required for the redis provider"))
		}
	case "":
		slog.Debug("no user homophone source configured; only the phonetic fallback will supply candidates")
	}

	if cfg.Warmup.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("warmup.concurrency %d must not be negative", cfg.Warmup.Concurrency))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or a custom registration",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
