// Package config provides the configuration schema, loader, and provider
// registry for the Homophoner service.
package config

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Homophoner.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server ServerConfig `yaml:"server"`

	// Model selects the embedding model used for semantic scoring.
	Model ProviderEntry `yaml:"model"`

	// Phonetic selects the pronunciation dictionary behind the phonetic
	// homophone fallback.
	Phonetic ProviderEntry `yaml:"phonetic"`

	// Homophones selects the user-curated homophone source. Optional.
	Homophones ProviderEntry `yaml:"homophones"`

	Overrides OverridesConfig `yaml:"overrides"`
	Warmup    WarmupConfig    `yaml:"warmup"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address of the HTTP host surface
	// (default "127.0.0.1:7357").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity (default "info").
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsPath is the path the Prometheus handler is mounted on
	// (default "/metrics"). Set to "-" to disable it.
	MetricsPath string `yaml:"metrics_path"`
}

// ProviderEntry is the common configuration block shared by all provider
// kinds. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g. "glove",
	// "cmudict", "redis").
	Name string `yaml:"name"`

	// Model selects a model within the provider (e.g.
	// "glove-wiki-gigaword-50", "text-embedding-3-small").
	Model string `yaml:"model"`

	// Path points to a local data file (vectors, dictionary, word list,
	// homophones.csv).
	Path string `yaml:"path"`

	// URL is a download location for datasets that can be fetched on demand.
	URL string `yaml:"url"`

	// BaseURL overrides the provider's default API endpoint, or holds the
	// host:port address for Redis.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against hosted APIs, or is the Redis password.
	APIKey string `yaml:"api_key"`

	// DSN is a database connection string (postgres provider).
	DSN string `yaml:"dsn"`

	// Options holds provider-specific values not covered above.
	Options map[string]any `yaml:"options"`
}

// OverridesConfig locates the override CSV file.
type OverridesConfig struct {
	// Path is the override file. Relative paths are resolved against
	// BaseDir. Default "homophoner_overrides.csv".
	Path string `yaml:"path"`

	// BaseDir anchors relative paths. Default: the user config directory
	// plus "/homophoner".
	BaseDir string `yaml:"base_dir"`
}

// WarmupConfig controls the background loads dispatched at startup.
type WarmupConfig struct {
	// Enabled toggles warm-up. Default true.
	Enabled *bool `yaml:"enabled"`

	// Concurrency bounds how many resources load in parallel. Default 2.
	Concurrency int `yaml:"concurrency"`
}

// IsEnabled reports whether warm-up should run.
func (w WarmupConfig) IsEnabled() bool {
	return w.Enabled == nil || *w.Enabled
}

// IntOption returns an integer option, accepting the numeric types yaml.v3
// produces. def is returned when the key is missing or not numeric.
func (e ProviderEntry) IntOption(key string, def int) int {
	switch v := e.Options[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}
