package config

import "reflect"

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// ModelChanged is true when the model block differs. The running service
	// applies it by reloading the embedding model on next use.
	ModelChanged bool

	// RestartRequired lists changed sections that only take effect after a
	// restart.
	RestartRequired []string
}

// Empty reports whether nothing relevant changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.ModelChanged && len(d.RestartRequired) == 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !reflect.DeepEqual(old.Model, new.Model) {
		d.ModelChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr || old.Server.MetricsPath != new.Server.MetricsPath {
		d.RestartRequired = append(d.RestartRequired, "server")
	}
	if !reflect.DeepEqual(old.Phonetic, new.Phonetic) {
		d.RestartRequired = append(d.RestartRequired, "phonetic")
	}
	if !reflect.DeepEqual(old.Homophones, new.Homophones) {
		d.RestartRequired = append(d.RestartRequired, "homophones")
	}
	if old.Overrides != new.Overrides {
		d.RestartRequired = append(d.RestartRequired, "overrides")
	}
	if old.Warmup.IsEnabled() != new.Warmup.IsEnabled() || old.Warmup.Concurrency != new.Warmup.Concurrency {
		d.RestartRequired = append(d.RestartRequired, "warmup")
	}

	return d
}
