// Package app wires the Homophoner subsystems into a running service.
//
// The App struct owns the full lifecycle: New constructs every subsystem
// from the config and provider registry, Run serves the HTTP host surface
// and dispatches warm-up, and Shutdown tears everything down in order.
//
// Providers are always created through the [config.Registry], so tests
// register mock factories instead of injecting subsystems directly.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/homophoner/internal/config"
	"github.com/MrWong99/homophoner/internal/homophone"
	"github.com/MrWong99/homophoner/internal/homophone/overrides"
	"github.com/MrWong99/homophoner/internal/homophone/phonetic"
	"github.com/MrWong99/homophoner/internal/observe"
	"github.com/MrWong99/homophoner/pkg/provider/homophones"
	"github.com/MrWong99/homophoner/pkg/provider/vectors"
)

// App owns all subsystem lifetimes.
type App struct {
	cfg      atomic.Pointer[config.Config]
	registry *config.Registry

	metrics    *observe.Metrics
	logLevel   *slog.LevelVar
	configPath string
	metricsH   http.Handler

	models    *homophone.ModelLoader
	phonetic  *phonetic.Service
	user      homophones.Source
	overrides *overrides.Store
	resolver  *homophone.Resolver

	// warmCtx scopes background warm-ups to Run.
	warmMu  sync.Mutex
	warmCtx context.Context

	// closers are called in order during Shutdown.
	closersMu sync.Mutex
	closers   []func() error

	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithMetrics sets the metrics recorder. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogLevel lets config reloads adjust the level of the process logger.
func WithLogLevel(lv *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = lv }
}

// WithMetricsHandler sets the handler mounted on server.metrics_path,
// normally [observe.Telemetry.Handler].
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.metricsH = h }
}

// WithConfigFile makes Run watch path and apply changes as they are saved.
func WithConfigFile(path string) Option {
	return func(a *App) { a.configPath = path }
}

// New creates an App from cfg. Construction is cheap: the embedding model
// and phonetic index load on first use or during warm-up.
func New(ctx context.Context, cfg *config.Config, reg *config.Registry, opts ...Option) (*App, error) {
	a := &App{registry: reg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	a.cfg.Store(cfg)

	// ── Phonetic index ───────────────────────────────────────────────────
	dict, err := reg.CreatePhonetic(cfg.Phonetic)
	if err != nil {
		return nil, fmt.Errorf("app: create phonetic dictionary %q: %w", cfg.Phonetic.Name, err)
	}
	a.phonetic = phonetic.NewService(dict, phonetic.WithMetrics(a.metrics))

	// ── User homophones (optional) ───────────────────────────────────────
	if name := cfg.Homophones.Name; name != "" {
		src, err := reg.CreateHomophones(ctx, cfg.Homophones)
		if err != nil {
			return nil, fmt.Errorf("app: create homophone source %q: %w", name, err)
		}
		a.user = src
		a.addCloser(src)
		slog.Info("user homophone source configured", "name", name)
	}

	// ── Override store ───────────────────────────────────────────────────
	path, err := overrides.ResolvePath(cfg.Overrides.Path, cfg.Overrides.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.overrides = overrides.New(path, overrides.WithMetrics(a.metrics))
	if err := a.overrides.Initialize(); err != nil {
		slog.Warn("override file could not be initialised, overrides disabled until it can", "path", path, "err", err)
	}

	// ── Embedding model ──────────────────────────────────────────────────
	a.models = homophone.NewModelLoader(a.openModel, homophone.WithLoaderMetrics(a.metrics))

	a.resolver = homophone.NewResolver(
		homophone.NewCandidates(a.user, a.phonetic),
		a.models,
		homophone.WithOverrides(a.overrides),
		homophone.WithMetrics(a.metrics),
	)
	return a, nil
}

// openModel creates the model named by the current config.
func (a *App) openModel(ctx context.Context) (vectors.Model, error) {
	entry := a.cfg.Load().Model
	m, err := a.registry.CreateModel(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("create model %q: %w", entry.Name, err)
	}
	a.addCloser(m)
	return m, nil
}

// addCloser registers v for Shutdown when it holds resources.
func (a *App) addCloser(v any) {
	var fn func() error
	switch c := v.(type) {
	case io.Closer:
		fn = c.Close
	case interface{ Close() }:
		fn = func() error { c.Close(); return nil }
	default:
		return
	}
	a.closersMu.Lock()
	a.closers = append(a.closers, fn)
	a.closersMu.Unlock()
}

// Resolver returns the resolver, for hosts that embed the App.
func (a *App) Resolver() *homophone.Resolver { return a.resolver }

// Overrides returns the override store.
func (a *App) Overrides() *overrides.Store { return a.overrides }

// Config returns the config currently in effect.
func (a *App) Config() *config.Config { return a.cfg.Load() }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves the HTTP surface on the configured listen address, dispatches
// warm-up and, when configured, watches the config file. It blocks until
// ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	cfg := a.cfg.Load()

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.warmMu.Lock()
	a.warmCtx = ctx
	a.warmMu.Unlock()
	if cfg.Warmup.IsEnabled() {
		go a.warmInBackground(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if a.configPath != "" {
		w, err := config.NewWatcher(a.configPath, a.ApplyConfig)
		if err != nil {
			slog.Warn("config watcher disabled", "path", a.configPath, "err", err)
		} else {
			g.Go(func() error { return w.Run(gctx) })
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// ApplyConfig applies a reloaded config. The log level and the model
// selection take effect immediately; other changes are logged as needing a
// restart.
func (a *App) ApplyConfig(old, new *config.Config) {
	d := config.Diff(old, new)
	if d.Empty() {
		return
	}
	a.cfg.Store(new)

	if d.LogLevelChanged && a.logLevel != nil {
		a.logLevel.Set(SlogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}

	if d.ModelChanged {
		slog.Info("embedding model configuration changed, reloading", "name", new.Model.Name, "model", new.Model.Model)
		a.models.Invalidate()
		a.warmMu.Lock()
		ctx := a.warmCtx
		a.warmMu.Unlock()
		if ctx != nil && new.Warmup.IsEnabled() {
			go func() {
				if err := a.models.Warm(ctx); err != nil {
					slog.Warn("model warm-up after reload failed", "err", err)
				}
			}()
		}
	}

	if len(d.RestartRequired) > 0 {
		slog.Warn("configuration changes require a restart to take effect", "sections", d.RestartRequired)
	}
}

// SlogLevel maps a config log level to its slog equivalent.
func SlogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown releases provider resources. It respects the context deadline:
// if ctx expires before all closers finish, remaining closers are skipped
// and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.closersMu.Lock()
		closers := a.closers
		a.closersMu.Unlock()

		slog.Info("shutting down", "closers", len(closers))
		for i, closer := range closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}
