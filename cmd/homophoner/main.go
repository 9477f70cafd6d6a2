// Command homophoner resolves dictated homophones to the spelling that fits
// their context.
//
// Usage:
//
//	homophoner [-config file] serve
//	homophoner [-config file] resolve WORD CONTEXT...
//	homophoner [-config file] candidates WORD
//	homophoner [-config file] override WORD CONTEXT REPLACEMENT
//	homophoner [-config file] edit
//	homophoner [-config file] import [-from vectors.txt] [-dsn DSN] [-dimensions N]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MrWong99/homophoner/internal/app"
	"github.com/MrWong99/homophoner/internal/config"
	"github.com/MrWong99/homophoner/internal/homophone"
	"github.com/MrWong99/homophoner/internal/observe"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "homophoner.yaml", "path to the YAML configuration file")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		return 2
	}
	cmd, args := args[0], args[1:]

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "homophoner: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "homophoner: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	var level slog.LevelVar
	level.Set(app.SlogLevel(cfg.Server.LogLevel))
	slog.SetDefault(newLogger(&level))

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	switch cmd {
	case "serve":
		return serve(ctx, cfg, reg, *configPath, &level)
	case "resolve":
		return resolve(ctx, cfg, reg, args)
	case "candidates":
		return candidates(ctx, cfg, reg, args)
	case "override":
		return override(ctx, cfg, reg, args)
	case "edit":
		return edit(ctx, cfg, reg)
	case "import":
		return importVectors(ctx, cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "homophoner: unknown command %q\n", cmd)
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: homophoner [-config file] <command> [args]

Commands:
  serve                               run the HTTP service
  resolve WORD CONTEXT...             print the best spelling of WORD
  candidates WORD                     list the spellings of WORD
  override WORD CONTEXT REPLACEMENT   record an override
  edit                                open the override file in $EDITOR
  import                              copy a GloVe file into PostgreSQL

Flags:
`)
	flag.PrintDefaults()
}

// ── serve ─────────────────────────────────────────────────────────────────────

func serve(ctx context.Context, cfg *config.Config, reg *config.Registry, configPath string, level *slog.LevelVar) int {
	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	slog.Info("homophoner starting",
		"version", version,
		"config", configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"model", cfg.Model.Name,
		"phonetic", cfg.Phonetic.Name,
		"homophones", cfg.Homophones.Name,
	)

	application, err := app.New(ctx, cfg, reg,
		app.WithLogLevel(level),
		app.WithConfigFile(configPath),
		app.WithMetricsHandler(tel.Handler),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	slog.Info("override file", "path", application.Overrides().Path())

	code := 0
	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		code = 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return code
}

// ── one-shot commands ─────────────────────────────────────────────────────────

// newApp builds an App for a single command. Warm-up is skipped: one-shot
// commands load what they touch.
func newApp(ctx context.Context, cfg *config.Config, reg *config.Registry) (*app.App, func(), error) {
	a, err := app.New(ctx, cfg, reg)
	if err != nil {
		return nil, nil, err
	}
	return a, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Shutdown(sctx)
	}, nil
}

func resolve(ctx context.Context, cfg *config.Config, reg *config.Registry, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: homophoner resolve WORD [CONTEXT...]")
		return 2
	}
	a, closeApp, err := newApp(ctx, cfg, reg)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	defer closeApp()

	res, err := a.Resolver().Explain(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		if errors.Is(err, homophone.ErrModelUnavailable) {
			fmt.Fprintf(os.Stderr, "homophoner: %v\n", err)
		} else {
			slog.Error("resolve failed", "err", err)
		}
		return 1
	}
	fmt.Println(res.Word)
	for _, s := range res.Scores {
		slog.Debug("candidate score", "word", s.Word, "score", s.Score)
	}
	return 0
}

func candidates(ctx context.Context, cfg *config.Config, reg *config.Registry, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: homophoner candidates WORD")
		return 2
	}
	a, closeApp, err := newApp(ctx, cfg, reg)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	defer closeApp()

	out, err := json.Marshal(a.Resolver().Candidates(ctx, args[0]))
	if err != nil {
		slog.Error("encode candidates", "err", err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}

func override(ctx context.Context, cfg *config.Config, reg *config.Registry, args []string) int {
	if len(args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: homophoner override WORD CONTEXT REPLACEMENT")
		return 2
	}
	a, closeApp, err := newApp(ctx, cfg, reg)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	defer closeApp()

	if err := a.Overrides().Set(ctx, args[0], args[1], args[2]); err != nil {
		fmt.Fprintf(os.Stderr, "homophoner: %v\n", err)
		return 1
	}
	fmt.Printf("%s + %q -> %s\n", args[0], args[1], args[2])
	return 0
}

// edit ensures the override file exists and opens it in $EDITOR, or prints
// its path when no editor is set.
func edit(ctx context.Context, cfg *config.Config, reg *config.Registry) int {
	a, closeApp, err := newApp(ctx, cfg, reg)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	defer closeApp()

	path, err := a.Overrides().EnsureFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "homophoner: %v\n", err)
		return 1
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		fmt.Println(path)
		return 0
	}

	fields := strings.Fields(editor)
	c := exec.CommandContext(ctx, fields[0], append(fields[1:], path)...)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "homophoner: editor: %v\n", err)
		return 1
	}
	return 0
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
