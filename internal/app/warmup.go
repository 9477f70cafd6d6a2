package app

import (
	"context"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"
)

// prefetcher is implemented by models that can batch-load vectors ahead of
// use, such as remote.Model.
type prefetcher interface {
	Prefetch(ctx context.Context, words []string) error
}

// Warm loads the embedding model and the phonetic index concurrently,
// bounded by warmup.concurrency, then prefetches vectors for the override
// table's words when the model supports it. Failures are not memoised: the
// request path retries the load on demand.
func (a *App) Warm(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	if n := a.cfg.Load().Warmup.Concurrency; n > 0 {
		g.SetLimit(n)
	}
	g.Go(func() error { return a.models.Warm(gctx) })
	g.Go(func() error { return a.phonetic.Warm(gctx) })
	if err := g.Wait(); err != nil {
		return err
	}
	return a.prefetchOverrides(ctx)
}

func (a *App) warmInBackground(ctx context.Context) {
	if err := a.Warm(ctx); err != nil {
		slog.Warn("warm-up incomplete, resources will load on first use", "err", err)
		return
	}
	slog.Info("warm-up complete")
}

// prefetchOverrides seeds a remote model's cache with the candidate sets of
// every word the user has written an override for.
func (a *App) prefetchOverrides(ctx context.Context) error {
	m, err := a.models.Model(ctx)
	if err != nil {
		return err
	}
	p, ok := m.(prefetcher)
	if !ok {
		return nil
	}
	table, err := a.overrides.Load(ctx)
	if err != nil {
		slog.Debug("skipping prefetch, override table unavailable", "err", err)
		return nil
	}

	var words []string
	for k, replacement := range table {
		words = append(words, replacement)
		words = append(words, a.resolver.Candidates(ctx, k.Word)...)
	}
	slices.Sort(words)
	words = slices.Compact(words)
	if len(words) == 0 {
		return nil
	}
	return p.Prefetch(ctx, words)
}
