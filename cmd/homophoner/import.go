package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/MrWong99/homophoner/internal/config"
	"github.com/MrWong99/homophoner/pkg/provider/vectors/glove"
	pgvectors "github.com/MrWong99/homophoner/pkg/provider/vectors/postgres"
)

// importVectors copies a GloVe vectors file into the PostgreSQL word_vectors
// table so that the postgres model provider can serve it without loading
// the file into memory.
func importVectors(ctx context.Context, cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	from := fs.String("from", "", "GloVe/word2vec text file to import (default: model.path of a glove config)")
	dsn := fs.String("dsn", cfg.Model.DSN, "PostgreSQL connection string (default: model.dsn)")
	limit := fs.Int("limit", 0, "import only the first N words (0 = all)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *from == "" && cfg.Model.Name == "glove" {
		*from = cfg.Model.Path
	}
	if *from == "" || *dsn == "" {
		fmt.Fprintln(os.Stderr, "usage: homophoner import -from vectors.txt -dsn postgres://...")
		return 2
	}

	start := time.Now()
	src, err := glove.Open(*from, glove.WithLimit(*limit))
	if err != nil {
		slog.Error("failed to open vectors file", "path", *from, "err", err)
		return 1
	}
	slog.Info("vectors file loaded", "path", *from, "words", src.Len(), "dims", src.Dimensions())

	store, err := pgvectors.NewStore(ctx, *dsn, src.Dimensions(), pgvectors.WithModelID(src.ModelID()))
	if err != nil {
		slog.Error("failed to connect to postgres", "err", err)
		return 1
	}
	defer store.Close()

	n, err := store.Import(ctx, src)
	if err != nil {
		slog.Error("import failed", "imported", n, "err", err)
		return 1
	}
	slog.Info("import complete", "words", n, "duration", time.Since(start))
	return 0
}
