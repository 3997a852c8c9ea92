package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/supernova-store/db"
	"github.com/xenking/supernova-store/internal/domain/catalog"
	"github.com/xenking/supernova-store/internal/storage/file"
	"github.com/xenking/supernova-store/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "", "catalog document (.json or .json.gz); empty uses the built-in seed")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	var src catalog.Source = &file.DocumentSource{Name: "products.json", Data: db.SeedProducts}
	if productsFile != "" {
		src = file.NewCatalogSource(productsFile)
	}
	items, err := src.Load(ctx)
	if err != nil {
		return errors.Wrapf(err, "load %s", src)
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "migrations")
	}

	slog.Info("seeding products", slog.Int("count", len(items)), slog.String("source", src.String()))
	if err := postgres.Upsert(ctx, pool, items); err != nil {
		return errors.Wrap(err, "upsert products")
	}
	return nil
}
