// Seed loads YAML refbook fixtures into the database. Typical use:
//
//	DATABASE_DSN=postgres://... go run ./cmd/seed -dir fixtures
package main

import (
	"context"
	"flag"
	"log"

	"terminology/internal/app"
	"terminology/internal/config"
	"terminology/internal/pg"
	"terminology/internal/seed"
)

func main() {
	dir := flag.String("dir", "fixtures", "directory with refbook fixture YAML files")
	migrateFirst := flag.Bool("migrate", false, "apply migrations before seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := app.NewLogger(cfg.Log)

	fixtures, err := seed.LoadDir(*dir)
	if err != nil {
		log.Fatalf("load fixtures: %v", err)
	}
	if len(fixtures) == 0 {
		log.Fatalf("no fixtures found in %s", *dir)
	}

	ctx := context.Background()

	if *migrateFirst {
		db, err := pg.Open(cfg.Database.DSN)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		if err := pg.Migrate(ctx, db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		_ = db.Close()
	}

	pool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	if err := seed.New(pool, logger).Apply(ctx, fixtures); err != nil {
		log.Fatalf("seed: %v", err)
	}
	logger.Info("seeding complete", "refbooks", len(fixtures))
}
