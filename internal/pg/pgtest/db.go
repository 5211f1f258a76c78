// Package pgtest provides a shared PostgreSQL container for integration
// tests: started once per test run, migrated, then handed out as fresh pools.
package pgtest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"terminology/internal/pg"
)

var (
	once    sync.Once
	dsn     string
	initErr error
)

// Pool returns a pgxpool connected to the shared migrated database. The pool
// is closed via t.Cleanup; the container lives until the process exits.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	once.Do(func() {
		dsn, initErr = start()
	})
	if initErr != nil {
		t.Fatalf("pgtest: setup failed: %v", initErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgtest: create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool
}

func start() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("terminology_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return "", fmt.Errorf("connection string: %w", err)
	}

	db, err := pg.Open(connStr)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	if err := pg.Migrate(ctx, db); err != nil {
		return "", err
	}
	return connStr, nil
}
