// Package app assembles the service: logger, database, migrations, router,
// HTTP server lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"terminology/internal/api"
	"terminology/internal/config"
	"terminology/internal/pg"
	"terminology/internal/refbook"
)

// Run starts the service and blocks until ctx is cancelled or the server
// fails. Shutdown drains in-flight requests within the configured timeout.
func Run(ctx context.Context, cfg *config.Config) error {
	log := NewLogger(cfg.Log)

	if cfg.Database.AutoMigrate {
		if err := migrate(ctx, cfg.Database.DSN); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	pool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	svc := refbook.NewService(refbook.NewRepo(pool), log)
	router := api.NewRouter(svc, log, pool.Ping)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info("server started", slog.String("addr", srv.Addr))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutting down")
		shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func migrate(ctx context.Context, dsn string) error {
	db, err := pg.Open(dsn)
	if err != nil {
		return fmt.Errorf("database (migrate): %w", err)
	}
	defer db.Close()
	return pg.Migrate(ctx, db)
}

// NewLogger builds a slog.Logger from LogConfig and installs it as the
// default. Format "json" is for production, "text" adds source locations for
// development.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: strings.EqualFold(cfg.Format, "text"),
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
