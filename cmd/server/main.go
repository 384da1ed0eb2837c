package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/GetStream/social-graph/api"
	"github.com/GetStream/social-graph/api/validator"
	"github.com/GetStream/social-graph/config"
	"github.com/GetStream/social-graph/graph"
	"github.com/GetStream/social-graph/redis"
	"github.com/GetStream/social-graph/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := config.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("Closing database...")
		_ = db.Close()
	}()
	if err := db.CreateSchema(ctx); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	g, err := newGraph(ctx, db, log)
	if err != nil {
		return err
	}

	a := &api.API{
		Logger: log,
		Graph:  g,
		DB:     db,
		Val:    validator.New(),
	}
	if cfg.RedisAddr != "" {
		cache, err := redis.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer func() { _ = cache.Close() }()
		a.Cache = cache
		log.Info("Connected to Redis", "addr", cfg.RedisAddr)
	}

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: a,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("Server stopped cleanly")
	return nil
}

// openStore connects to PostgreSQL when a DSN is configured and falls back to
// a local SQLite file otherwise.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (*store.Store, error) {
	if cfg.PostgresDSN != "" {
		db, err := store.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		log.Info("Connected to PostgreSQL")
		return db, nil
	}
	db, err := store.OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	log.Info("Opened SQLite database", "path", cfg.SQLitePath)
	return db, nil
}

// newGraph returns an empty graph whose id sequences continue after the ids
// already stored in db.
func newGraph(ctx context.Context, db *store.Store, log *slog.Logger) (*graph.Graph, error) {
	last, err := db.MaxIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("read stored ids: %w", err)
	}
	ids := graph.NewIDAllocator()
	for kind, id := range last {
		ids.Advance(kind, id)
		log.Info("Continuing id sequence", "kind", kind.String(), "last_id", id)
	}
	return graph.New(graph.WithLogger(log), graph.WithIDAllocator(ids)), nil
}
