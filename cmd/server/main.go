package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iammorganparry/clive/apps/semcache/internal/api"
	"github.com/iammorganparry/clive/apps/semcache/internal/config"
	"github.com/iammorganparry/clive/apps/semcache/internal/embedding"
	"github.com/iammorganparry/clive/apps/semcache/internal/memory"
	"github.com/iammorganparry/clive/apps/semcache/internal/scheduler"
	"github.com/iammorganparry/clive/apps/semcache/internal/store"
)

func main() {
	// Logger
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	lex, err := cfg.Lexicon()
	if err != nil {
		logger.Error("failed to load lexicon", "error", err)
		os.Exit(1)
	}

	// Persistence
	persister, closer, err := openPersistence(cfg, logger)
	if err != nil {
		logger.Error("failed to open persistence backend", "backend", cfg.Backend, "error", err)
		os.Exit(1)
	}

	// Cache service
	opts := []memory.Option{
		memory.WithLexicon(lex),
		memory.WithEmbedder(embedding.NewHashEmbedder(cfg.EmbedDim, lex)),
	}
	if persister != nil {
		opts = append(opts, memory.WithPersister(persister))
	}
	svc, err := memory.NewService(cfg.Memory(), logger, opts...)
	if err != nil {
		logger.Error("failed to create cache service", "error", err)
		os.Exit(1)
	}

	warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
	loaded, err := svc.Warmup(warmCtx)
	warmCancel()
	if err != nil {
		logger.Warn("warm-up failed, starting with an empty cache", "error", err)
	} else {
		logger.Info("cache warmed up", "loaded", loaded)
	}

	// Consolidation
	sched, err := scheduler.New(cfg.ConsolidateSchedule, svc, logger)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}
	sched.Start()

	// Router
	router := api.NewRouter(svc, cfg.APIKey, logger)

	// Server
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("semcache server starting", "addr", addr, "backend", cfg.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sched.Stop(ctx); err != nil {
		logger.Error("scheduler shutdown error", "error", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	svc.Close()
	if closer != nil {
		if err := closer.Close(); err != nil {
			logger.Error("failed to close persistence backend", "error", err)
		}
	}

	logger.Info("server stopped")
}

// openPersistence returns the configured backend, or nil when persistence
// is disabled. The closer must be closed after the service has drained.
func openPersistence(cfg *config.Config, logger *slog.Logger) (memory.Persister, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		if n, err := db.EntryCount(); err == nil {
			logger.Info("sqlite store opened", "path", cfg.DBPath, "entries", n)
		}
		return store.NewEntryStore(db), db, nil
	case config.BackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rs, client, err := store.OpenRedis(ctx, store.RedisOptions{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return rs, client, nil
	default:
		return nil, nil, nil
	}
}
