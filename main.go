package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"community-blog-api/api"
	"community-blog-api/cache"
	"community-blog-api/config"
	"community-blog-api/repository"
	"community-blog-api/schema"
	"community-blog-api/search"
	"community-blog-api/uploads"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("shutting down", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	// ---- Store: schema and seed must be in place before serving.
	posts, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	images, err := uploads.New(cfg.UploadDir, cfg.MaxUploadBytes, log)
	if err != nil {
		return err
	}
	srv := &api.Server{Posts: posts, Images: images, UploadDir: cfg.UploadDir, Log: log}

	// ---- Cache
	if cfg.RedisAddr != "" {
		rc := cache.New(cfg.RedisAddr, cfg.RedisDB, cfg.CacheTTLSeconds)
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			log.Warn("redis unreachable, serving without cache", "addr", cfg.RedisAddr, "error", err)
		} else {
			srv.Cache = rc
		}
	}

	// ---- Search
	if cfg.ESAddr != "" {
		es, err := search.New(cfg.ESAddr, cfg.ESIndex)
		if err != nil {
			return err
		}
		if err := es.EnsureIndex(ctx); err != nil {
			log.Warn("elasticsearch index not ready", "index", cfg.ESIndex, "error", err)
		}
		srv.Index = es
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", httpSrv.Addr, "store", cfg.StoreDriver)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// openStore returns a migrated and seeded post store.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (repository.PostStore, func(), error) {
	if cfg.StoreDriver == "memory" {
		repo := repository.NewMemoryPostRepo()
		if _, err := repo.Seed(ctx); err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	}

	db, dialect, err := schema.Open(ctx, cfg.StoreDriver, cfg.DSN())
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() { closeQuietly(db, log) }

	m := schema.NewMigrator(db, dialect, schema.Posts, log)
	if err := m.EnsureSchema(ctx); err != nil {
		closeDB()
		return nil, nil, err
	}
	if _, err := m.EnsureSeedData(ctx); err != nil {
		closeDB()
		return nil, nil, err
	}
	log.Info("store ready", "driver", dialect.Name())
	return repository.NewPostRepo(db, dialect, log), closeDB, nil
}

func closeQuietly(db *sql.DB, log *slog.Logger) {
	if err := db.Close(); err != nil {
		log.Warn("close db", "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
