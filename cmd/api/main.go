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

	"call-screening/internal/audit"
	"call-screening/internal/config"
	"call-screening/internal/handoff"
	"call-screening/pkg/logger"
	"call-screening/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	deps := dependencies{}

	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.Redis.Addr})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		deps.redis = rdb
	}

	if cfg.PostgresEnabled() {
		db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		deps.db = db
	}

	srv, err := buildServer(rootCtx, cfg, log, deps)
	if err != nil {
		log.Error("server init failed", "err", err)
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logBanner(log, cfg)

	go func() {
		log.Info("api listening", "addr", httpSrv.Addr, "env", cfg.App.Env)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// dependencies are the optional backends opened in main.
// Nil fields fall back to in-memory implementations.
type dependencies struct {
	redis *redis.Client
	db    *sql.DB
}

func (d dependencies) handoffStore(cfg config.Config) handoff.Store {
	if d.redis != nil {
		return handoff.NewRedisStore(d.redis, cfg.Redis.HandoffTTL)
	}
	return handoff.NewMemoryStore()
}

func (d dependencies) auditRepo(ctx context.Context) (audit.Repository, error) {
	if d.db == nil {
		return audit.NewMemoryRepo(), nil
	}
	repo := audit.NewPostgresRepo(d.db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}
