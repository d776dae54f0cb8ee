package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/db"
	httpx "github.com/geocoder89/authhub/internal/http"
	"github.com/geocoder89/authhub/internal/http/handlers"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/geocoder89/authhub/internal/redisclient"
	"github.com/geocoder89/authhub/internal/repo/postgres"
	"github.com/geocoder89/authhub/internal/security"
	"github.com/geocoder89/authhub/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const serviceName = "authhub"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// Load the config set up
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if cfg.JWTSecret == "" && cfg.Env != "prod" {
		cfg.JWTSecret = randomSecret()
		log.Warn("JWT_SECRET not set, using a random per-process secret; tokens will not survive a restart")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: serviceName,
			Env:         cfg.Env,
			Endpoint:    cfg.OTLPEndpoint,
			SampleRatio: cfg.TraceSampleRatio,
		})
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			tctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			if err := shutdownTracer(tctx); err != nil {
				log.Error("tracer shutdown failed", "err", err)
			}
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.NewPool(dbCtx, cfg.DBURL, cfg.DBMaxConns)
	if err == nil {
		err = db.Migrate(dbCtx, pool)
	}
	cancel()
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	// wire up repositories and services
	usersRepo := postgres.NewUsersRepo(pool, prom)
	hasher := security.NewHasher(cfg.HashCost, cfg.HashConcurrency).WithObserver(prom)
	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	authSvc := service.NewAuthService(usersRepo, hasher, tokens, prom)
	userSvc := service.NewUserService(usersRepo, hasher, prom)

	if err := db.EnsureAdminUser(ctx, userSvc, cfg); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	if err := handlers.RegisterValidators(); err != nil {
		return err
	}

	checks := map[string]handlers.Check{"postgres": pool.Ping}

	// rate limit counters live in redis when configured so replicas share them
	var rateStore middlewares.RateStore = middlewares.NewMemoryRateStore()
	if cfg.RedisAddr != "" {
		rdb := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: cfg.RedisPoolSize,
		})
		defer rdb.Close()

		rateStore = middlewares.NewRedisRateStore(rdb.Raw(), serviceName+":ratelimit:")
		checks["redis"] = rdb.Ping
	}

	var shuttingDown atomic.Bool

	router := httpx.NewRouter(httpx.Deps{
		Env:          cfg.Env,
		ServiceName:  serviceName,
		Log:          log,
		Auth:         authSvc,
		Users:        userSvc,
		Authn:        auth.NewBearerAuthenticator(tokens),
		Checks:       checks,
		ShuttingDown: shuttingDown.Load,
		Prom:         prom,
		Gatherer:     reg,
		RateStore:    rateStore,
		RateLimit:    cfg.AuthRateLimit,
		RateWindow:   cfg.AuthRateWindow,
		CORSOrigins:  cfg.CORSAllowedOrigins,
		MaxBody:      cfg.MaxBodyBytes,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "token_ttl", tokens.TTL().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("server shutting down")
	shuttingDown.Store(true)

	shutdownCtx, cancelShutdown := config.WithTimeout(10 * time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
