package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	_ "github.com/futurefundi/portal/docs"
	"github.com/futurefundi/portal/internal/api"
	"github.com/futurefundi/portal/internal/api/handler"
	"github.com/futurefundi/portal/internal/api/metrics"
	"github.com/futurefundi/portal/internal/api/middleware"
	"github.com/futurefundi/portal/internal/core/service"
	"github.com/futurefundi/portal/internal/core/session"
	mongodb "github.com/futurefundi/portal/internal/infrastructure/db/mongo"
	redisdb "github.com/futurefundi/portal/internal/infrastructure/db/redis"
	"github.com/futurefundi/portal/internal/infrastructure/queue"
	"github.com/futurefundi/portal/internal/pkg/config"
	"github.com/futurefundi/portal/pkg/logger"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
	guardLogBurst   = 50
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:           cfg.LogLevel,
		ComponentLevels: cfg.LogComponentLevels,
		Pretty:          !cfg.IsProduction(),
		Service:         "portal",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo unavailable")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Warn().Err(err).Msg("index creation failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, sessions fall back to process memory")
	}
	defer func() { _ = rdb.Close() }()

	// --- Sessions ---
	memory := session.NewMemoryBackend(cfg.Session.TTL)
	backend := session.NewFallbackBackend(redisdb.NewSessionBackend(rdb, cfg.Session.TTL), memory, cfg.Session.TTL)
	sessions := session.NewManager(backend, logger.Component("session"), func(op string, _ error) {
		metrics.SessionStorageErrorsTotal.WithLabelValues(op).Inc()
	})

	// --- Services ---
	tokens := service.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	authService := service.NewAuthService(
		mongodb.NewUserRepository(db, logger.Component("users")),
		mongodb.NewSchoolRepository(db),
		redisdb.NewTokenBlacklist(rdb),
		tokens,
	)
	auditService := service.NewAuditService(mongodb.NewAuditRepository(db), logger.Component("audit"))
	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, auditService, logger.Component("audit"))

	guardLog := logger.Sampled("guard", guardLogBurst, time.Second)
	e := api.NewRouter(api.Deps{
		Log:        log,
		GuardLog:   &guardLog,
		Production: cfg.IsProduction(),
		Auth:       authService,
		Verifier:   tokens,
		Audit:      dispatcher,
		Sessions:   sessions,
		Cookie: middleware.SessionConfig{
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL,
			Secure:     cfg.Session.CookieSecure,
		},
		LoginRateLimit: cfg.Auth.LoginRateLimit,
		Readiness: []handler.Dependency{
			{Name: "mongodb", Critical: true, Ping: func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }},
			{Name: "redis", Ping: func(ctx context.Context) error { return redisdb.Ping(ctx, rdb, 0) }},
		},
	})

	g, gctx := errgroup.WithContext(ctx)
	dispatcher.Start(gctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("portal listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := memory.Sweep(); n > 0 {
					log.Debug().Int("sessions", n).Msg("expired memory sessions swept")
				}
				if n := backend.Sweep(); n > 0 {
					log.Debug().Int("keys", n).Msg("expired stale marks dropped")
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
	}
	dispatcher.Wait()
	log.Info().Msg("portal stopped")
}
