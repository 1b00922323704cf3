// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"medcat/internal/catalog/cache"
	"medcat/internal/catalog/handler"
	catalogmetrics "medcat/internal/catalog/metrics"
	"medcat/internal/catalog/service"
	memstore "medcat/internal/catalog/store/memory"
	pgstore "medcat/internal/catalog/store/postgres"
	httpapi "medcat/internal/http"
	jwttoken "medcat/internal/jwt_token"
	"medcat/internal/platform/config"
	"medcat/internal/platform/httpserver"
	"medcat/internal/platform/logger"
	"medcat/internal/platform/metrics"
	"medcat/internal/platform/postgres"
	platformredis "medcat/internal/platform/redis"
	audit "medcat/pkg/platform/audit"
	auditrelay "medcat/pkg/platform/audit/relay"
	auditmem "medcat/pkg/platform/audit/store/memory"
	auditpg "medcat/pkg/platform/audit/store/postgres"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db           *sql.DB
		catalogStore service.CatalogStore
		auditStore   audit.Store
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		catalogStore = pgstore.New(db)
		auditStore = auditpg.New(db)
		log.Info("using postgres store")
	} else {
		catalogStore = memstore.New()
		auditStore = auditmem.New()
		log.Info("no DATABASE_URL set, using in-memory store")
	}

	var healthCheckers []httpapi.HealthChecker
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithAuditPublisher(audit.NewPublisher(auditStore)),
		service.WithMetrics(catalogmetrics.New()),
	}
	if redisClient != nil {
		defer redisClient.Close()
		healthCheckers = append(healthCheckers, redisClient)
		opts = append(opts, service.WithCache(
			cache.New(redisClient.Client, log, cache.WithTTL(cfg.CacheTTL)),
		))
		log.Info("aggregate cache enabled")
	}
	svc := service.New(catalogStore, opts...)

	jwtValidator := jwttoken.NewService(cfg.JWTSigningKey, "medcat", "medcat-api")
	catalogHandler := handler.New(svc, log, metrics.New(), jwtValidator,
		handler.WithTimeout(cfg.RequestTimeout),
	)
	router := httpapi.New(catalogHandler, healthCheckers...)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting medcat", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// The outbox relay only runs when both the outbox table and a broker
	// are available.
	if db != nil && len(cfg.KafkaBrokers) > 0 {
		relay, err := auditrelay.New(db, cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			log.Error("audit relay setup failed", "error", err)
			os.Exit(1)
		}
		defer relay.Close()
		g.Go(func() error {
			if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		log.Info("audit relay started", "topic", cfg.AuditTopic)
	}

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
