package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"pa-gateway/internal/audit"
	"pa-gateway/internal/platform/config"
	"pa-gateway/internal/platform/httpserver"
	"pa-gateway/internal/platform/jwtauth"
	"pa-gateway/internal/platform/logger"
	"pa-gateway/internal/platform/redis"
	httptransport "pa-gateway/internal/transport/http"
	"pa-gateway/internal/verify/handler"
	"pa-gateway/internal/verify/metrics"
	"pa-gateway/internal/verify/ports"
	"pa-gateway/internal/verify/service"
	certstore "pa-gateway/internal/verify/store/certificate"
	crlstore "pa-gateway/internal/verify/store/crl"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "optional YAML config overlay")
	flag.Parse()

	log := logger.New()

	cfg := config.FromEnv()
	if *configPath != "" {
		var err error
		if cfg, err = config.FromFile(cfg, *configPath); err != nil {
			log.Error("failed to load config file", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}
	if cfg.JWTSigningKey == "" {
		log.Error("PA_GATEWAY_JWT_KEY is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]httptransport.HealthCheck{}

	// Certificate store: postgres when configured, in-memory otherwise (the
	// trust store can be seeded over time by a master-list loader either way).
	var certs ports.CertificateStore = certstore.NewMemory()
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := certstore.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			log.Error("failed to run certificate store migration", "error", err)
			os.Exit(1)
		}
		certs = pg
		checks["postgres"] = pool.Ping
		log.Info("certificate store backed by postgres")
	}

	// CRL store: always memory-backed, fronted by the redis cache when a
	// redis URL is configured.
	var crls ports.CrlStore = crlstore.NewMemory()
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()

		cached, err := crlstore.NewRedisCache(redisClient.Client, crls, crlstore.WithCacheLogger(log))
		if err != nil {
			log.Error("failed to build crl cache", "error", err)
			os.Exit(1)
		}
		crls = cached
		checks["redis"] = redisClient.Health
		log.Info("crl lookups cached in redis")
	}

	// Audit trail: kafka when brokers are configured, in-process otherwise.
	var publisher audit.Publisher = audit.NewMemoryPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := audit.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.AuditTopic, audit.WithKafkaLogger(log))
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()
		publisher = kafka
		log.Info("audit events published to kafka", "topic", cfg.AuditTopic)
	}

	svc, err := service.New(certs, crls,
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
		service.WithAuditPublisher(publisher),
		service.WithCRLTimeout(cfg.CRLTimeout),
		service.WithRequireFullCoverage(cfg.RequireFullCoverage),
	)
	if err != nil {
		log.Error("failed to build verification service", "error", err)
		os.Exit(1)
	}

	auth := jwtauth.New(cfg.JWTSigningKey, "pa-gateway", "inspection-systems")
	router := httptransport.NewRouter(handler.New(svc, log), auth, log, checks)
	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
	log.Info("server stopped")
}
