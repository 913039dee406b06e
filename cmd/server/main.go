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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"consents/internal/audit"
	consentHandler "consents/internal/consent/handler"
	consentMetrics "consents/internal/consent/metrics"
	consentService "consents/internal/consent/service"
	consentStore "consents/internal/consent/store"
	"consents/internal/platform/config"
	"consents/internal/platform/database"
	"consents/internal/platform/health"
	"consents/internal/platform/kafka/producer"
	"consents/internal/platform/logger"
	"consents/internal/platform/metrics"
	"consents/internal/platform/redis"
	"consents/internal/platform/tracer"
	rlConfig "consents/internal/ratelimit/config"
	rlMetrics "consents/internal/ratelimit/metrics"
	rlMiddleware "consents/internal/ratelimit/middleware"
	"consents/internal/ratelimit/service/admission"
	"consents/internal/ratelimit/store/counter"
	"consents/internal/ratelimit/workers/sweeper"
	httptransport "consents/internal/transport/http"
	"consents/migrations"
)

const redisPoolStatsInterval = 15 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		slog.Error("consents service stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	rlCfg, err := rlConfig.FromEnv()
	if err != nil {
		return fmt.Errorf("load rate limit config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing consents service",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"rate_limit_tps", rlCfg.RequestsPerWindow,
		"rate_limit_window", rlCfg.Window,
		"rate_limit_backend", rlCfg.Backend,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	healthHandler := health.New(cfg.Environment)
	g, gctx := errgroup.WithContext(ctx)

	// Admission control.
	limiterMetrics := rlMetrics.New(reg)
	startSweeper := func(ctx context.Context, g *errgroup.Group, mem *counter.InMemoryStore) {
		sweep := sweeper.New(mem,
			sweeper.WithLogger(log),
			sweeper.WithInterval(rlCfg.SweepInterval),
			sweeper.WithMetrics(limiterMetrics),
		)
		g.Go(func() error { return sweep.Start(ctx) })
	}
	var counters admission.CounterStore
	switch rlCfg.Backend {
	case rlConfig.BackendRedis:
		rc, err := redis.New(ctx, cfg.Redis, reg)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		if rc == nil {
			return errors.New("REDIS_URL is required for the redis rate limit backend")
		}
		defer rc.Close() //nolint:errcheck // shutdown path
		healthHandler.RegisterCheck("redis", rc.Health)
		g.Go(func() error { return rc.RunPoolStats(gctx, redisPoolStatsInterval) })

		local := counter.NewInMemoryStore(counter.WithWindow(rlCfg.Window))
		startSweeper(gctx, g, local)
		failover := counter.NewFailoverStore(
			counter.NewRedisStore(rc.Client, counter.WithRedisWindow(rlCfg.Window)),
			local,
			counter.WithFailoverLogger(log),
		)
		healthHandler.RegisterComponent("ratelimit_counters", func() string {
			if failover.Degraded() {
				return "degraded"
			}
			return "redis"
		})
		counters = failover
	default:
		mem := counter.NewInMemoryStore(counter.WithWindow(rlCfg.Window))
		startSweeper(gctx, g, mem)
		counters = mem
	}

	controller, err := admission.New(counters, rlCfg.RequestsPerWindow,
		admission.WithLogger(log),
		admission.WithMetrics(limiterMetrics),
	)
	if err != nil {
		return fmt.Errorf("build admission controller: %w", err)
	}

	// Consent lifecycle events.
	var sink audit.Sink = audit.NewMemorySink()
	if cfg.Events.KafkaBrokers != "" {
		prod, err := producer.New(producer.DefaultConfig(cfg.Events.KafkaBrokers),
			producer.WithLogger(log),
			producer.WithRegisterer(reg),
		)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer prod.Close()
		healthHandler.RegisterCheck("kafka", prod.Ping)
		sink = audit.NewKafkaSink(prod, cfg.Events.Topic)
		log.Info("publishing consent events to kafka", "topic", cfg.Events.Topic)
	}
	publisher := audit.NewPublisher(sink,
		audit.WithAsyncBuffer(cfg.Events.BufferSize),
		audit.WithPublisherLogger(log),
	)
	defer publisher.Close()

	// Consents.
	svcOpts := []consentService.Option{
		consentService.WithAuditor(publisher),
		consentService.WithMetrics(consentMetrics.New(reg)),
		consentService.WithTracer(tracer.NewOTel()),
		consentService.WithLogger(log),
	}
	var store consentService.Store
	pool, err := database.New(ctx, cfg.Database, reg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if pool != nil {
		defer pool.Close() //nolint:errcheck // shutdown path
		if cfg.Database.Migrate {
			applied, err := database.Migrate(ctx, pool.DB(), migrations.FS)
			if err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
			log.Info("database schema up to date", "migrations", applied)
		}
		healthHandler.RegisterCheck("postgres", pool.Health)
		store = consentStore.NewPostgres(pool.DB())
		svcOpts = append(svcOpts, consentService.WithTx(newConsentPostgresTx(pool.DB())))
		log.Info("using postgres consent store")
	} else {
		store = consentStore.NewInMemory()
		log.Info("using in-memory consent store")
	}
	svc := consentService.New(store, svcOpts...)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
		Admission:      rlMiddleware.New(controller).Admission,
		RequestTimeout: cfg.RequestTimeout,
		Consents:       consentHandler.New(svc, log),
		Health:         healthHandler,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}
