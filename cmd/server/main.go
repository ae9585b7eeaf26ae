package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	audithandler "healthgate/internal/audit/handler"
	auditmetrics "healthgate/internal/audit/metrics"
	auditservice "healthgate/internal/audit/service"
	auditstore "healthgate/internal/audit/store"
	audittracer "healthgate/internal/audit/tracer"
	"healthgate/internal/platform/config"
	"healthgate/internal/platform/database"
	"healthgate/internal/platform/httpserver"
	"healthgate/internal/platform/logger"
	platformredis "healthgate/internal/platform/redis"
	ratelimitconfig "healthgate/internal/ratelimit/config"
	ratelimitmetrics "healthgate/internal/ratelimit/metrics"
	ratelimitMW "healthgate/internal/ratelimit/middleware"
	"healthgate/internal/ratelimit/observability"
	ratelimitservice "healthgate/internal/ratelimit/service"
	"healthgate/internal/ratelimit/store/counter"
	"healthgate/internal/ratelimit/throttle"
	"healthgate/internal/token"
	httptransport "healthgate/internal/transport/http"
	"healthgate/internal/usage"
)

const (
	poolStatsInterval = 15 * time.Second
	cleanupInterval   = 24 * time.Hour
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal services.
func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	if os.Getenv("TOKEN_SIGNING_KEY") == "" {
		log.Warn("TOKEN_SIGNING_KEY not set, using the development default")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Shared counter store: redis when configured, in-process otherwise.
	rlConfig := ratelimitconfig.FromEnv()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	var counterStore ratelimitservice.CounterStore
	if redisClient != nil {
		defer redisClient.Close()
		counterStore = counter.NewRedisStore(redisClient.Client, rlConfig.StoreTimeout)
		log.Info("rate limit counters backed by redis")
	} else {
		counterStore = counter.NewInMemoryStore()
		log.Warn("REDIS_URL not set, rate limit counters are process-local")
	}

	// Audit store: postgres when configured, in-process otherwise.
	pool, err := database.New(cfg.Database)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	var auditStore auditstore.Store
	if pool != nil {
		defer pool.Close()
		pg := auditstore.NewPostgresStore(pool.DB())
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("audit schema setup failed", "error", err)
			os.Exit(1)
		}
		auditStore = pg
		log.Info("audit log backed by postgres")
	} else {
		auditStore = auditstore.NewInMemoryStore()
		log.Warn("DATABASE_URL not set, audit log is process-local")
	}

	auditSvc, err := auditservice.New(auditStore,
		auditservice.WithLogger(log),
		auditservice.WithMetrics(auditmetrics.New()),
		auditservice.WithTracer(audittracer.NewOTel()),
		auditservice.WithStoreTimeout(cfg.Audit.StoreTimeout),
	)
	if err != nil {
		log.Error("audit service setup failed", "error", err)
		os.Exit(1)
	}

	limiter, err := ratelimitservice.New(counterStore,
		ratelimitservice.WithLogger(log),
		ratelimitservice.WithConfig(rlConfig),
		ratelimitservice.WithMetrics(ratelimitmetrics.New()),
		ratelimitservice.WithLocalThrottle(throttle.New(rlConfig.DegradedPerSecond, rlConfig.DegradedBurst)),
		ratelimitservice.WithDenialRecorder(observability.NewAuditRecorder(auditSvc, log)),
	)
	if err != nil {
		log.Error("rate limit service setup failed", "error", err)
		os.Exit(1)
	}

	manager := token.NewManager(token.Config{
		SigningKey: cfg.Token.SigningKey,
		Issuer:     cfg.Token.Issuer,
		Audience:   cfg.Token.Audience,
		Lifetime:   cfg.Token.Lifetime,
	})

	var adminHandler *audithandler.Handler
	if cfg.AdminKeyHash != "" {
		adminHandler = audithandler.New(auditSvc, cfg.AdminKeyHash, log)
	} else {
		log.Warn("ADMIN_KEY_HASH not set, audit admin endpoints disabled")
	}

	health := make(map[string]httptransport.HealthChecker)
	if redisClient != nil {
		health["redis"] = redisClient
	}
	if pool != nil {
		health["postgres"] = pool
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:       log,
		TokenManager: manager,
		TokenHandler: token.NewHandler(manager, auditSvc, log),
		RateLimit:    ratelimitMW.New(limiter, usage.NewMonitor(log), log),
		AuditHandler: adminHandler,
		Health:       health,
	})

	srv := httpserver.New(cfg.Addr, router)
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if redisClient != nil {
		group.Go(func() error {
			ticker := time.NewTicker(poolStatsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					redisClient.RecordPoolStats()
				}
			}
		})
	}

	// Daily retention pruning; AUDIT_RETENTION_DAYS=0 disables it (an
	// explicit clear stays an operator action via the admin API).
	if cfg.Audit.RetentionDays > 0 {
		group.Go(func() error {
			ticker := time.NewTicker(cleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					// The service bounds the store call with its own deadline.
					if _, err := auditSvc.Cleanup(ctx, cfg.Audit.RetentionDays); err != nil {
						log.Error("scheduled audit cleanup failed", "error", err)
					}
				}
			}
		})
	}

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
