package app

import (
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	ginadapter "github.com/agentgrid/governor/internal/adapter/inbound/gin"
	pgadapter "github.com/agentgrid/governor/internal/adapter/outbound/postgres"
	redisadapter "github.com/agentgrid/governor/internal/adapter/outbound/redis"
	"github.com/agentgrid/governor/internal/infra/events"
	"github.com/agentgrid/governor/internal/module/policy"
	"github.com/agentgrid/governor/internal/module/quota"
	"github.com/agentgrid/governor/internal/module/quota/usage"
	"github.com/agentgrid/governor/internal/port/outbound"
	"github.com/agentgrid/governor/internal/shared/config"
	"github.com/agentgrid/governor/internal/shared/logger"
	"github.com/agentgrid/governor/internal/utils/metrics"
)

// App holds the wired application.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	db          *gorm.DB
	redisClient *redis.Client

	manager     *quota.Manager
	quotaGuard  *quota.Guard
	policyGuard *policy.Guard
	recorder    *usage.Recorder
	snapshotter *quota.Snapshotter

	router http.Handler
}

// LoadConfig loads the application configuration.
func LoadConfig() (*config.Config, error) {
	return config.Load()
}

// New wires the application. The policy engine is injected by the embedding
// platform; standalone the guard fails open.
func New(cfg *config.Config, engine policy.Engine) (*App, error) {
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := gorm.Open(gormpostgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	m := metrics.New("governor")
	bus := events.NewBus(log)

	// The alerting subsystem subscribes here; standalone we log the feed.
	bus.Register(events.NewHandlerFunc(
		[]string{quota.QuotaWarningType, quota.QuotaExceededType, quota.RateLimitedType},
		func(e events.Event) error {
			log.Info("governance event",
				zap.String("event_type", e.EventType()),
				zap.String("tenant_id", e.TenantID()),
			)
			return nil
		},
	))

	manager := quota.NewManager(&quota.ManagerConfig{
		WarningThreshold: cfg.Quota.WarningThreshold,
		RateLimitWindow:  cfg.Quota.RateLimitWindow,
	}, log)

	recorder := usage.NewRecorder(
		pgadapter.NewUsageRecordAdapter(db),
		log,
		cfg.Quota.UsageBufferSize,
	)

	var redisClient *redis.Client
	var snapshots outbound.UsageSnapshotPort
	var snapshotter *quota.Snapshotter
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		snapshots = redisadapter.NewUsageSnapshotAdapter(redisClient)
		snapshotter = quota.NewSnapshotter(manager, snapshots, cfg.Quota.SnapshotInterval, log)
		snapshotter.Start()
	}

	quotaGuard := quota.NewGuard(quota.GuardDeps{
		Store:     pgadapter.NewTenantAdapter(db),
		Manager:   manager,
		Bus:       bus,
		Recorder:  recorder,
		Snapshots: snapshots,
		Metrics:   m,
		Logger:    log,
	})

	policyGuard := policy.NewGuard(engine, &policy.GuardConfig{
		BreakerFailureThreshold: cfg.Policy.BreakerFailureThreshold,
		BreakerTimeout:          cfg.Policy.BreakerTimeout,
	}, m, log)

	router := ginadapter.NewRouter(ginadapter.RouterDeps{
		QuotaGuard:  quotaGuard,
		PolicyGuard: policyGuard,
		Metrics:     m,
		JWTSecret:   cfg.Auth.JWTSecret,
		Logger:      log,
	})

	return &App{
		cfg:         cfg,
		logger:      log,
		db:          db,
		redisClient: redisClient,
		manager:     manager,
		quotaGuard:  quotaGuard,
		policyGuard: policyGuard,
		recorder:    recorder,
		snapshotter: snapshotter,
		router:      router,
	}, nil
}

// Router returns the HTTP handler.
func (a *App) Router() http.Handler {
	return a.router
}

// QuotaGuard returns the quota guard for embedding callers.
func (a *App) QuotaGuard() *quota.Guard {
	return a.quotaGuard
}

// PolicyGuard returns the policy guard for embedding callers.
func (a *App) PolicyGuard() *policy.Guard {
	return a.policyGuard
}

// Stop flushes buffers and releases resources.
func (a *App) Stop() {
	if a.snapshotter != nil {
		a.snapshotter.Stop()
	}
	a.recorder.Close()
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.logger.Warn("database close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
