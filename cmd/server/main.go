package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/realty-inventory/internal/config"
	"github.com/iliyamo/realty-inventory/internal/database"
	"github.com/iliyamo/realty-inventory/internal/handler"
	"github.com/iliyamo/realty-inventory/internal/logger"
	"github.com/iliyamo/realty-inventory/internal/middleware"
	"github.com/iliyamo/realty-inventory/internal/queue"
	"github.com/iliyamo/realty-inventory/internal/repository"
	"github.com/iliyamo/realty-inventory/internal/router"
	"github.com/iliyamo/realty-inventory/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat).With(zap.String("env", cfg.Env))
	defer func() { _ = log.Sync() }()

	stores, db, err := openStores(cfg, log)
	if err != nil {
		log.Fatal("open storage", zap.String("backend", cfg.Storage), zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}

	// Redis backs the rate limiter and the reclaim lease; both degrade
	// gracefully without it.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and reclaim lease disabled")
	} else {
		defer rdb.Close()
	}

	opts := []service.Option{
		service.WithDefaultLockMinutes(cfg.DefaultLockMinutes),
		service.WithMaxLockMinutes(cfg.MaxLockMinutes),
		service.WithReclaimBatchSize(cfg.ReclaimBatchSize),
	}
	if cfg.RabbitURL != "" {
		pub := queue.NewPublisher(cfg.RabbitURL, log)
		defer func() { _ = pub.Close() }()
		opts = append(opts, service.WithPublisher(pub))
	}
	svc := service.NewInventoryService(stores, log, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var reclaimer *service.Reclaimer
	if cfg.ReclaimEnabled {
		var ropts []service.ReclaimerOption
		if rdb != nil && cfg.ReclaimLeaseTTL > 0 {
			ropts = append(ropts, service.WithLease(service.NewRedisLease(rdb, "inventory:reclaim:lease", cfg.ReclaimLeaseTTL)))
		}
		reclaimer = service.NewReclaimer(svc, log, ropts...)
		if err := reclaimer.Start(cfg.ReclaimSchedule); err != nil {
			log.Fatal("schedule lock reclaimer", zap.String("schedule", cfg.ReclaimSchedule), zap.Error(err))
		}
	}

	if cfg.AuditEnabled && cfg.RabbitURL != "" {
		consumer := queue.NewAuditConsumer(cfg.RabbitURL, cfg.AuditLogPath, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	e := newServer(cfg, svc, db, rdb, log)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("storage", cfg.Storage))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	if reclaimer != nil {
		reclaimer.Stop(shutdownCtx)
	}
}

// openStores returns the repositories for the configured backend.  db is nil
// for the memory backend.
func openStores(cfg config.Config, log *zap.Logger) (service.Stores, *sql.DB, error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage; data is lost on restart")
		m := repository.NewMemoryStore()
		if cfg.MemorySeed == "" {
			log.Warn("MEMORY_SEED_PATH not set; memory store starts empty")
		} else {
			if err := m.LoadSeedFile(cfg.MemorySeed); err != nil {
				return service.Stores{}, nil, err
			}
			log.Info("memory store seeded", zap.String("path", cfg.MemorySeed))
		}
		return service.Stores{Units: m, Towers: m, Projects: m, Tenants: m, UnitTypes: m}, nil, nil
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return service.Stores{}, nil, err
	}
	if cfg.DBAutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return service.Stores{}, nil, err
		}
		log.Info("database schema applied")
	}
	return service.Stores{
		Units:     repository.NewUnitRepo(db),
		Towers:    repository.NewTowerRepo(db),
		Projects:  repository.NewProjectRepo(db),
		Tenants:   repository.NewTenantRepo(db),
		UnitTypes: repository.NewUnitTypeRuleRepo(db),
	}, db, nil
}

func newServer(cfg config.Config, svc *service.InventoryService, db *sql.DB, rdb *redis.Client, log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	router.RegisterRoutes(e, &handler.HealthHandler{DB: db, Redis: rdb})
	router.RegisterUnits(e,
		handler.NewUnitHandler(svc, log),
		cfg.JWTSecret,
		middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
	)
	return e
}
