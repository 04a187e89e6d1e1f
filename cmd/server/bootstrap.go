package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/api"
	"github.com/charlesng35/catalogadmin/internal/app"
	"github.com/charlesng35/catalogadmin/internal/app/maintenance"
	iauth "github.com/charlesng35/catalogadmin/internal/auth"
	"github.com/charlesng35/catalogadmin/internal/backup"
	"github.com/charlesng35/catalogadmin/internal/cache"
	"github.com/charlesng35/catalogadmin/internal/database"
	"github.com/charlesng35/catalogadmin/internal/middleware"
	"github.com/charlesng35/catalogadmin/internal/monitoring"
	"github.com/charlesng35/catalogadmin/internal/storage"
	"github.com/charlesng35/catalogadmin/pkg/logger"
	"github.com/charlesng35/catalogadmin/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Redis     *cache.RedisStore
	Files     storage.Store
	Scheduler *maintenance.Scheduler
	RateStore middleware.RateStore
	Router    *gin.Engine
}

// bootstrapRuntime opens the database, file store and caches, starts the
// maintenance scheduler and builds the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if !cfg.Server.GinDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Files, err = initialiseStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed rate limiting", zap.Error(err))
			stack.Redis = nil
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	switch {
	case stack.Redis != nil:
		stack.RateStore = middleware.NewCacheRateStore(stack.Redis)
	default:
		stack.RateStore = middleware.NewCacheRateStore(cache.NewDatabaseStore(stack.DB))
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	schedulerOpts := []maintenance.Option{}
	if schedule := strings.TrimSpace(cfg.Backup.Schedule); schedule != "" {
		runner, err := newBackupRunner(stack.DB, cfg, log)
		if err != nil {
			return nil, err
		}
		schedulerOpts = append(schedulerOpts, maintenance.WithBackup(runner, schedule))
	}

	stack.Scheduler = maintenance.NewScheduler(stack.DB, schedulerOpts...)
	if err := stack.Scheduler.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	var healthChecks []monitoring.Check
	if cfg.Cache.Redis.Enabled {
		var pinger monitoring.Pinger
		if stack.Redis != nil {
			pinger = stack.Redis
		}
		healthChecks = append(healthChecks, monitoring.Redis(pinger))
	}

	stack.Router, err = api.NewRouter(stack.DB, jwtSvc, cfg, stack.Files, stack.RateStore, healthChecks...)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Scheduler != nil {
		select {
		case <-s.Scheduler.Stop().Done():
		case <-ctx.Done():
			log.Warn("maintenance jobs still running at shutdown")
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if closer, ok := s.Files.(io.Closer); ok && closer != nil {
		if err := closer.Close(); err != nil {
			log.Warn("file store shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db, cfg.Auth.SeedOptions()); err != nil {
		closeDatabase(db, logger.WithModule("database"))
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", dbCfg.NormalisedDriver()))
	return db, nil
}

func initialiseStorage(ctx context.Context, cfg *app.Config) (storage.Store, error) {
	if cfg.Storage.UsesGCS() {
		store, err := storage.NewGCSStore(ctx, cfg.Storage.GCSStoreConfig())
		if err != nil {
			return nil, fmt.Errorf("initialise gcs storage: %w", err)
		}
		return store, nil
	}

	store, err := storage.NewLocalStore(cfg.Storage.LocalRoot(), cfg.Storage.PublicURL)
	if err != nil {
		return nil, fmt.Errorf("initialise local storage: %w", err)
	}
	return store, nil
}

// newBackupRunner builds a backup runner, attaching the SMTP mailer when
// failure notifications are configured.
func newBackupRunner(db *gorm.DB, cfg *app.Config, log *zap.Logger) (*backup.Runner, error) {
	var opts []backup.Option
	if cfg.Email.SMTP.Enabled && len(cfg.Backup.Notify) > 0 {
		mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
		if err != nil {
			log.Warn("smtp mailer unavailable; backup failures will only be logged", zap.Error(err))
		} else {
			opts = append(opts, backup.WithMailer(mailer))
		}
	}

	runner, err := backup.NewRunner(db, cfg.Database.ConnectionConfig(), cfg.Backup.RunnerConfig(), opts...)
	if err != nil {
		return nil, fmt.Errorf("initialise backup runner: %w", err)
	}
	return runner, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
