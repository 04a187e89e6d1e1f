package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/backup"
	"github.com/charlesng35/catalogadmin/internal/cache"
	"github.com/charlesng35/catalogadmin/pkg/logger"
)

const defaultCacheSpec = "@hourly"

// BackupRunner produces one database backup per call.
type BackupRunner interface {
	Run(ctx context.Context) (*backup.Result, error)
}

// Scheduler runs background maintenance: scheduled database backups and
// purging of expired cache rows.
type Scheduler struct {
	db     *gorm.DB
	backup BackupRunner
	cron   *cron.Cron
	now    func() time.Time
	log    *zap.Logger

	backupSchedule string
	cacheSchedule  string
}

// Option customises the Scheduler.
type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock used for cache expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBackup schedules runner with the cron spec. An empty spec disables the job.
func WithBackup(runner BackupRunner, spec string) Option {
	return func(s *Scheduler) {
		s.backup = runner
		s.backupSchedule = spec
	}
}

// WithCacheSchedule overrides the cron specification for cache purging.
func WithCacheSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.cacheSchedule = spec
		}
	}
}

// NewScheduler constructs a Scheduler. A nil db disables cache purging.
func NewScheduler(db *gorm.DB, opts ...Option) *Scheduler {
	s := &Scheduler{
		db:            db,
		now:           time.Now,
		cacheSchedule: defaultCacheSpec,
		log:           logger.WithModule("maintenance"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return s
}

func (s *Scheduler) backupEnabled() bool {
	return s.backup != nil && s.backupSchedule != ""
}

// Start registers the enabled jobs and launches the cron scheduler.
func (s *Scheduler) Start() error {
	if !s.backupEnabled() && s.db == nil {
		return nil
	}

	if s.backupEnabled() {
		if _, err := s.cron.AddFunc(s.backupSchedule, func() {
			if _, err := s.backup.Run(context.Background()); err != nil {
				s.log.Warn("scheduled backup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if s.db != nil {
		if _, err := s.cron.AddFunc(s.cacheSchedule, func() {
			if _, err := cache.PurgeExpired(context.Background(), s.db, s.now()); err != nil {
				s.log.Warn("cache purge failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes every configured job sequentially.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.backup == nil && s.db == nil {
		return errors.New("maintenance: nothing to run")
	}

	var errs error
	if s.backup != nil {
		if _, err := s.backup.Run(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if s.db != nil {
		if _, err := cache.PurgeExpired(ctx, s.db, s.now()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
