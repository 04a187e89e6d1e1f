package backup

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/database"
	"github.com/charlesng35/catalogadmin/pkg/logger"
	"github.com/charlesng35/catalogadmin/pkg/mail"
	"github.com/charlesng35/catalogadmin/pkg/metrics"
)

const (
	defaultPrefix    = "catalog"
	defaultRetention = 7
	timestampLayout  = "20060102T150405Z"
)

// Config controls where backups are written and how many are kept.
type Config struct {
	Dir           string
	Prefix        string
	Retention     int
	PgDumpPath    string
	MySQLDumpPath string
	Notify        []string
}

// Result describes a completed backup.
type Result struct {
	Path     string
	Size     int64
	Duration time.Duration
	Removed  []string
}

type commandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Runner dumps the configured database into timestamped files.
type Runner struct {
	db      *gorm.DB
	dbCfg   database.Config
	cfg     Config
	mailer  mail.Mailer
	now     func() time.Time
	command commandFunc
	log     *zap.Logger
}

// Option customises a Runner.
type Option func(*Runner)

// WithMailer enables failure notifications to Config.Notify.
func WithMailer(m mail.Mailer) Option {
	return func(r *Runner) {
		r.mailer = m
	}
}

// WithNow overrides the clock used to name backup files.
func WithNow(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner validates cfg and returns a Runner for the database described by dbCfg.
func NewRunner(db *gorm.DB, dbCfg database.Config, cfg Config, opts ...Option) (*Runner, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("backup: directory is required")
	}
	if dbCfg.NormalisedDriver() == "sqlite" && db == nil {
		return nil, errors.New("backup: sqlite backups require an open database")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.Retention == 0 {
		cfg.Retention = defaultRetention
	}
	if cfg.PgDumpPath == "" {
		cfg.PgDumpPath = "pg_dump"
	}
	if cfg.MySQLDumpPath == "" {
		cfg.MySQLDumpPath = "mysqldump"
	}

	r := &Runner{
		db:      db,
		dbCfg:   dbCfg,
		cfg:     cfg,
		now:     time.Now,
		command: exec.CommandContext,
		log:     logger.WithModule("backup"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run writes one backup and prunes old ones beyond the retention count.
func (r *Runner) Run(ctx context.Context) (result *Result, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	defer func() {
		metrics.Backups.WithLabelValues(metrics.Result(err)).Inc()
		metrics.BackupDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			r.log.Error("database backup failed", zap.Error(err))
			r.notify(ctx, err)
		}
	}()

	if err := os.MkdirAll(r.cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("backup: create directory: %w", err)
	}

	driver := r.dbCfg.NormalisedDriver()
	target := filepath.Join(r.cfg.Dir, fmt.Sprintf("%s-%s.%s", r.cfg.Prefix, r.now().UTC().Format(timestampLayout), extension(driver)))

	switch driver {
	case "sqlite":
		err = r.vacuumInto(ctx, target)
	case "postgres", "mysql":
		err = r.dump(ctx, driver, target)
	default:
		err = fmt.Errorf("backup: unsupported database driver %q", r.dbCfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("backup: stat %s: %w", target, err)
	}

	removed, err := r.prune(driver)
	if err != nil {
		return nil, err
	}

	result = &Result{Path: target, Size: info.Size(), Duration: time.Since(start), Removed: removed}
	r.log.Info("database backup written",
		zap.String("path", target),
		zap.Int64("bytes", result.Size),
		zap.Int("pruned", len(removed)),
	)
	return result, nil
}

func (r *Runner) vacuumInto(ctx context.Context, target string) error {
	if err := r.db.WithContext(ctx).Exec("VACUUM INTO ?", target).Error; err != nil {
		return fmt.Errorf("backup: vacuum into %s: %w", target, err)
	}
	return nil
}

func (r *Runner) dump(ctx context.Context, driver, target string) (err error) {
	name, args, env, err := dumpCommand(driver, r.dbCfg, r.cfg)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("backup: create %s: %w", target, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(target)
		}
	}()

	gz := gzip.NewWriter(file)
	var stderr bytes.Buffer
	cmd := r.command(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = gz
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	closeErr := multierr.Combine(gz.Close(), file.Close())
	if runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("backup: %s: %w: %s", filepath.Base(name), runErr, msg)
		}
		return fmt.Errorf("backup: %s: %w", filepath.Base(name), runErr)
	}
	if closeErr != nil {
		return fmt.Errorf("backup: finalise %s: %w", target, closeErr)
	}
	return nil
}

// dumpCommand returns the executable, arguments and extra environment used to
// dump a postgres or mysql database. Passwords travel through the environment.
func dumpCommand(driver string, dbCfg database.Config, cfg Config) (string, []string, []string, error) {
	switch driver {
	case "postgres":
		host, port, user, password, name := dbCfg.Host, dbCfg.Port, dbCfg.User, dbCfg.Password, dbCfg.Name
		if dbCfg.DSN != "" {
			parsed, err := pgconn.ParseConfig(dbCfg.DSN)
			if err != nil {
				return "", nil, nil, fmt.Errorf("backup: parse postgres dsn: %w", err)
			}
			host, port, user, password, name = parsed.Host, int(parsed.Port), parsed.User, parsed.Password, parsed.Database
		}
		args := []string{"--no-owner", "--no-privileges", "--format=plain"}
		args = appendFlag(args, "--host=", host)
		if port > 0 {
			args = append(args, "--port="+strconv.Itoa(port))
		}
		args = appendFlag(args, "--username=", user)
		args = append(args, name)
		var env []string
		if password != "" {
			env = append(env, "PGPASSWORD="+password)
		}
		return cfg.PgDumpPath, args, env, nil

	case "mysql":
		host, port, user, password, name := dbCfg.Host, dbCfg.Port, dbCfg.User, dbCfg.Password, dbCfg.Name
		if dbCfg.DSN != "" {
			parsed, err := mysqldrv.ParseDSN(dbCfg.DSN)
			if err != nil {
				return "", nil, nil, fmt.Errorf("backup: parse mysql dsn: %w", err)
			}
			user, password, name = parsed.User, parsed.Passwd, parsed.DBName
			host, port = splitHostPort(parsed.Addr)
		}
		args := []string{"--single-transaction", "--routines", "--triggers"}
		args = appendFlag(args, "--host=", host)
		if port > 0 {
			args = append(args, "--port="+strconv.Itoa(port))
		}
		args = appendFlag(args, "--user=", user)
		args = append(args, name)
		var env []string
		if password != "" {
			env = append(env, "MYSQL_PWD="+password)
		}
		return cfg.MySQLDumpPath, args, env, nil
	}
	return "", nil, nil, fmt.Errorf("backup: no dump tool for driver %q", driver)
}

func appendFlag(args []string, flag, value string) []string {
	if value == "" {
		return args
	}
	return append(args, flag+value)
}

func splitHostPort(addr string) (string, int) {
	host, portText, found := strings.Cut(addr, ":")
	if !found {
		return addr, 0
	}
	port, _ := strconv.Atoi(portText)
	return host, port
}

func extension(driver string) string {
	if driver == "sqlite" {
		return "sqlite"
	}
	return "sql.gz"
}

// prune deletes the oldest backups so that at most Retention remain.
func (r *Runner) prune(driver string) ([]string, error) {
	if r.cfg.Retention < 0 {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(r.cfg.Dir, r.cfg.Prefix+"-*."+extension(driver)))
	if err != nil {
		return nil, fmt.Errorf("backup: list backups: %w", err)
	}
	if len(matches) <= r.cfg.Retention {
		return nil, nil
	}
	// Timestamps sort lexically.
	sort.Strings(matches)
	stale := matches[:len(matches)-r.cfg.Retention]

	var errs error
	removed := make([]string, 0, len(stale))
	for _, p := range stale {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = multierr.Append(errs, err)
			continue
		}
		removed = append(removed, p)
	}
	if errs != nil {
		return removed, fmt.Errorf("backup: prune: %w", errs)
	}
	return removed, nil
}

func (r *Runner) notify(ctx context.Context, cause error) {
	if r.mailer == nil || len(r.cfg.Notify) == 0 {
		return
	}
	msg := mail.Message{
		To:      r.cfg.Notify,
		Subject: "Catalog database backup failed",
		Body:    fmt.Sprintf("The backup started at %s failed:\n\n%v\n", r.now().UTC().Format(time.RFC3339), cause),
	}
	if err := r.mailer.Send(context.WithoutCancel(ctx), msg); err != nil {
		r.log.Warn("backup failure notification not sent", zap.Error(err))
	}
}
