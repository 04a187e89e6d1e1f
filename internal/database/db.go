package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/charlesng35/catalogadmin/pkg/logger"
)

const slowQueryThreshold = 500 * time.Millisecond

// Config contains database connection options.
type Config struct {
	Driver string
	// Path is the SQLite file; empty or ":memory:" opens a shared in-memory database.
	Path string
	// DSN overrides every host based field when set.
	DSN      string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	Options  map[string]string
	Debug    bool
}

// NormalisedDriver returns the canonical driver name, defaulting to sqlite.
func (c Config) NormalisedDriver() string {
	switch driver := strings.ToLower(strings.TrimSpace(c.Driver)); driver {
	case "", "sqlite3":
		return "sqlite"
	case "postgresql", "pgx":
		return "postgres"
	default:
		return driver
	}
}

// Open connects to the configured database.
func Open(cfg Config) (*gorm.DB, error) {
	d, ok := dialects[cfg.NormalisedDriver()]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		var err error
		if dsn, err = d.dsn(cfg); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(d.dialector(dsn), &gorm.Config{Logger: queryLogger(cfg.Debug)})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.NormalisedDriver(), err)
	}
	if d.afterOpen != nil {
		if err := d.afterOpen(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// AutoMigrateAndSeed migrates the schema and seeds statuses and the first administrator.
func AutoMigrateAndSeed(db *gorm.DB, seed SeedOptions) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	if err := AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := SeedData(db, seed); err != nil {
		return fmt.Errorf("seed data: %w", err)
	}
	return nil
}

// queryLogger routes gorm's SQL log through zap. Only slow queries and errors
// are reported unless debug is set.
func queryLogger(debug bool) gormlogger.Interface {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return gormlogger.New(
		zap.NewStdLog(logger.WithModule("gorm")),
		gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      !debug,
		},
	)
}
