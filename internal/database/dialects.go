package database

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type dialect struct {
	dsn       func(Config) (string, error)
	dialector func(dsn string) gorm.Dialector
	afterOpen func(*gorm.DB) error
}

var dialects = map[string]dialect{
	"sqlite":   {dsn: sqliteDSN, dialector: sqlite.Open, afterOpen: enableForeignKeys},
	"postgres": {dsn: postgresDSN, dialector: postgres.Open},
	"mysql":    {dsn: mysqlDSN, dialector: mysql.Open},
}

// IsMemoryPath reports whether path selects an in-memory SQLite database.
func IsMemoryPath(path string) bool {
	path = strings.TrimSpace(path)
	return path == "" || strings.EqualFold(path, ":memory:")
}

func sqliteDSN(cfg Config) (string, error) {
	path := strings.TrimSpace(cfg.Path)
	if IsMemoryPath(path) {
		return "file::memory:?cache=shared&_foreign_keys=1", nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("sqlite: create directory: %w", err)
		}
	}
	return "file:" + filepath.ToSlash(path) + "?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000", nil
}

// enableForeignKeys covers DSN overrides that omit _foreign_keys.
func enableForeignKeys(db *gorm.DB) error {
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	return nil
}

func requireAccount(driver string, cfg Config) error {
	if cfg.User == "" || cfg.Name == "" {
		return errors.New(driver + " configuration requires user and database name")
	}
	return nil
}

func hostPort(cfg Config, defaultHost string, defaultPort int) string {
	host, port := cfg.Host, cfg.Port
	if host == "" {
		host = defaultHost
	}
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// postgresDSN builds a postgres:// URL. sslmode defaults to disable.
func postgresDSN(cfg Config) (string, error) {
	if err := requireAccount("postgres", cfg); err != nil {
		return "", err
	}

	query := url.Values{}
	for key, value := range cfg.Options {
		query.Set(key, value)
	}
	if query.Get("sslmode") == "" {
		query.Set("sslmode", "disable")
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     hostPort(cfg, "localhost", 5432),
		Path:     "/" + cfg.Name,
		RawQuery: query.Encode(),
	}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else {
		u.User = url.User(cfg.User)
	}
	return u.String(), nil
}

func mysqlDSN(cfg Config) (string, error) {
	if err := requireAccount("mysql", cfg); err != nil {
		return "", err
	}

	dc := mysqldrv.NewConfig()
	dc.Net = "tcp"
	dc.Addr = hostPort(cfg, "127.0.0.1", 3306)
	dc.User = cfg.User
	dc.Passwd = cfg.Password
	dc.DBName = cfg.Name
	dc.ParseTime = true
	dc.Loc = time.UTC
	dc.Params = map[string]string{"charset": "utf8mb4"}
	for key, value := range cfg.Options {
		dc.Params[key] = value
	}
	return dc.FormatDSN(), nil
}
