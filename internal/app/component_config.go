package app

import (
	"strings"

	"github.com/charlesng35/catalogadmin/internal/backup"
	"github.com/charlesng35/catalogadmin/internal/cache"
	"github.com/charlesng35/catalogadmin/internal/database"
	"github.com/charlesng35/catalogadmin/internal/services"
	"github.com/charlesng35/catalogadmin/internal/storage"
	"github.com/charlesng35/catalogadmin/pkg/mail"
)

// ConnectionConfig converts DatabaseConfig into database connection options.
// Host based settings are taken from the section matching the driver.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	cfg := database.Config{
		Driver: c.Driver,
		Path:   c.Path,
		DSN:    strings.TrimSpace(c.DSN),
		Debug:  c.Debug,
	}
	var hostCfg DBAuthConfig
	switch cfg.NormalisedDriver() {
	case "postgres":
		hostCfg = c.Postgres
	case "mysql":
		hostCfg = c.MySQL
	default:
		return cfg
	}
	cfg.Host = hostCfg.Host
	cfg.Port = hostCfg.Port
	cfg.Name = hostCfg.Database
	cfg.User = hostCfg.Username
	cfg.Password = hostCfg.Password
	return cfg
}

// LocalRoot returns the local storage root, defaulting to ./data/uploads.
func (c StorageConfig) LocalRoot() string {
	if root := strings.TrimSpace(c.Root); root != "" {
		return root
	}
	return "./data/uploads"
}

// UsesGCS reports whether files are stored in Google Cloud Storage.
func (c StorageConfig) UsesGCS() bool {
	return strings.EqualFold(strings.TrimSpace(c.Driver), "gcs")
}

// GCSStoreConfig converts the gcs section into storage options.
func (c StorageConfig) GCSStoreConfig() storage.GCSConfig {
	return storage.GCSConfig{
		Bucket:          strings.TrimSpace(c.GCS.Bucket),
		Prefix:          strings.Trim(strings.TrimSpace(c.GCS.Prefix), "/"),
		CredentialsFile: strings.TrimSpace(c.GCS.CredentialsFile),
		PublicURL:       strings.TrimSpace(c.GCS.PublicURL),
		Endpoint:        strings.TrimSpace(c.GCS.Endpoint),
	}
}

// RunnerConfig converts BackupConfig into backup runner options.
func (c BackupConfig) RunnerConfig() backup.Config {
	return backup.Config{
		Dir:           strings.TrimSpace(c.Dir),
		Prefix:        strings.TrimSpace(c.Prefix),
		Retention:     c.Retention,
		PgDumpPath:    strings.TrimSpace(c.PgDumpPath),
		MySQLDumpPath: strings.TrimSpace(c.MySQLDumpPath),
		Notify:        c.Notify,
	}
}

// Settings converts PaginationConfig into service pagination bounds.
func (c PaginationConfig) Settings() services.Pagination {
	pagination := services.DefaultPagination
	if c.DefaultPageSize > 0 {
		pagination.DefaultSize = c.DefaultPageSize
	}
	if c.MaxPageSize > 0 {
		pagination.MaxSize = c.MaxPageSize
	}
	if pagination.DefaultSize > pagination.MaxSize {
		pagination.DefaultSize = pagination.MaxSize
	}
	return pagination
}

// RedisClientConfig converts the cache.redis section into client options.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:  strings.TrimSpace(c.Redis.Address),
		Username: strings.TrimSpace(c.Redis.Username),
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TLS:      c.Redis.TLS,
		Timeout:  c.Redis.Timeout,
	}
}

// SMTPSettings converts the email.smtp section into mailer options.
func (c EmailConfig) SMTPSettings() mail.Settings {
	s := c.SMTP
	return mail.Settings{
		Enabled:  s.Enabled,
		Host:     strings.TrimSpace(s.Host),
		Port:     s.Port,
		Username: strings.TrimSpace(s.Username),
		Password: s.Password,
		From:     strings.TrimSpace(s.From),
		UseTLS:   s.UseTLS,
		Timeout:  s.Timeout,
	}
}
