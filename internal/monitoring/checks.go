package monitoring

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/storage"
)

const storageProbePath = ".healthcheck"

// Pinger is satisfied by cache.RedisStore.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Database pings the SQL connection pool behind db.
func Database(db *gorm.DB) Check {
	return Check{Name: "database", Run: func(ctx context.Context) error {
		if db == nil {
			return errors.New("database not configured")
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}}
}

// Storage verifies the file store answers a metadata lookup.
func Storage(store storage.Store) Check {
	return Check{Name: "storage", Run: func(ctx context.Context) error {
		if store == nil {
			return errors.New("file store not configured")
		}
		_, err := store.Exists(ctx, storageProbePath)
		return err
	}}
}

// Redis pings the cache. Rate limiting fails open, so an outage is degraded.
func Redis(client Pinger) Check {
	return Check{Name: "redis", Optional: true, Run: func(ctx context.Context) error {
		if client == nil {
			return errors.New("redis unavailable")
		}
		return client.Ping(ctx)
	}}
}
