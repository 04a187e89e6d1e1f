// Package testutil opens throwaway catalog databases for tests.
package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/database"
)

type setup int

const (
	bare setup = iota
	migrated
	seeded
)

// TestDBOption selects how much of the schema MustOpenTestDB prepares.
type TestDBOption func(*testDB)

type testDB struct {
	setup setup
	seed  database.SeedOptions
}

// WithAutoMigrate creates the schema.
func WithAutoMigrate() TestDBOption {
	return func(c *testDB) { c.setup = max(c.setup, migrated) }
}

// WithSeedData creates the schema and the default statuses.
func WithSeedData() TestDBOption {
	return func(c *testDB) { c.setup = seeded }
}

// WithAdmin seeds like WithSeedData plus an administrator account.
func WithAdmin(email, password string) TestDBOption {
	return func(c *testDB) {
		c.setup = seeded
		c.seed = database.SeedOptions{AdminEmail: email, AdminPassword: password}
	}
}

// MustOpenTestDB opens a private in-memory SQLite database that is closed when
// the test ends.
func MustOpenTestDB(t testing.TB, opts ...TestDBOption) *gorm.DB {
	t.Helper()

	var c testDB
	for _, opt := range opts {
		opt(&c)
	}

	db, err := database.Open(database.Config{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1",
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	switch c.setup {
	case seeded:
		require.NoError(t, database.AutoMigrateAndSeed(db, c.seed))
	case migrated:
		require.NoError(t, database.AutoMigrate(db))
	}
	return db
}
