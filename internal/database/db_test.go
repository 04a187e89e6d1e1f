package database

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/models"
	"github.com/charlesng35/catalogadmin/pkg/crypto"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Exec("SELECT 1").Error)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestNormalisedDriver(t *testing.T) {
	require.Equal(t, "sqlite", Config{}.NormalisedDriver())
	require.Equal(t, "postgres", Config{Driver: "PostgreSQL"}.NormalisedDriver())
	require.Equal(t, "mysql", Config{Driver: " mysql "}.NormalisedDriver())
	require.Equal(t, "postgres", Config{Driver: "pgx"}.NormalisedDriver())
}

func TestAutoMigrateAndSeedData(t *testing.T) {
	db := openTestDB(t)

	seed := SeedOptions{AdminEmail: "Admin@Example.com", AdminPassword: "secret-pass"}
	require.NoError(t, AutoMigrateAndSeed(db, seed))

	var statuses []models.Status
	require.NoError(t, db.Order("id").Find(&statuses).Error)
	require.Len(t, statuses, 3)
	require.Equal(t, "active", statuses[0].Name)
	require.Equal(t, "draft", statuses[2].Name)

	var admin models.User
	require.NoError(t, db.Where("email = ?", "admin@example.com").Take(&admin).Error)
	require.True(t, crypto.VerifyPassword(admin.Password, "secret-pass"))

	// Re-running the seed must not duplicate rows.
	require.NoError(t, AutoMigrateAndSeed(db, seed))
	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
	require.NoError(t, db.Model(&models.Status{}).Count(&count).Error)
	require.EqualValues(t, 3, count)
}

func TestSeedDataSkipsAdminWithoutEmail(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))
	require.NoError(t, SeedData(db, SeedOptions{}))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestTreeNodeLeafValuesCascade(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrateAndSeed(db, SeedOptions{}))

	node := models.TreeNode{Kind: models.KindAttribute, Name: "Finish", StatusID: models.StatusActive}
	require.NoError(t, db.Create(&node).Error)
	require.NoError(t, db.Create(&models.LeafValue{NodeID: node.ID, Name: "Matte"}).Error)

	require.NoError(t, db.Delete(&models.TreeNode{}, node.ID).Error)

	var count int64
	require.NoError(t, db.Model(&models.LeafValue{}).Count(&count).Error)
	require.Zero(t, count)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite"})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
