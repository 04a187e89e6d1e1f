package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/catalogadmin/internal/database/testutil"
	"github.com/charlesng35/catalogadmin/internal/models"
)

func TestDatabaseStoreIncrementUsesFixedWindow(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)

	now = now.Add(20 * time.Second)
	count, ttl, err = store.IncrementWithTTL(ctx, "login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Equal(t, 40*time.Second, ttl)

	now = now.Add(time.Minute)
	count, _, err = store.IncrementWithTTL(ctx, "login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestDatabaseStoreSetGetDelete(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, store.Set(ctx, "a", []byte("2"), time.Minute))
	value, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("2"), value)

	now = now.Add(2 * time.Minute)
	_, ok, err = store.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "b", []byte("x"), 0))
	require.NoError(t, store.Delete(ctx, "b"))
	_, ok, err = store.Get(ctx, "b")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPurgeExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&[]models.CacheEntry{
		{Key: "old", Value: []byte("1"), ExpiresAt: now.Add(-time.Minute)},
		{Key: "fresh", Value: []byte("1"), ExpiresAt: now.Add(time.Minute)},
		{Key: "forever", Value: []byte("1")},
	}).Error)

	removed, err := PurgeExpired(context.Background(), db, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var remaining int64
	require.NoError(t, db.Model(&models.CacheEntry{}).Count(&remaining).Error)
	require.EqualValues(t, 2, remaining)
}

func TestDatabaseStoreWithoutDatabase(t *testing.T) {
	var store *DatabaseStore
	require.Nil(t, NewDatabaseStore(nil))

	_, _, err := store.IncrementWithTTL(context.Background(), "k", time.Second)
	require.ErrorIs(t, err, errNoDatabase)
	require.ErrorIs(t, store.Delete(context.Background(), "k"), errNoDatabase)

	_, err = PurgeExpired(context.Background(), nil, time.Now())
	require.ErrorIs(t, err, errNoDatabase)
}
