package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/catalogadmin/internal/backup"
	testutil "github.com/charlesng35/catalogadmin/internal/database/testutil"
	"github.com/charlesng35/catalogadmin/internal/models"
)

type stubRunner struct {
	calls int
	err   error
}

func (r *stubRunner) Run(context.Context) (*backup.Result, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &backup.Result{Path: "catalog.sqlite"}, nil
}

func TestSchedulerRunOncePurgesExpiredCacheEntries(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	now := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

	require.NoError(t, db.Create(&models.CacheEntry{Key: "expired", Value: []byte("1"), ExpiresAt: now.Add(-time.Minute)}).Error)
	require.NoError(t, db.Create(&models.CacheEntry{Key: "active", Value: []byte("1"), ExpiresAt: now.Add(time.Minute)}).Error)
	require.NoError(t, db.Create(&models.CacheEntry{Key: "forever", Value: []byte("1")}).Error)

	runner := &stubRunner{}
	s := NewScheduler(db, WithNow(func() time.Time { return now }), WithBackup(runner, ""))
	require.NoError(t, s.RunOnce(context.Background()))
	require.Equal(t, 1, runner.calls)

	var keys []string
	require.NoError(t, db.Model(&models.CacheEntry{}).Order("cache_key").Pluck("cache_key", &keys).Error)
	require.Equal(t, []string{"active", "forever"}, keys)
}

func TestSchedulerRunOnceAggregatesErrors(t *testing.T) {
	runner := &stubRunner{err: errors.New("disk full")}
	s := NewScheduler(nil, WithBackup(runner, "@daily"))
	err := s.RunOnce(context.Background())
	require.ErrorContains(t, err, "disk full")
}

func TestSchedulerRunOnceWithoutJobs(t *testing.T) {
	require.Error(t, NewScheduler(nil).RunOnce(context.Background()))
}

func TestSchedulerStartRegistersEnabledJobs(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	c := cron.New(cron.WithLogger(cron.DiscardLogger))

	s := NewScheduler(db, WithCron(c), WithBackup(&stubRunner{}, "0 3 * * *"), WithCacheSchedule("@every 10m"))
	require.NoError(t, s.Start())
	t.Cleanup(func() { <-s.Stop().Done() })

	require.Len(t, c.Entries(), 2)
}

func TestSchedulerStartSkipsBackupWithoutSchedule(t *testing.T) {
	c := cron.New(cron.WithLogger(cron.DiscardLogger))
	s := NewScheduler(nil, WithCron(c), WithBackup(&stubRunner{}, ""))
	require.NoError(t, s.Start())
	require.Empty(t, c.Entries())
}

func TestSchedulerStartRejectsInvalidSchedule(t *testing.T) {
	c := cron.New(cron.WithLogger(cron.DiscardLogger))
	s := NewScheduler(nil, WithCron(c), WithBackup(&stubRunner{}, "not a schedule"))
	require.Error(t, s.Start())
}
