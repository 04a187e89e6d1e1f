package monitoring

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/catalogadmin/internal/database"
	"github.com/charlesng35/catalogadmin/internal/storage"
)

func staticCheck(name string, err error) Check {
	return Check{Name: name, Run: func(context.Context) error { return err }}
}

func TestProbesEvaluate(t *testing.T) {
	probes := NewProbes(0)
	probes.Register(staticCheck("a", nil), staticCheck("b", nil), Check{Name: "ignored"})

	report := probes.Evaluate(context.Background())
	require.Equal(t, StatusUp, report.Status)
	require.True(t, report.Healthy())
	require.Len(t, report.Checks, 2)
	require.Equal(t, "a", report.Checks[0].Component)
	require.Equal(t, "b", report.Checks[1].Component)
}

func TestProbesWorstStatusWins(t *testing.T) {
	optional := staticCheck("cache", errors.New("refused"))
	optional.Optional = true

	probes := NewProbes(time.Second)
	probes.Register(staticCheck("db", nil), optional)
	report := probes.Evaluate(context.Background())
	require.Equal(t, StatusDegraded, report.Status)
	require.True(t, report.Healthy())
	require.Equal(t, "refused", report.Checks[1].Details)

	probes.Register(staticCheck("files", errors.New("permission denied")))
	report = probes.Evaluate(context.Background())
	require.Equal(t, StatusDown, report.Status)
	require.False(t, report.Healthy())
}

func TestProbesTimeoutAndPanic(t *testing.T) {
	probes := NewProbes(20 * time.Millisecond)
	probes.Register(
		Check{Name: "slow", Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
		Check{Name: "broken", Run: func(context.Context) error { panic("boom") }},
	)

	report := probes.Evaluate(context.Background())
	require.Equal(t, StatusDegraded, report.Checks[0].Status)
	require.Equal(t, StatusDown, report.Checks[1].Status)
	require.Contains(t, report.Checks[1].Details, "boom")
	require.Equal(t, StatusDown, report.Status)
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestDependencyChecks(t *testing.T) {
	db, err := database.Open(database.Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store, err := storage.NewLocalStore(filepath.Join(t.TempDir(), "uploads"), "/uploads")
	require.NoError(t, err)

	probes := NewProbes(time.Second)
	probes.Register(Database(db), Storage(store), Redis(fakePinger{}))
	report := probes.Evaluate(context.Background())
	require.Equal(t, StatusUp, report.Status, report)

	probes = NewProbes(time.Second)
	probes.Register(Database(nil), Redis(fakePinger{err: errors.New("down")}))
	report = probes.Evaluate(context.Background())
	require.Equal(t, StatusDown, report.Checks[0].Status)
	require.Equal(t, StatusDegraded, report.Checks[1].Status)
}
