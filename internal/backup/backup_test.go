package backup

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/catalogadmin/internal/database"
	"github.com/charlesng35/catalogadmin/internal/models"
	"github.com/charlesng35/catalogadmin/pkg/mail"
)

func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func TestRunnerSQLiteBackupAndRetention(t *testing.T) {
	dir := t.TempDir()
	cfg := database.Config{Driver: "sqlite", Path: filepath.Join(dir, "catalog.db")}
	db, err := database.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateAndSeed(db, database.SeedOptions{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	backupDir := filepath.Join(dir, "backups")
	runner, err := NewRunner(db, cfg, Config{Dir: backupDir, Retention: 2}, WithNow(steppingClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, err)

	var results []*Result
	for i := 0; i < 3; i++ {
		result, err := runner.Run(context.Background())
		require.NoError(t, err)
		require.Positive(t, result.Size)
		results = append(results, result)
	}
	require.Equal(t, filepath.Join(backupDir, "catalog-20240501T000100Z.sqlite"), results[0].Path)
	require.Equal(t, []string{results[0].Path}, results[2].Removed)

	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	restored, err := database.Open(database.Config{Driver: "sqlite", Path: results[2].Path})
	require.NoError(t, err)
	var statuses int64
	require.NoError(t, restored.Model(&models.Status{}).Count(&statuses).Error)
	require.EqualValues(t, len(models.DefaultStatuses()), statuses)
	restoredDB, err := restored.DB()
	require.NoError(t, err)
	require.NoError(t, restoredDB.Close())
}

func TestRunnerNotifiesOnFailure(t *testing.T) {
	recorder := &mail.Recorder{}
	runner, err := NewRunner(nil, database.Config{Driver: "oracle"}, Config{Dir: t.TempDir(), Notify: []string{"ops@example.com"}}, WithMailer(recorder))
	require.NoError(t, err)

	_, err = runner.Run(context.Background())
	require.Error(t, err)

	messages := recorder.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, []string{"ops@example.com"}, messages[0].To)
	require.Contains(t, messages[0].Body, "oracle")
}

func TestRunnerRequiresDirectory(t *testing.T) {
	_, err := NewRunner(nil, database.Config{Driver: "postgres"}, Config{})
	require.Error(t, err)

	_, err = NewRunner(nil, database.Config{Driver: "sqlite"}, Config{Dir: t.TempDir()})
	require.Error(t, err)
}

func TestRunnerExternalDumpIsCompressed(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	runner, err := NewRunner(nil, database.Config{Driver: "postgres", Host: "db", Name: "catalog"}, Config{Dir: dir}, WithNow(steppingClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, err)

	var invoked []string
	runner.command = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		invoked = append([]string{name}, args...)
		return exec.CommandContext(ctx, "sh", "-c", "printf 'CREATE TABLE products();'")
	}

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(result.Path, ".sql.gz"))
	require.Equal(t, "pg_dump", invoked[0])
	require.Contains(t, invoked, "catalog")

	file, err := os.Open(result.Path)
	require.NoError(t, err)
	defer file.Close()
	reader, err := gzip.NewReader(file)
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, "CREATE TABLE products();", string(data))
}

func TestRunnerFailedDumpRemovesPartialFile(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	runner, err := NewRunner(nil, database.Config{Driver: "mysql", Name: "catalog"}, Config{Dir: dir})
	require.NoError(t, err)
	runner.command = func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", "echo 'access denied' >&2; exit 2")
	}

	_, err = runner.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "access denied")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDumpCommandFromDSN(t *testing.T) {
	name, args, env, err := dumpCommand("postgres", database.Config{DSN: "postgres://admin:pw@db.local:5433/catalog?sslmode=disable"}, Config{PgDumpPath: "/usr/bin/pg_dump"})
	require.NoError(t, err)
	require.Equal(t, "/usr/bin/pg_dump", name)
	require.Contains(t, args, "--host=db.local")
	require.Contains(t, args, "--port=5433")
	require.Contains(t, args, "--username=admin")
	require.Equal(t, "catalog", args[len(args)-1])
	require.Equal(t, []string{"PGPASSWORD=pw"}, env)

	name, args, env, err = dumpCommand("mysql", database.Config{DSN: "root:secret@tcp(127.0.0.1:3307)/shop?parseTime=true"}, Config{MySQLDumpPath: "mysqldump"})
	require.NoError(t, err)
	require.Equal(t, "mysqldump", name)
	require.Contains(t, args, "--host=127.0.0.1")
	require.Contains(t, args, "--port=3307")
	require.Contains(t, args, "--user=root")
	require.Equal(t, "shop", args[len(args)-1])
	require.Equal(t, []string{"MYSQL_PWD=secret"}, env)

	_, _, _, err = dumpCommand("sqlite", database.Config{}, Config{})
	require.Error(t, err)
}
