package services

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/catalogadmin/internal/database/testutil"
	"github.com/charlesng35/catalogadmin/internal/models"
	"github.com/charlesng35/catalogadmin/internal/storage"
)

func newTestStore(t *testing.T) *storage.LocalStore {
	t.Helper()
	store, err := storage.NewLocalStore(filepath.Join(t.TempDir(), "uploads"), "/uploads")
	require.NoError(t, err)
	return store
}

func newTestHierarchy(t *testing.T, kind models.NodeKind) (*HierarchyService, *gorm.DB, *storage.LocalStore) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	store := newTestStore(t)
	svc, err := NewHierarchyService(db, store, kind)
	require.NoError(t, err)
	return svc, db, store
}

func upload(name, content string) AssetChange {
	return Replace(Upload{Filename: name, Content: strings.NewReader(content)})
}

func strPtr(value string) *string { return &value }

func uintPtr(value uint) *uint { return &value }

func intPtr(value int) *int { return &value }

func activeStatus() *uint { return uintPtr(models.StatusActive) }

func requireExists(t *testing.T, store storage.Store, p string, expected bool) {
	t.Helper()
	exists, err := store.Exists(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, expected, exists, "existence of %s", p)
}

// failingStore rejects uploads whose original name contains "fail".
type failingStore struct {
	storage.Store
}

func (f failingStore) Put(ctx context.Context, dir, originalName string, r io.Reader) (string, error) {
	if strings.Contains(originalName, "fail") {
		return "", errors.New("disk full")
	}
	return f.Store.Put(ctx, dir, originalName, r)
}

func storeFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}
