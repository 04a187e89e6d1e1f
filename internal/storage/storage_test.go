package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"Office Chair.JPG":       "office-chair.jpg",
		"../../etc/passwd":       "passwd",
		"  résumé final (2).pdf": "r-sum-final-2.pdf",
		"":                       "file",
		"***.png":                "file.png",
		`C:\Users\me\photo.png`:  "photo.png",
	}
	for input, expected := range cases {
		require.Equal(t, expected, SanitizeName(input), "input %q", input)
	}
}

func TestGenerateNameFormat(t *testing.T) {
	now := time.Unix(1700000000, 42)
	name, err := GenerateName("Chair.png", now)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^1700000000000000042_[0-9a-f]{8}_chair\.png$`), name)

	other, err := GenerateName("Chair.png", now)
	require.NoError(t, err)
	require.NotEqual(t, name, other)
}

func TestCleanPath(t *testing.T) {
	p, err := CleanPath("/categories/images/../images/a.png")
	require.NoError(t, err)
	require.Equal(t, "categories/images/a.png", p)

	for _, bad := range []string{"", "..", "../secret", "a/../../b"} {
		_, err := CleanPath(bad)
		require.ErrorIs(t, err, ErrInvalidPath, "path %q", bad)
	}
}

func TestLocalStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(filepath.Join(t.TempDir(), "uploads"), "/uploads")
	require.NoError(t, err)

	rel, err := store.Put(ctx, "categories/images", "Chair.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(rel, "categories/images/"))
	require.True(t, strings.HasSuffix(rel, "_chair.png"))
	require.FileExists(t, filepath.Join(store.Root(), filepath.FromSlash(rel)))
	require.Equal(t, "/uploads/"+rel, store.URL(rel))

	exists, err := store.Exists(ctx, rel)
	require.NoError(t, err)
	require.True(t, exists)

	reader, err := store.Open(ctx, rel)
	require.NoError(t, err)
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	require.Equal(t, "png-bytes", string(content))

	require.NoError(t, store.Delete(ctx, rel))
	exists, err = store.Exists(ctx, rel)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, store.Delete(ctx, rel), "deleting a missing file is not an error")

	_, err = store.Open(ctx, rel)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../outside", "a.txt", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrInvalidPath)

	require.ErrorIs(t, store.Delete(context.Background(), "../../etc/passwd"), ErrInvalidPath)
}

func TestGCSPublicURL(t *testing.T) {
	require.Equal(t, "https://storage.googleapis.com/assets", gcsPublicURL(GCSConfig{Bucket: "assets"}))
	require.Equal(t, "https://cdn.example.com", gcsPublicURL(GCSConfig{Bucket: "assets", PublicURL: "https://cdn.example.com"}))

	store := &GCSStore{prefix: "catalog", publicURL: "https://cdn.example.com/"}
	require.Equal(t, "https://cdn.example.com/catalog/products/images/a.png", store.URL("products/images/a.png"))
}

type recordingWriter struct {
	strings.Builder
	closed bool
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestWriteObjectAbortsWithoutCommitOnReadFailure(t *testing.T) {
	w := &recordingWriter{}
	cancelled := false
	err := writeObject(w, func() { cancelled = true }, io.MultiReader(strings.NewReader("partial"), brokenReader{}))
	require.ErrorContains(t, err, "connection reset")
	require.True(t, cancelled)
	require.False(t, w.closed)

	w = &recordingWriter{}
	cancelled = false
	require.NoError(t, writeObject(w, func() { cancelled = true }, strings.NewReader("complete")))
	require.False(t, cancelled)
	require.True(t, w.closed)
	require.Equal(t, "complete", w.String())
}
