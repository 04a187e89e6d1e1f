package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned by Open when the path does not exist.
var ErrNotFound = errors.New("storage: file not found")

// ErrInvalidPath is returned for paths escaping the storage root.
var ErrInvalidPath = errors.New("storage: invalid path")

// Store persists uploaded assets addressed by relative, slash-separated paths.
type Store interface {
	// Put writes r under dir using a collision-resistant name derived from originalName
	// and returns the stored relative path.
	Put(ctx context.Context, dir, originalName string, r io.Reader) (string, error)
	Exists(ctx context.Context, p string) (bool, error)
	// Delete removes p. Missing files are not an error.
	Delete(ctx context.Context, p string) error
	Open(ctx context.Context, p string) (io.ReadCloser, error)
	// URL returns the public location of p.
	URL(p string) string
}

// CleanPath normalises a relative storage path and rejects traversal.
func CleanPath(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

func joinURL(base, p string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return "/" + p
	}
	return base + "/" + p
}
