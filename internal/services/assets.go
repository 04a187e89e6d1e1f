package services

import (
	"context"
	"io"
	"path"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/catalogadmin/internal/storage"
	apperrors "github.com/charlesng35/catalogadmin/pkg/errors"
	"github.com/charlesng35/catalogadmin/pkg/metrics"
)

// Content-type directories below an owner directory.
const (
	dirImages = "images"
	dirVideos = "videos"
	dirIcons  = "icons"
	dirFiles  = "files"
)

// Upload is a file received from a client. Content is owned by the caller.
type Upload struct {
	Filename string
	Content  io.Reader
}

// AssetAction enumerates what a write does to an optional file field.
type AssetAction int

const (
	AssetKeep AssetAction = iota
	AssetClear
	AssetReplace
)

// AssetChange is the tagged Keep | Clear | Replace(Upload) variant for file fields.
type AssetChange struct {
	Action AssetAction
	Upload *Upload
}

// Keep leaves the stored file untouched.
func Keep() AssetChange { return AssetChange{Action: AssetKeep} }

// Clear removes the stored file and nulls the field.
func Clear() AssetChange { return AssetChange{Action: AssetClear} }

// Replace stores upload and removes the previous file after commit.
func Replace(upload Upload) AssetChange {
	return AssetChange{Action: AssetReplace, Upload: &upload}
}

func assetDir(owner, kind string) string {
	return path.Join(owner, kind)
}

// assetBatch tracks the files written and superseded by a single write so that
// new files can be removed on failure and stale ones after commit.
type assetBatch struct {
	store  storage.Store
	log    *zap.Logger
	stored []string
	stale  []string
}

func newAssetBatch(store storage.Store, log *zap.Logger) *assetBatch {
	if log == nil {
		log = zap.NewNop()
	}
	return &assetBatch{store: store, log: log}
}

// apply resolves change against current and returns the value to persist.
func (b *assetBatch) apply(ctx context.Context, dir string, current *string, change AssetChange) (*string, error) {
	switch change.Action {
	case AssetClear:
		b.discard(current)
		return nil, nil
	case AssetReplace:
		if change.Upload == nil || change.Upload.Content == nil {
			return current, nil
		}
		stored, err := b.put(ctx, dir, *change.Upload)
		if err != nil {
			return nil, err
		}
		b.discard(current)
		return &stored, nil
	default:
		return current, nil
	}
}

func (b *assetBatch) put(ctx context.Context, dir string, upload Upload) (string, error) {
	if b.store == nil {
		return "", apperrors.NewStorage(storage.ErrInvalidPath)
	}
	stored, err := b.store.Put(ctx, dir, upload.Filename, upload.Content)
	if err != nil {
		return "", apperrors.NewStorage(err)
	}
	metrics.StoredFiles.WithLabelValues(path.Dir(dir)).Inc()
	b.stored = append(b.stored, stored)
	return stored, nil
}

// discard schedules the given paths for removal once the write commits.
func (b *assetBatch) discard(paths ...*string) {
	for _, p := range paths {
		if p != nil && *p != "" {
			b.stale = append(b.stale, *p)
		}
	}
}

func (b *assetBatch) discardAll(paths []string) {
	for _, p := range paths {
		if p != "" {
			b.stale = append(b.stale, p)
		}
	}
}

// finish removes new files when err is non-nil, otherwise the stale ones.
// Removal failures are logged and never returned.
func (b *assetBatch) finish(ctx context.Context, err error) {
	ctx = context.WithoutCancel(ensureContext(ctx))
	if err != nil {
		if removeErr := b.remove(ctx, b.stored); removeErr != nil {
			b.log.Warn("failed to remove files stored by failed write", zap.Error(removeErr))
		}
		return
	}
	if removeErr := b.remove(ctx, b.stale); removeErr != nil {
		b.log.Warn("failed to remove stale files", zap.Error(removeErr))
	}
}

func (b *assetBatch) remove(ctx context.Context, paths []string) error {
	if b.store == nil || len(paths) == 0 {
		return nil
	}
	var errs error
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		err := b.store.Delete(ctx, p)
		metrics.RemovedFiles.WithLabelValues(metrics.Result(err)).Inc()
		errs = multierr.Append(errs, err)
	}
	return errs
}
