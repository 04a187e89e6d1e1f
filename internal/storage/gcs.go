package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSConfig configures the Google Cloud Storage backend.
type GCSConfig struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
	PublicURL       string
	Endpoint        string
}

// GCSStore keeps files as objects inside a single bucket.
type GCSStore struct {
	client    *gcs.Client
	bucket    string
	prefix    string
	publicURL string
	now       func() time.Time
}

// NewGCSStore creates a client for cfg.Bucket.
func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("storage: gcs bucket is required")
	}

	opts := []option.ClientOption{option.WithScopes(gcs.ScopeReadWrite)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: gcs client: %w", err)
	}

	return &GCSStore{
		client:    client,
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		publicURL: gcsPublicURL(cfg),
		now:       time.Now,
	}, nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) Put(ctx context.Context, dir, originalName string, r io.Reader) (string, error) {
	cleanDir, err := CleanPath(dir)
	if err != nil {
		return "", err
	}
	name, err := GenerateName(originalName, s.now())
	if err != nil {
		return "", err
	}
	rel := path.Join(cleanDir, name)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.object(rel).NewWriter(ctx)
	if ct := mime.TypeByExtension(path.Ext(rel)); ct != "" {
		w.ContentType = ct
	}
	if err := writeObject(w, cancel, r); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", rel, err)
	}
	return rel, nil
}

// writeObject streams r into w. Closing a GCS writer commits the object, so a
// failed copy cancels the writer's context instead and nothing is finalised.
func writeObject(w io.WriteCloser, cancel context.CancelFunc, r io.Reader) error {
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

func (s *GCSStore) Exists(ctx context.Context, p string) (bool, error) {
	rel, err := CleanPath(p)
	if err != nil {
		return false, err
	}
	_, err = s.object(rel).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *GCSStore) Delete(ctx context.Context, p string) error {
	rel, err := CleanPath(p)
	if err != nil {
		return err
	}
	if err := s.object(rel).Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("storage: delete %s: %w", rel, err)
	}
	return nil
}

func (s *GCSStore) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	rel, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	reader, err := s.object(rel).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	return reader, err
}

func (s *GCSStore) URL(p string) string {
	return joinURL(s.publicURL, s.key(p))
}

func (s *GCSStore) object(rel string) *gcs.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(s.key(rel))
}

func (s *GCSStore) key(rel string) string {
	if s.prefix == "" {
		return rel
	}
	return s.prefix + "/" + rel
}

func gcsPublicURL(cfg GCSConfig) string {
	if cfg.PublicURL != "" {
		return cfg.PublicURL
	}
	return "https://storage.googleapis.com/" + cfg.Bucket
}
