package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSConfig holds Google Cloud Storage settings
type GCSConfig struct {
	Bucket          string
	PublicBase      string
	CredentialsFile string
}

// GCSStorage uploads to a Google Cloud Storage bucket
type GCSStorage struct {
	client     *storage.Client
	bucket     string
	publicBase string
	now        func() time.Time
}

// NewGCSStorage creates a storage client. Without a credentials file the
// default application credentials are used.
func NewGCSStorage(ctx context.Context, cfg GCSConfig) (*GCSStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}

	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	publicBase := strings.TrimRight(cfg.PublicBase, "/")
	if publicBase == "" {
		publicBase = "https://storage.googleapis.com/" + cfg.Bucket
	}

	return &GCSStorage{client: client, bucket: cfg.Bucket, publicBase: publicBase, now: time.Now}, nil
}

// Upload writes the object and returns its public URL
func (g *GCSStorage) Upload(ctx context.Context, f *File) (string, error) {
	if f == nil || len(f.Data) == 0 {
		return "", fmt.Errorf("invalid file provided")
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	name := objectName(g.now(), f.Name)
	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = f.ContentType

	if _, err := w.Write(f.Data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}

	return g.publicBase + "/" + name, nil
}

// Owns reports whether fileURL is a public URL of this bucket
func (g *GCSStorage) Owns(fileURL string) bool {
	return underBase(g.publicBase, fileURL)
}

// Delete removes the object behind a public URL. Missing objects are ignored.
func (g *GCSStorage) Delete(ctx context.Context, fileURL string) error {
	if !g.Owns(fileURL) {
		return fmt.Errorf("%w: %s", ErrForeignURL, fileURL)
	}
	name := strings.TrimPrefix(fileURL, g.publicBase+"/")

	err := g.client.Bucket(g.bucket).Object(name).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete object %s: %w", name, err)
	}
	return nil
}

// Close releases the storage client
func (g *GCSStorage) Close() error {
	return g.client.Close()
}
