package upload

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// BunnyConfig holds Bunny storage settings
type BunnyConfig struct {
	StorageZone string
	AccessKey   string

	// Endpoint is the storage API host, e.g. https://storage.bunnycdn.com
	Endpoint string

	// PublicBase is the pull zone URL files are served from; defaults to
	// https://{zone}.b-cdn.net
	PublicBase string

	Retries int
	Timeout time.Duration
}

// BunnyStorage uploads to a Bunny storage zone
type BunnyStorage struct {
	client     *resty.Client
	publicBase string
	now        func() time.Time
}

// NewBunnyStorage creates a Bunny storage client with retry and backoff
func NewBunnyStorage(cfg BunnyConfig) (*BunnyStorage, error) {
	if cfg.StorageZone == "" || cfg.AccessKey == "" {
		return nil, fmt.Errorf("bunny storage zone and access key are required")
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = "https://storage.bunnycdn.com"
	}

	publicBase := strings.TrimRight(cfg.PublicBase, "/")
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://%s.b-cdn.net", cfg.StorageZone)
	}

	retries := cfg.Retries
	if retries <= 0 {
		retries = 3
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(endpoint+"/"+cfg.StorageZone).
		SetTimeout(timeout).
		SetHeader("AccessKey", cfg.AccessKey).
		SetHeader("User-Agent", "course-engine/1.0").
		// resty counts retries after the first attempt
		SetRetryCount(retries-1).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(4*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		AddRetryHook(func(r *resty.Response, err error) {
			if r == nil {
				return
			}
			slog.Warn("bunny request failed, retrying",
				"attempt", r.Request.Attempt,
				"status", r.StatusCode(),
				"error", err,
			)
		})

	return &BunnyStorage{
		client:     client,
		publicBase: publicBase,
		now:        time.Now,
	}, nil
}

// Upload PUTs the file and returns its pull zone URL
func (b *BunnyStorage) Upload(ctx context.Context, f *File) (string, error) {
	if f == nil || len(f.Data) == 0 {
		return "", fmt.Errorf("invalid file provided")
	}

	name := objectName(b.now(), f.Name)
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	slog.Info("uploading file", "name", name, "bytes", len(f.Data))

	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(f.Data).
		Put("/" + name)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	if resp.IsError() {
		return "", statusError("upload", name, resp.StatusCode())
	}

	fileURL := b.publicBase + "/" + name
	slog.Info("file uploaded", "url", fileURL)
	return fileURL, nil
}

// Owns reports whether fileURL is a pull zone URL of this zone
func (b *BunnyStorage) Owns(fileURL string) bool {
	return underBase(b.publicBase, fileURL)
}

// Delete removes the file named by the URL's last path segment
func (b *BunnyStorage) Delete(ctx context.Context, fileURL string) error {
	if !b.Owns(fileURL) {
		return fmt.Errorf("%w: %s", ErrForeignURL, fileURL)
	}
	name, err := lastSegment(fileURL)
	if err != nil {
		return err
	}

	resp, err := b.client.R().SetContext(ctx).Delete("/" + name)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return statusError("delete", name, resp.StatusCode())
	}
	return nil
}

func statusError(op, name string, status int) error {
	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("failed to %s %s: invalid bunny access key", op, name)
	case http.StatusNotFound:
		return fmt.Errorf("failed to %s %s: storage zone not found", op, name)
	default:
		return fmt.Errorf("failed to %s %s: status %d", op, name, status)
	}
}
