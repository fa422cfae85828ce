// Package upload puts course images on a CDN or object store.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/terra-clan/course-engine/internal/apperr"
	"github.com/terra-clan/course-engine/internal/i18n"
)

var (
	// ErrDisabled is returned by Noop uploads
	ErrDisabled = errors.New("file uploads are not configured")

	// ErrForeignURL is returned when deleting a URL the storage did not issue
	ErrForeignURL = errors.New("file URL is not served by this storage")
)

// File is an in-memory upload
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Storage uploads files and returns their public URL
type Storage interface {
	Upload(ctx context.Context, f *File) (string, error)
	Delete(ctx context.Context, fileURL string) error

	// Owns reports whether fileURL is under the storage's public base
	Owns(fileURL string) bool
}

// UploadPair uploads first then second; nil files are skipped. When the
// second upload fails the first file is deleted again. A failed deletion is
// logged and the upload error is returned.
func UploadPair(ctx context.Context, s Storage, first, second *File) (string, string, error) {
	var firstURL, secondURL string

	if first != nil {
		u, err := s.Upload(ctx, first)
		if err != nil {
			return "", "", apperr.Upstream(i18n.KeyUploadFailed, err)
		}
		firstURL = u
	}

	if second != nil {
		u, err := s.Upload(ctx, second)
		if err != nil {
			if firstURL != "" {
				if delErr := s.Delete(ctx, firstURL); delErr != nil {
					slog.Error("failed to delete uploaded file after upload failure",
						"url", firstURL,
						"error", delErr,
					)
				}
			}
			return "", "", apperr.Upstream(i18n.KeyUploadFailed, err)
		}
		secondURL = u
	}

	return firstURL, secondURL, nil
}

// DeleteAll deletes every URL the storage owns, logging failures. Empty and
// foreign URLs are skipped.
func DeleteAll(ctx context.Context, s Storage, urls ...string) {
	for _, u := range urls {
		if u == "" {
			continue
		}
		if !s.Owns(u) {
			slog.Debug("skipping delete of foreign file", "url", u)
			continue
		}
		if err := s.Delete(ctx, u); err != nil {
			slog.Warn("failed to delete file", "url", u, "error", err)
		}
	}
}

// objectName builds a unique, URL-safe name for an upload
func objectName(now time.Time, original string) string {
	base := sanitize(path.Base(original))
	if base == "" || base == "." || base == "/" {
		base = "file"
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), base)
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}

// underBase reports whether fileURL names an object directly below base
func underBase(base, fileURL string) bool {
	rest, ok := strings.CutPrefix(fileURL, base+"/")
	return ok && rest != "" && !strings.Contains(rest, "/")
}

// lastSegment extracts the object name from a public URL
func lastSegment(fileURL string) (string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("invalid file URL: %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("invalid file URL %q: no file name", fileURL)
	}
	return name, nil
}

// Noop rejects uploads and ignores deletions
type Noop struct{}

func (Noop) Upload(ctx context.Context, f *File) (string, error) {
	return "", ErrDisabled
}

func (Noop) Delete(ctx context.Context, fileURL string) error {
	return nil
}

func (Noop) Owns(fileURL string) bool {
	return false
}
