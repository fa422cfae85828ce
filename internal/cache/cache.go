// Package cache stores rendered course views between reads.
package cache

import (
	"context"
	"fmt"

	"github.com/terra-clan/course-engine/internal/models"
)

// ViewCache stores encoded course views keyed by course, depth and whether
// the category was included. Every invalidation bumps the course version;
// Set only stores a view built at the current version.
type ViewCache interface {
	Get(ctx context.Context, courseID string, level models.PopulateLevel, includeCategory bool) ([]byte, bool, error)
	Version(ctx context.Context, courseID string) (int64, error)
	Set(ctx context.Context, courseID string, level models.PopulateLevel, includeCategory bool, version int64, data []byte) error

	// InvalidateCourse drops every cached view of courseID
	InvalidateCourse(ctx context.Context, courseID string) error
}

// ViewKey is the cache key of one course view
func ViewKey(courseID string, level models.PopulateLevel, includeCategory bool) string {
	cat := 0
	if includeCategory {
		cat = 1
	}
	return fmt.Sprintf("course:view:%s:%s:%d", courseID, level, cat)
}

// indexKey names the set listing every cached view key of a course
func indexKey(courseID string) string {
	return "course:views:" + courseID
}

func versionKey(courseID string) string {
	return "course:version:" + courseID
}

// Nop never stores anything
type Nop struct{}

func (Nop) Get(ctx context.Context, courseID string, level models.PopulateLevel, includeCategory bool) ([]byte, bool, error) {
	return nil, false, nil
}

func (Nop) Version(ctx context.Context, courseID string) (int64, error) {
	return 0, nil
}

func (Nop) Set(ctx context.Context, courseID string, level models.PopulateLevel, includeCategory bool, version int64, data []byte) error {
	return nil
}

func (Nop) InvalidateCourse(ctx context.Context, courseID string) error {
	return nil
}
