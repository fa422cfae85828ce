package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/course-engine/internal/apperr"
	"github.com/terra-clan/course-engine/internal/i18n"
	"github.com/terra-clan/course-engine/internal/models"
	"github.com/terra-clan/course-engine/internal/storage"
	"github.com/terra-clan/course-engine/internal/upload"
	"github.com/terra-clan/course-engine/internal/validation"
)

// Invalidator drops cached reads of a course
type Invalidator interface {
	InvalidateCourse(ctx context.Context, courseID string) error
}

// Images are the optional cover and thumbnail uploads of a course write
type Images struct {
	Cover     *upload.File
	Thumbnail *upload.File
}

// Service creates, updates and removes courses
type Service struct {
	repo     storage.Repository
	validate *validation.Validator
	files    upload.Storage
	cache    Invalidator
	now      func() time.Time
	newID    func() string
}

// NewService creates a new Service. files and cache may be nil.
func NewService(repo storage.Repository, v *validation.Validator, files upload.Storage, c Invalidator) *Service {
	if files == nil {
		files = upload.Noop{}
	}
	return &Service{
		repo:     repo,
		validate: v,
		files:    files,
		cache:    c,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
}

// CreateCourse uploads the images, then persists the course. Uploaded files
// are removed again if the course cannot be stored.
func (s *Service) CreateCourse(ctx context.Context, req models.CreateCourseRequest, img Images) (*models.Course, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	if err := s.requireCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	coverURL, thumbURL, err := upload.UploadPair(ctx, s.files, img.Cover, img.Thumbnail)
	if err != nil {
		return nil, err
	}

	now := s.now()
	c := &models.Course{
		ID:             s.newID(),
		Name:           req.Name,
		Description:    req.Description,
		Price:          req.Price,
		EstimationTime: req.EstimationTime,
		CoverImage:     firstNonEmpty(coverURL, req.CoverImage),
		ThumbnailImage: firstNonEmpty(thumbURL, req.ThumbnailImage),
		CategoryID:     req.CategoryID,
		WillLearn:      nonNil(req.WillLearn),
		Requirements:   nonNil(req.Requirements),
		ChapterIDs:     []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.CreateCourse(ctx, c); err != nil {
		upload.DeleteAll(ctx, s.files, coverURL, thumbURL)
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	slog.Info("course created", "id", c.ID, "name", c.Name)

	return c, nil
}

// GetCourse returns the stored course record
func (s *Service) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	return s.requireCourse(ctx, id)
}

// UpdateCourse applies a partial update. New images replace the old ones,
// which are deleted after the update is stored.
func (s *Service) UpdateCourse(ctx context.Context, id string, req models.UpdateCourseRequest, img Images) (*models.Course, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	c, err := s.requireCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.CategoryID != nil {
		if err := s.requireCategory(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
	}

	coverURL, thumbURL, err := upload.UploadPair(ctx, s.files, img.Cover, img.Thumbnail)
	if err != nil {
		return nil, err
	}

	var replaced []string
	if coverURL != "" {
		replaced = append(replaced, c.CoverImage)
		c.CoverImage = coverURL
	}
	if thumbURL != "" {
		replaced = append(replaced, c.ThumbnailImage)
		c.ThumbnailImage = thumbURL
	}

	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.Price != nil {
		c.Price = *req.Price
	}
	if req.EstimationTime != nil {
		c.EstimationTime = *req.EstimationTime
	}
	if req.CategoryID != nil {
		c.CategoryID = *req.CategoryID
	}
	if req.WillLearn != nil {
		c.WillLearn = nonNil(*req.WillLearn)
	}
	if req.Requirements != nil {
		c.Requirements = nonNil(*req.Requirements)
	}
	c.UpdatedAt = s.now()

	if err := s.repo.UpdateCourse(ctx, c); err != nil {
		upload.DeleteAll(ctx, s.files, coverURL, thumbURL)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound(i18n.KeyCourseNotFound, id)
		}
		return nil, fmt.Errorf("failed to update course: %w", err)
	}

	upload.DeleteAll(ctx, s.files, replaced...)
	s.invalidate(ctx, id)

	return c, nil
}

// RemoveCourse deletes the course and its images. Its chapters are not
// removed; they are deleted one by one through RemoveChapter.
func (s *Service) RemoveCourse(ctx context.Context, id string) (*models.Course, error) {
	c, err := s.requireCourse(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteCourse(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound(i18n.KeyCourseNotFound, id)
		}
		return nil, fmt.Errorf("failed to delete course: %w", err)
	}

	upload.DeleteAll(ctx, s.files, c.CoverImage, c.ThumbnailImage)
	s.invalidate(ctx, id)

	slog.Info("course removed", "id", id)

	return c, nil
}

// FindByName returns the first course with exactly this name, or nil
func (s *Service) FindByName(ctx context.Context, name string) (*models.Course, error) {
	courses, err := s.repo.ListCourses(ctx, models.CourseFilters{Name: name})
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	for _, c := range courses {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, nil
}

func (s *Service) requireCourse(ctx context.Context, id string) (*models.Course, error) {
	c, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if c == nil {
		return nil, apperr.NotFound(i18n.KeyCourseNotFound, id)
	}
	return c, nil
}

func (s *Service) requireCategory(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	cat, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get category: %w", err)
	}
	if cat == nil {
		return apperr.NotFound(i18n.KeyCategoryNotFound, id)
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, courseID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCourse(ctx, courseID); err != nil {
		slog.Warn("failed to invalidate course views", "course_id", courseID, "error", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
