package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/terra-clan/course-engine/internal/apperr"
	"github.com/terra-clan/course-engine/internal/i18n"
	"github.com/terra-clan/course-engine/internal/models"
	"github.com/terra-clan/course-engine/internal/storage"
	"github.com/terra-clan/course-engine/internal/views"
)

// CreateChapter persists a chapter and appends it to its course
func (m *Manager) CreateChapter(ctx context.Context, req models.CreateChapterRequest) (*models.Chapter, error) {
	if err := m.validate.Struct(req); err != nil {
		return nil, err
	}

	course, err := m.repo.GetCourse(ctx, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course == nil {
		return nil, apperr.NotFound(i18n.KeyCourseNotFound, req.CourseID)
	}

	now := m.now()
	ch := &models.Chapter{
		ID:          m.newID(),
		Title:       req.Title,
		Description: req.Description,
		OrderIndex:  *req.OrderIndex,
		CourseID:    course.ID,
		LessonIDs:   []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := m.repo.CreateChapter(ctx, ch); err != nil {
		return nil, fmt.Errorf("failed to create chapter: %w", err)
	}

	if err := m.repo.AppendCourseChapter(ctx, course.ID, ch.ID); err != nil {
		m.compensate(ctx, "chapter", ch.ID, m.repo.DeleteChapter)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound(i18n.KeyCourseNotFound, course.ID)
		}
		return nil, fmt.Errorf("failed to link chapter: %w", err)
	}

	m.invalidate(ctx, course.ID)

	slog.Info("chapter created", "id", ch.ID, "course_id", course.ID, "order_index", ch.OrderIndex)

	return ch, nil
}

// GetChapter returns a chapter with its lessons and quiz expanded
func (m *Manager) GetChapter(ctx context.Context, id string) (views.ChapterFull, error) {
	ch, err := m.requireChapter(ctx, id)
	if err != nil {
		return views.ChapterFull{}, err
	}

	g, err := m.graphFor(ctx, false, ch)
	if err != nil {
		return views.ChapterFull{}, err
	}
	return views.BuildChapterDetail(ch, g), nil
}

// ListChapters returns a course's chapters by order index, each with its
// lessons and quiz expanded.
func (m *Manager) ListChapters(ctx context.Context, courseID string) ([]views.ChapterFull, error) {
	course, err := m.repo.GetCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course == nil {
		return nil, apperr.NotFound(i18n.KeyCourseNotFound, courseID)
	}

	chapters, err := m.repo.ListChaptersByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}

	g, err := m.graphFor(ctx, false, chapters...)
	if err != nil {
		return nil, err
	}

	out := make([]views.ChapterFull, 0, len(chapters))
	for _, ch := range chapters {
		out = append(out, views.BuildChapterDetail(ch, g))
	}
	return out, nil
}

// UpdateChapter applies a partial update. The owning course cannot change.
func (m *Manager) UpdateChapter(ctx context.Context, id string, req models.UpdateChapterRequest) (*models.Chapter, error) {
	if err := m.validate.Struct(req); err != nil {
		return nil, err
	}

	ch, err := m.requireChapter(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		ch.Title = *req.Title
	}
	if req.Description != nil {
		ch.Description = *req.Description
	}
	if req.OrderIndex != nil {
		ch.OrderIndex = *req.OrderIndex
	}
	ch.UpdatedAt = m.now()

	if err := m.repo.UpdateChapter(ctx, ch); err != nil {
		return nil, notFound(err, i18n.KeyChapterNotFound, id)
	}

	m.invalidate(ctx, ch.CourseID)
	return ch, nil
}

// RemoveChapter deletes a chapter with its lessons, their slides and its
// quiz, and pulls it from the course. It returns the chapter as it was.
func (m *Manager) RemoveChapter(ctx context.Context, id string) (*models.Chapter, error) {
	ch, err := m.requireChapter(ctx, id)
	if err != nil {
		return nil, err
	}

	lessonIDs, err := m.repo.DeleteLessonsByChapter(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete chapter lessons: %w", err)
	}

	slides, err := m.repo.DeleteSlidesByLessons(ctx, lessonIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to delete chapter slides: %w", err)
	}

	if ch.HasQuiz() {
		if err := m.repo.DeleteQuiz(ctx, ch.QuizID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("failed to delete chapter quiz: %w", err)
		}
	}

	// The course may already be gone; courses do not cascade.
	if err := m.repo.RemoveCourseChapter(ctx, ch.CourseID, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to unlink chapter: %w", err)
	}

	if err := m.repo.DeleteChapter(ctx, id); err != nil {
		return nil, notFound(err, i18n.KeyChapterNotFound, id)
	}

	m.invalidate(ctx, ch.CourseID)

	slog.Info("chapter removed",
		"id", id,
		"course_id", ch.CourseID,
		"lessons_deleted", len(lessonIDs),
		"slides_deleted", slides,
		"quiz_deleted", ch.HasQuiz(),
	)

	return ch, nil
}

func (m *Manager) requireChapter(ctx context.Context, id string) (*models.Chapter, error) {
	ch, err := m.repo.GetChapter(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	if ch == nil {
		return nil, apperr.NotFound(i18n.KeyChapterNotFound, id)
	}
	return ch, nil
}
