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

// CreateLesson persists a lesson and appends it to its chapter. A chapter
// holding a quiz rejects lessons.
func (m *Manager) CreateLesson(ctx context.Context, req models.CreateLessonRequest) (*models.Lesson, error) {
	if err := m.validate.Struct(req); err != nil {
		return nil, err
	}

	ch, err := m.requireChapter(ctx, req.ChapterID)
	if err != nil {
		return nil, err
	}
	if ch.HasQuiz() {
		return nil, apperr.InvalidState(i18n.KeyChapterHasQuiz)
	}

	now := m.now()
	l := &models.Lesson{
		ID:                m.newID(),
		Title:             req.Title,
		Description:       req.Description,
		OrderIndex:        *req.OrderIndex,
		ChapterID:         ch.ID,
		EstimatedDuration: req.EstimatedDuration,
		SlideIDs:          []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := m.repo.CreateLesson(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to create lesson: %w", err)
	}

	// The attach re-checks the quiz slot atomically; a quiz created since
	// the read above makes it fail.
	if err := m.repo.AttachLesson(ctx, ch.ID, l.ID); err != nil {
		m.compensate(ctx, "lesson", l.ID, m.repo.DeleteLesson)
		switch {
		case errors.Is(err, storage.ErrConflict):
			return nil, apperr.InvalidState(i18n.KeyChapterHasQuiz)
		case errors.Is(err, storage.ErrNotFound):
			return nil, apperr.NotFound(i18n.KeyChapterNotFound, ch.ID)
		default:
			return nil, fmt.Errorf("failed to link lesson: %w", err)
		}
	}

	m.invalidate(ctx, ch.CourseID)

	slog.Info("lesson created", "id", l.ID, "chapter_id", ch.ID, "order_index", l.OrderIndex)

	return l, nil
}

// GetLesson returns a lesson with its slides expanded
func (m *Manager) GetLesson(ctx context.Context, id string) (views.LessonView, error) {
	l, err := m.requireLesson(ctx, id)
	if err != nil {
		return nil, err
	}

	g := views.NewGraph()
	if err := m.addSlides(ctx, g, []*models.Lesson{l}); err != nil {
		return nil, err
	}
	return views.BuildLesson(l, true, g), nil
}

// ListLessons returns a chapter's lessons by order index with slides expanded
func (m *Manager) ListLessons(ctx context.Context, chapterID string) ([]views.LessonView, error) {
	if _, err := m.requireChapter(ctx, chapterID); err != nil {
		return nil, err
	}

	lessons, err := m.repo.ListLessonsByChapter(ctx, chapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}

	g := views.NewGraph()
	if err := m.addSlides(ctx, g, lessons); err != nil {
		return nil, err
	}

	out := make([]views.LessonView, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, views.BuildLesson(l, true, g))
	}
	return out, nil
}

// UpdateLesson applies a partial update. The owning chapter cannot change.
func (m *Manager) UpdateLesson(ctx context.Context, id string, req models.UpdateLessonRequest) (*models.Lesson, error) {
	if err := m.validate.Struct(req); err != nil {
		return nil, err
	}

	l, err := m.requireLesson(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		l.Title = *req.Title
	}
	if req.Description != nil {
		l.Description = *req.Description
	}
	if req.OrderIndex != nil {
		l.OrderIndex = *req.OrderIndex
	}
	if req.EstimatedDuration != nil {
		l.EstimatedDuration = req.EstimatedDuration
	}
	l.UpdatedAt = m.now()

	if err := m.repo.UpdateLesson(ctx, l); err != nil {
		return nil, notFound(err, i18n.KeyLessonNotFound, id)
	}

	m.invalidateChapter(ctx, l.ChapterID)
	return l, nil
}

// RemoveLesson pulls a lesson from its chapter and deletes it with its slides
func (m *Manager) RemoveLesson(ctx context.Context, id string) (*models.Lesson, error) {
	l, err := m.requireLesson(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := m.repo.DetachLesson(ctx, l.ChapterID, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to unlink lesson: %w", err)
	}

	slides, err := m.repo.DeleteSlidesByLessons(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("failed to delete lesson slides: %w", err)
	}

	if err := m.repo.DeleteLesson(ctx, id); err != nil {
		return nil, notFound(err, i18n.KeyLessonNotFound, id)
	}

	m.invalidateChapter(ctx, l.ChapterID)

	slog.Info("lesson removed", "id", id, "chapter_id", l.ChapterID, "slides_deleted", slides)

	return l, nil
}

func (m *Manager) requireLesson(ctx context.Context, id string) (*models.Lesson, error) {
	l, err := m.repo.GetLesson(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	if l == nil {
		return nil, apperr.NotFound(i18n.KeyLessonNotFound, id)
	}
	return l, nil
}
