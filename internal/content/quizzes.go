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

// CreateQuiz persists a quiz and sets it as its chapter's quiz. The chapter
// must have no lessons and no quiz.
func (m *Manager) CreateQuiz(ctx context.Context, req models.CreateQuizRequest) (*models.Quiz, error) {
	if err := m.validate.Struct(req); err != nil {
		return nil, err
	}

	ch, err := m.requireChapter(ctx, req.ChapterID)
	if err != nil {
		return nil, err
	}
	if ch.HasLessons() {
		return nil, apperr.InvalidState(i18n.KeyChapterHasLessons)
	}
	if ch.HasQuiz() {
		return nil, apperr.InvalidState(i18n.KeyChapterQuizExists)
	}

	now := m.now()
	q := &models.Quiz{
		ID:          m.newID(),
		Title:       req.Title,
		Description: req.Description,
		ChapterID:   ch.ID,
		Questions:   req.Questions,
		TimeLimit:   req.TimeLimit,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.PassingScore != nil {
		q.PassingScore = *req.PassingScore
	}

	if err := m.repo.CreateQuiz(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	if err := m.repo.AttachQuiz(ctx, ch.ID, q.ID); err != nil {
		m.compensate(ctx, "quiz", q.ID, m.repo.DeleteQuiz)
		switch {
		case errors.Is(err, storage.ErrConflict):
			return nil, m.attachQuizConflict(ctx, ch.ID)
		case errors.Is(err, storage.ErrNotFound):
			return nil, apperr.NotFound(i18n.KeyChapterNotFound, ch.ID)
		default:
			return nil, fmt.Errorf("failed to link quiz: %w", err)
		}
	}

	m.invalidate(ctx, ch.CourseID)

	slog.Info("quiz created", "id", q.ID, "chapter_id", ch.ID, "questions", len(q.Questions))

	return q, nil
}

// attachQuizConflict re-reads the chapter to report which side won the race
func (m *Manager) attachQuizConflict(ctx context.Context, chapterID string) error {
	ch, err := m.repo.GetChapter(ctx, chapterID)
	if err == nil && ch != nil && ch.HasQuiz() && !ch.HasLessons() {
		return apperr.InvalidState(i18n.KeyChapterQuizExists)
	}
	return apperr.InvalidState(i18n.KeyChapterHasLessons)
}

// GetQuiz returns a quiz with questions in display order
func (m *Manager) GetQuiz(ctx context.Context, id string) (*views.QuizView, error) {
	q, err := m.requireQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	return views.Quiz(q), nil
}

// GetQuizByChapter returns the quiz linked to a chapter
func (m *Manager) GetQuizByChapter(ctx context.Context, chapterID string) (*views.QuizView, error) {
	ch, err := m.requireChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	if !ch.HasQuiz() {
		return nil, apperr.NotFound(i18n.KeyChapterQuizNotFound, chapterID)
	}

	q, err := m.repo.GetQuiz(ctx, ch.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if q == nil {
		return nil, apperr.NotFound(i18n.KeyChapterQuizNotFound, chapterID)
	}
	return views.Quiz(q), nil
}

// UpdateQuiz applies a partial update. Questions, when given, replace the
// whole list.
func (m *Manager) UpdateQuiz(ctx context.Context, id string, req models.UpdateQuizRequest) (*models.Quiz, error) {
	if err := m.validate.Struct(req); err != nil {
		return nil, err
	}

	q, err := m.requireQuiz(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		q.Title = *req.Title
	}
	if req.Description != nil {
		q.Description = *req.Description
	}
	if req.Questions != nil {
		q.Questions = *req.Questions
	}
	if req.PassingScore != nil {
		q.PassingScore = *req.PassingScore
	}
	if req.TimeLimit != nil {
		q.TimeLimit = req.TimeLimit
	}
	q.UpdatedAt = m.now()

	if err := m.repo.UpdateQuiz(ctx, q); err != nil {
		return nil, notFound(err, i18n.KeyQuizNotFound, id)
	}

	m.invalidateChapter(ctx, q.ChapterID)
	return q, nil
}

// RemoveQuiz clears the chapter's quiz slot and deletes the quiz. The chapter
// itself stays.
func (m *Manager) RemoveQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	q, err := m.requireQuiz(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := m.repo.DetachQuiz(ctx, q.ChapterID, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to unlink quiz: %w", err)
	}

	if err := m.repo.DeleteQuiz(ctx, id); err != nil {
		return nil, notFound(err, i18n.KeyQuizNotFound, id)
	}

	m.invalidateChapter(ctx, q.ChapterID)

	slog.Info("quiz removed", "id", id, "chapter_id", q.ChapterID)

	return q, nil
}

func (m *Manager) requireQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	q, err := m.repo.GetQuiz(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if q == nil {
		return nil, apperr.NotFound(i18n.KeyQuizNotFound, id)
	}
	return q, nil
}
