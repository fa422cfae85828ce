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

// CreateSlide persists a slide and appends it to its lesson
func (m *Manager) CreateSlide(ctx context.Context, req models.CreateSlideRequest) (*models.Slide, error) {
	if err := m.validate.Struct(req); err != nil {
		return nil, err
	}

	l, err := m.requireLesson(ctx, req.LessonID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	s := &models.Slide{
		ID:          m.newID(),
		Title:       req.Title,
		Type:        req.Type,
		TextContent: req.TextContent,
		ImageURL:    req.ImageURL,
		OrderIndex:  *req.OrderIndex,
		LessonID:    l.ID,
		Options:     req.Options,
		Hint:        req.Hint,
		Answer:      req.Answer,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := checkQuestionSlide(s); err != nil {
		return nil, err
	}

	if err := m.repo.CreateSlide(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create slide: %w", err)
	}

	if err := m.repo.AppendLessonSlide(ctx, l.ID, s.ID); err != nil {
		m.compensate(ctx, "slide", s.ID, m.repo.DeleteSlide)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound(i18n.KeyLessonNotFound, l.ID)
		}
		return nil, fmt.Errorf("failed to link slide: %w", err)
	}

	m.invalidateChapter(ctx, l.ChapterID)

	slog.Info("slide created", "id", s.ID, "lesson_id", l.ID, "type", s.Type)

	return s, nil
}

// GetSlide returns a single slide
func (m *Manager) GetSlide(ctx context.Context, id string) (views.SlideView, error) {
	s, err := m.requireSlide(ctx, id)
	if err != nil {
		return views.SlideView{}, err
	}
	return views.Slide(s), nil
}

// ListSlides returns a lesson's slides by order index
func (m *Manager) ListSlides(ctx context.Context, lessonID string) ([]views.SlideView, error) {
	if _, err := m.requireLesson(ctx, lessonID); err != nil {
		return nil, err
	}

	slides, err := m.repo.ListSlidesByLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list slides: %w", err)
	}

	out := make([]views.SlideView, 0, len(slides))
	for _, s := range slides {
		out = append(out, views.Slide(s))
	}
	return out, nil
}

// UpdateSlide applies a partial update. The owning lesson cannot change.
func (m *Manager) UpdateSlide(ctx context.Context, id string, req models.UpdateSlideRequest) (*models.Slide, error) {
	if err := m.validate.Struct(req); err != nil {
		return nil, err
	}

	s, err := m.requireSlide(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		s.Title = *req.Title
	}
	if req.Type != nil {
		s.Type = *req.Type
	}
	if req.TextContent != nil {
		s.TextContent = *req.TextContent
	}
	if req.ImageURL != nil {
		s.ImageURL = *req.ImageURL
	}
	if req.OrderIndex != nil {
		s.OrderIndex = *req.OrderIndex
	}
	if req.Options != nil {
		s.Options = *req.Options
	}
	if req.Hint != nil {
		s.Hint = *req.Hint
	}
	if req.Answer != nil {
		s.Answer = *req.Answer
	}
	if err := checkQuestionSlide(s); err != nil {
		return nil, err
	}
	s.UpdatedAt = m.now()

	if err := m.repo.UpdateSlide(ctx, s); err != nil {
		return nil, notFound(err, i18n.KeySlideNotFound, id)
	}

	m.invalidateLesson(ctx, s.LessonID)
	return s, nil
}

// RemoveSlide pulls a slide from its lesson and deletes it
func (m *Manager) RemoveSlide(ctx context.Context, id string) (*models.Slide, error) {
	s, err := m.requireSlide(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := m.repo.RemoveLessonSlide(ctx, s.LessonID, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to unlink slide: %w", err)
	}

	if err := m.repo.DeleteSlide(ctx, id); err != nil {
		return nil, notFound(err, i18n.KeySlideNotFound, id)
	}

	m.invalidateLesson(ctx, s.LessonID)
	return s, nil
}

func (m *Manager) requireSlide(ctx context.Context, id string) (*models.Slide, error) {
	s, err := m.repo.GetSlide(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get slide: %w", err)
	}
	if s == nil {
		return nil, apperr.NotFound(i18n.KeySlideNotFound, id)
	}
	return s, nil
}

// checkQuestionSlide requires two options and an answer on question slides
func checkQuestionSlide(s *models.Slide) error {
	if s.Type != models.SlideQuestion {
		return nil
	}
	if len(s.Options) < 2 || s.Answer == "" {
		return apperr.InvalidState(i18n.KeyQuestionSlideOptions)
	}
	return nil
}
