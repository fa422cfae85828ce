// Package content maintains the course hierarchy: chapters hold either
// lessons or a single quiz, lessons hold slides, and every child's id is kept
// in its parent's reference list.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/course-engine/internal/apperr"
	"github.com/terra-clan/course-engine/internal/models"
	"github.com/terra-clan/course-engine/internal/storage"
	"github.com/terra-clan/course-engine/internal/validation"
	"github.com/terra-clan/course-engine/internal/views"
)

// Invalidator drops cached reads of a course after its content changes
type Invalidator interface {
	InvalidateCourse(ctx context.Context, courseID string) error
}

// Manager implements the hierarchy operations
type Manager struct {
	repo     storage.Repository
	validate *validation.Validator
	cache    Invalidator
	now      func() time.Time
	newID    func() string
}

// Option configures a Manager
type Option func(*Manager)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator overrides id generation
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

// NewManager creates a new Manager. cache may be nil.
func NewManager(repo storage.Repository, v *validation.Validator, cache Invalidator, opts ...Option) *Manager {
	m := &Manager{
		repo:     repo,
		validate: v,
		cache:    cache,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// invalidate is best-effort; a stale view expires with its TTL
func (m *Manager) invalidate(ctx context.Context, courseID string) {
	if m.cache == nil || courseID == "" {
		return
	}
	if err := m.cache.InvalidateCourse(ctx, courseID); err != nil {
		slog.Warn("failed to invalidate course views", "course_id", courseID, "error", err)
	}
}

// invalidateChapter resolves the chapter's course and invalidates it
func (m *Manager) invalidateChapter(ctx context.Context, chapterID string) {
	ch, err := m.repo.GetChapter(ctx, chapterID)
	if err != nil || ch == nil {
		return
	}
	m.invalidate(ctx, ch.CourseID)
}

// invalidateLesson resolves the lesson's course and invalidates it
func (m *Manager) invalidateLesson(ctx context.Context, lessonID string) {
	l, err := m.repo.GetLesson(ctx, lessonID)
	if err != nil || l == nil {
		return
	}
	m.invalidateChapter(ctx, l.ChapterID)
}

// compensate deletes a child persisted before its parent link failed. A
// failure here is logged; the caller returns the original error.
func (m *Manager) compensate(ctx context.Context, kind, id string, del func(context.Context, string) error) {
	if err := del(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		slog.Error("failed to roll back unlinked record", "kind", kind, "id", id, "error", err)
	}
}

// graphFor resolves lessons (optionally with slides) and quizzes referenced
// by chapters.
func (m *Manager) graphFor(ctx context.Context, withSlides bool, chapters ...*models.Chapter) (*views.Graph, error) {
	g := views.NewGraph()
	g.AddChapters(chapters)

	var lessonIDs, quizIDs []string
	for _, ch := range chapters {
		lessonIDs = append(lessonIDs, ch.LessonIDs...)
		if ch.HasQuiz() {
			quizIDs = append(quizIDs, ch.QuizID)
		}
	}

	lessons, err := m.repo.GetLessons(ctx, lessonIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve lessons: %w", err)
	}
	g.AddLessons(lessons)

	if withSlides {
		if err := m.addSlides(ctx, g, lessons); err != nil {
			return nil, err
		}
	}

	quizzes, err := m.repo.GetQuizzes(ctx, quizIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve quizzes: %w", err)
	}
	g.AddQuizzes(quizzes)

	return g, nil
}

func (m *Manager) addSlides(ctx context.Context, g *views.Graph, lessons []*models.Lesson) error {
	var slideIDs []string
	for _, l := range lessons {
		slideIDs = append(slideIDs, l.SlideIDs...)
	}
	slides, err := m.repo.GetSlides(ctx, slideIDs)
	if err != nil {
		return fmt.Errorf("failed to resolve slides: %w", err)
	}
	g.AddSlides(slides)
	return nil
}

// notFound maps storage.ErrNotFound from a mutation to a typed NotFound
func notFound(err error, key, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(key, id)
	}
	return err
}
