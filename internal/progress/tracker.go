// Package progress tracks course enrollments and completion.
package progress

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
)

// UserDirectory keeps the user's enrolled course list in sync
type UserDirectory interface {
	AddEnrolledCourse(ctx context.Context, userID, courseID string) error
}

// Notifier is told about new enrollments
type Notifier interface {
	EnrollmentCreated(ctx context.Context, userID string, course *models.Course)
}

// Tracker implements the enrollment state machine
type Tracker struct {
	repo     storage.Repository
	users    UserDirectory
	notifier Notifier
	now      func() time.Time
	newID    func() string
}

// Option configures a Tracker
type Option func(*Tracker)

// WithNotifier sets the enrollment notifier
func WithNotifier(n Notifier) Option {
	return func(t *Tracker) { t.notifier = n }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a new Tracker. users may be nil.
func NewTracker(repo storage.Repository, users UserDirectory, opts ...Option) *Tracker {
	t := &Tracker{
		repo:  repo,
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Enroll creates the enrollment of userID in courseID. Syncing the user's
// course list and the confirmation e-mail are best-effort.
func (t *Tracker) Enroll(ctx context.Context, courseID, userID string) (*models.Enrollment, error) {
	course, err := t.repo.GetCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course == nil {
		return nil, apperr.NotFound(i18n.KeyCourseNotFound, courseID)
	}

	existing, err := t.repo.GetEnrollment(ctx, courseID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	if existing != nil {
		return nil, apperr.AlreadyExists(i18n.KeyAlreadyEnrolled)
	}

	now := t.now()
	e := &models.Enrollment{
		ID:               t.newID(),
		UserID:           userID,
		CourseID:         courseID,
		CompletedLessons: []string{},
		CompletedQuizzes: []string{},
		Progress:         0,
		EnrolledAt:       now,
		LastAccessedAt:   now,
	}

	if err := t.repo.CreateEnrollment(ctx, e); err != nil {
		// a concurrent enroll won the unique index
		if errors.Is(err, storage.ErrConflict) {
			return nil, apperr.AlreadyExists(i18n.KeyAlreadyEnrolled)
		}
		return nil, fmt.Errorf("failed to create enrollment: %w", err)
	}

	if t.users != nil {
		if err := t.users.AddEnrolledCourse(ctx, userID, courseID); err != nil {
			slog.Error("failed to add course to user's enrolled courses",
				"user_id", userID,
				"course_id", courseID,
				"error", err,
			)
		}
	}

	if t.notifier != nil {
		t.notifier.EnrollmentCreated(ctx, userID, course)
	}

	slog.Info("user enrolled", "user_id", userID, "course_id", courseID, "enrollment_id", e.ID)

	return e, nil
}

// GetEnrollment returns the enrollment and records the access time
func (t *Tracker) GetEnrollment(ctx context.Context, courseID, userID string) (*models.Enrollment, error) {
	e, err := t.requireEnrollment(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}

	now := t.now()
	if err := t.repo.TouchEnrollment(ctx, e.ID, now); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound(i18n.KeyEnrollmentNotFound, userID)
		}
		return nil, fmt.Errorf("failed to touch enrollment: %w", err)
	}
	e.LastAccessedAt = now
	return e, nil
}

// ListEnrollments returns every enrollment of a user
func (t *Tracker) ListEnrollments(ctx context.Context, userID string) ([]*models.Enrollment, error) {
	list, err := t.repo.ListEnrollmentsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return list, nil
}

// MarkLessonCompleted adds lessonID to the completed lessons
func (t *Tracker) MarkLessonCompleted(ctx context.Context, courseID, userID, lessonID string) (*models.Enrollment, error) {
	return t.markCompleted(ctx, courseID, userID, func(e *models.Enrollment) bool {
		if e.HasCompletedLesson(lessonID) {
			return false
		}
		e.CompletedLessons = append(e.CompletedLessons, lessonID)
		return true
	})
}

// MarkQuizCompleted adds quizID to the completed quizzes
func (t *Tracker) MarkQuizCompleted(ctx context.Context, courseID, userID, quizID string) (*models.Enrollment, error) {
	return t.markCompleted(ctx, courseID, userID, func(e *models.Enrollment) bool {
		if e.HasCompletedQuiz(quizID) {
			return false
		}
		e.CompletedQuizzes = append(e.CompletedQuizzes, quizID)
		return true
	})
}

// markCompleted applies add and, when it changed the enrollment, recomputes
// progress and persists. A repeated mark returns the enrollment untouched.
func (t *Tracker) markCompleted(ctx context.Context, courseID, userID string, add func(*models.Enrollment) bool) (*models.Enrollment, error) {
	e, err := t.requireEnrollment(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}

	if !add(e) {
		return e, nil
	}

	total, err := t.totalItems(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if progress, ok := ComputeProgress(e.CompletedCount(), total); ok {
		e.Progress = progress
	}
	if e.Progress >= 100 {
		e.IsCompleted = true
	}

	if err := t.repo.UpdateEnrollment(ctx, e); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound(i18n.KeyEnrollmentNotFound, userID)
		}
		return nil, fmt.Errorf("failed to update enrollment: %w", err)
	}

	if e.IsCompleted {
		slog.Info("course completed", "user_id", userID, "course_id", courseID)
	}

	return e, nil
}

// totalItems counts the completable items of a course: every lesson plus
// one per chapter quiz.
func (t *Tracker) totalItems(ctx context.Context, courseID string) (int, error) {
	chapters, err := t.repo.ListChaptersByCourse(ctx, courseID)
	if err != nil {
		return 0, fmt.Errorf("failed to list chapters: %w", err)
	}
	total := 0
	for _, ch := range chapters {
		total += ch.ItemCount()
	}
	return total, nil
}

func (t *Tracker) requireEnrollment(ctx context.Context, courseID, userID string) (*models.Enrollment, error) {
	e, err := t.repo.GetEnrollment(ctx, courseID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	if e == nil {
		return nil, apperr.NotFound(i18n.KeyEnrollmentNotFound, userID)
	}
	return e, nil
}

// ComputeProgress returns completed/total as a percentage rounded half up
// and capped at 100. ok is false when total is zero.
func ComputeProgress(completed, total int) (int, bool) {
	if total <= 0 {
		return 0, false
	}
	if completed < 0 {
		completed = 0
	}
	p := (200*completed + total) / (2 * total)
	if p > 100 {
		p = 100
	}
	return p, true
}
