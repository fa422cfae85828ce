package storage

import (
	"context"
	"errors"
	"time"

	"github.com/terra-clan/course-engine/internal/models"
)

var (
	// ErrNotFound is returned by mutations that matched no row. Lookups
	// return (nil, nil) instead.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a conditional update did not apply or a
	// uniqueness constraint rejected an insert.
	ErrConflict = errors.New("record conflict")
)

// Repository defines the interface for content persistence
type Repository interface {
	// Categories
	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	GetCategories(ctx context.Context, ids []string) ([]*models.Category, error)

	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	AddEnrolledCourse(ctx context.Context, userID, courseID string) error

	// Courses
	CreateCourse(ctx context.Context, c *models.Course) error
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	ListCourses(ctx context.Context, filters models.CourseFilters) ([]*models.Course, error)
	CountCourses(ctx context.Context, filters models.CourseFilters) (int, error)
	UpdateCourse(ctx context.Context, c *models.Course) error
	DeleteCourse(ctx context.Context, id string) error
	AppendCourseChapter(ctx context.Context, courseID, chapterID string) error
	RemoveCourseChapter(ctx context.Context, courseID, chapterID string) error

	// Chapters. List methods return rows ordered by order index, ties in
	// insertion order.
	CreateChapter(ctx context.Context, ch *models.Chapter) error
	GetChapter(ctx context.Context, id string) (*models.Chapter, error)
	GetChapters(ctx context.Context, ids []string) ([]*models.Chapter, error)
	ListChaptersByCourse(ctx context.Context, courseID string) ([]*models.Chapter, error)
	UpdateChapter(ctx context.Context, ch *models.Chapter) error
	DeleteChapter(ctx context.Context, id string) error

	// AttachLesson appends lessonID to the chapter only while its quiz slot is
	// empty; otherwise it returns ErrConflict.
	AttachLesson(ctx context.Context, chapterID, lessonID string) error
	DetachLesson(ctx context.Context, chapterID, lessonID string) error

	// AttachQuiz sets the quiz slot only while the slot is empty and the
	// chapter has no lessons; otherwise it returns ErrConflict.
	AttachQuiz(ctx context.Context, chapterID, quizID string) error
	DetachQuiz(ctx context.Context, chapterID, quizID string) error

	// Lessons
	CreateLesson(ctx context.Context, l *models.Lesson) error
	GetLesson(ctx context.Context, id string) (*models.Lesson, error)
	GetLessons(ctx context.Context, ids []string) ([]*models.Lesson, error)
	ListLessonsByChapter(ctx context.Context, chapterID string) ([]*models.Lesson, error)
	UpdateLesson(ctx context.Context, l *models.Lesson) error
	DeleteLesson(ctx context.Context, id string) error
	DeleteLessonsByChapter(ctx context.Context, chapterID string) ([]string, error)
	AppendLessonSlide(ctx context.Context, lessonID, slideID string) error
	RemoveLessonSlide(ctx context.Context, lessonID, slideID string) error

	// Slides
	CreateSlide(ctx context.Context, s *models.Slide) error
	GetSlide(ctx context.Context, id string) (*models.Slide, error)
	GetSlides(ctx context.Context, ids []string) ([]*models.Slide, error)
	ListSlidesByLesson(ctx context.Context, lessonID string) ([]*models.Slide, error)
	UpdateSlide(ctx context.Context, s *models.Slide) error
	DeleteSlide(ctx context.Context, id string) error
	DeleteSlidesByLessons(ctx context.Context, lessonIDs []string) (int, error)

	// Quizzes
	CreateQuiz(ctx context.Context, q *models.Quiz) error
	GetQuiz(ctx context.Context, id string) (*models.Quiz, error)
	GetQuizzes(ctx context.Context, ids []string) ([]*models.Quiz, error)
	UpdateQuiz(ctx context.Context, q *models.Quiz) error
	DeleteQuiz(ctx context.Context, id string) error

	// Enrollments. CreateEnrollment returns ErrConflict when the
	// (user, course) pair is already enrolled.
	CreateEnrollment(ctx context.Context, e *models.Enrollment) error
	GetEnrollment(ctx context.Context, courseID, userID string) (*models.Enrollment, error)
	ListEnrollmentsByUser(ctx context.Context, userID string) ([]*models.Enrollment, error)
	// UpdateEnrollment persists progress. isCompleted never goes back to
	// false once stored.
	UpdateEnrollment(ctx context.Context, e *models.Enrollment) error
	// TouchEnrollment sets only the last access time
	TouchEnrollment(ctx context.Context, id string, at time.Time) error

	// Orphans left behind by interrupted cascades
	DeleteOrphanLessons(ctx context.Context) (int, error)
	DeleteOrphanSlides(ctx context.Context) (int, error)
	DeleteOrphanQuizzes(ctx context.Context) (int, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}
