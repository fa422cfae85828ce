package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/course-engine/internal/apperr"
	"github.com/terra-clan/course-engine/internal/content"
	"github.com/terra-clan/course-engine/internal/models"
	"github.com/terra-clan/course-engine/internal/storage"
	"github.com/terra-clan/course-engine/internal/validation"
)

func ptr[T any](v T) *T { return &v }

type failingDirectory struct{}

func (failingDirectory) AddEnrolledCourse(ctx context.Context, userID, courseID string) error {
	return errors.New("auth service unavailable")
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) EnrollmentCreated(ctx context.Context, userID string, course *models.Course) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, userID+":"+course.ID)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type course struct {
	id      string
	lessons []string
	quizID  string
}

// setup builds chapter A with two lessons and chapter B with one quiz
func setup(t *testing.T, repo *storage.MemoryRepository) course {
	t.Helper()
	ctx := context.Background()
	m := content.NewManager(repo, validation.New(), nil)

	require.NoError(t, repo.CreateCourse(ctx, &models.Course{ID: "c1", Name: "Go"}))

	a, err := m.CreateChapter(ctx, models.CreateChapterRequest{Title: "A", OrderIndex: ptr(1), CourseID: "c1"})
	require.NoError(t, err)
	b, err := m.CreateChapter(ctx, models.CreateChapterRequest{Title: "B", OrderIndex: ptr(2), CourseID: "c1"})
	require.NoError(t, err)

	l1, err := m.CreateLesson(ctx, models.CreateLessonRequest{Title: "l1", OrderIndex: ptr(1), ChapterID: a.ID})
	require.NoError(t, err)
	l2, err := m.CreateLesson(ctx, models.CreateLessonRequest{Title: "l2", OrderIndex: ptr(2), ChapterID: a.ID})
	require.NoError(t, err)
	q, err := m.CreateQuiz(ctx, models.CreateQuizRequest{
		Title:     "quiz",
		ChapterID: b.ID,
		Questions: []models.QuizQuestion{{Question: "?", Options: []string{"a", "b"}}},
	})
	require.NoError(t, err)

	return course{id: "c1", lessons: []string{l1.ID, l2.ID}, quizID: q.ID}
}

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		completed, total int
		want             int
		ok               bool
	}{
		{0, 3, 0, true},
		{1, 3, 33, true},
		{2, 3, 67, true},
		{3, 3, 100, true},
		{1, 8, 13, true}, // 12.5 rounds up
		{1, 200, 1, true},
		{5, 3, 100, true},
		{2, 0, 0, false},
	}
	for _, tt := range tests {
		got, ok := ComputeProgress(tt.completed, tt.total)
		assert.Equal(t, tt.ok, ok, "%d/%d", tt.completed, tt.total)
		assert.Equal(t, tt.want, got, "%d/%d", tt.completed, tt.total)
	}
}

func TestEnroll(t *testing.T) {
	repo := storage.NewMemoryRepository()
	c := setup(t, repo)
	require.NoError(t, repo.CreateUser(context.Background(), &models.User{ID: "u1", Email: "u1@example.com"}))

	notifier := &recordingNotifier{}
	tr := NewTracker(repo, repo, WithNotifier(notifier))

	e, err := tr.Enroll(context.Background(), c.id, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, e.Progress)
	assert.False(t, e.IsCompleted)
	assert.Empty(t, e.CompletedLessons)

	u, err := repo.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{c.id}, u.EnrolledCourses)
	assert.Equal(t, []string{"u1:" + c.id}, notifier.calls)

	_, err = tr.Enroll(context.Background(), c.id, "u1")
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	list, err := tr.ListEnrollments(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEnroll_UnknownCourse(t *testing.T) {
	tr := NewTracker(storage.NewMemoryRepository(), nil)
	_, err := tr.Enroll(context.Background(), "missing", "u1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestEnroll_UserSyncFailureIsIgnored(t *testing.T) {
	repo := storage.NewMemoryRepository()
	c := setup(t, repo)
	tr := NewTracker(repo, failingDirectory{})

	e, err := tr.Enroll(context.Background(), c.id, "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)

	stored, err := repo.GetEnrollment(context.Background(), c.id, "u1")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestProgressScenario(t *testing.T) {
	repo := storage.NewMemoryRepository()
	c := setup(t, repo)
	tr := NewTracker(repo, nil)
	ctx := context.Background()

	_, err := tr.Enroll(ctx, c.id, "u1")
	require.NoError(t, err)

	e, err := tr.MarkLessonCompleted(ctx, c.id, "u1", c.lessons[0])
	require.NoError(t, err)
	assert.Equal(t, 33, e.Progress)
	assert.False(t, e.IsCompleted)

	e, err = tr.MarkLessonCompleted(ctx, c.id, "u1", c.lessons[1])
	require.NoError(t, err)
	assert.Equal(t, 67, e.Progress)

	e, err = tr.MarkQuizCompleted(ctx, c.id, "u1", c.quizID)
	require.NoError(t, err)
	assert.Equal(t, 100, e.Progress)
	assert.True(t, e.IsCompleted)
}

func TestMarkLessonCompleted_Idempotent(t *testing.T) {
	repo := storage.NewMemoryRepository()
	c := setup(t, repo)
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	tr := NewTracker(repo, nil, WithClock(clk.now))
	ctx := context.Background()

	_, err := tr.Enroll(ctx, c.id, "u1")
	require.NoError(t, err)

	first, err := tr.MarkLessonCompleted(ctx, c.id, "u1", c.lessons[0])
	require.NoError(t, err)
	second, err := tr.MarkLessonCompleted(ctx, c.id, "u1", c.lessons[0])
	require.NoError(t, err)

	assert.Equal(t, []string{c.lessons[0]}, second.CompletedLessons)
	assert.Equal(t, first.Progress, second.Progress)
}

func TestCompletedLatchSurvivesNewContent(t *testing.T) {
	repo := storage.NewMemoryRepository()
	c := setup(t, repo)
	tr := NewTracker(repo, nil)
	ctx := context.Background()

	_, err := tr.Enroll(ctx, c.id, "u1")
	require.NoError(t, err)
	for _, l := range c.lessons {
		_, err = tr.MarkLessonCompleted(ctx, c.id, "u1", l)
		require.NoError(t, err)
	}
	e, err := tr.MarkQuizCompleted(ctx, c.id, "u1", c.quizID)
	require.NoError(t, err)
	require.True(t, e.IsCompleted)

	// a new lesson lowers the percentage but not the completed flag
	m := content.NewManager(repo, validation.New(), nil)
	extra, err := m.CreateChapter(ctx, models.CreateChapterRequest{Title: "C", OrderIndex: ptr(3), CourseID: c.id})
	require.NoError(t, err)
	_, err = m.CreateLesson(ctx, models.CreateLessonRequest{Title: "l3", OrderIndex: ptr(1), ChapterID: extra.ID})
	require.NoError(t, err)
	_, err = m.CreateLesson(ctx, models.CreateLessonRequest{Title: "l4", OrderIndex: ptr(2), ChapterID: extra.ID})
	require.NoError(t, err)

	e, err = tr.MarkLessonCompleted(ctx, c.id, "u1", "outside-lesson")
	require.NoError(t, err)
	assert.Equal(t, 80, e.Progress)
	assert.True(t, e.IsCompleted)
}

func TestMark_EmptyCourseKeepsProgress(t *testing.T) {
	repo := storage.NewMemoryRepository()
	require.NoError(t, repo.CreateCourse(context.Background(), &models.Course{ID: "empty", Name: "Empty"}))
	tr := NewTracker(repo, nil)

	_, err := tr.Enroll(context.Background(), "empty", "u1")
	require.NoError(t, err)

	e, err := tr.MarkLessonCompleted(context.Background(), "empty", "u1", "l-x")
	require.NoError(t, err)
	assert.Equal(t, 0, e.Progress)
	assert.Equal(t, []string{"l-x"}, e.CompletedLessons)
}

func TestMark_NotEnrolled(t *testing.T) {
	repo := storage.NewMemoryRepository()
	c := setup(t, repo)
	tr := NewTracker(repo, nil)

	_, err := tr.MarkQuizCompleted(context.Background(), c.id, "stranger", c.quizID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetEnrollment_TouchesLastAccessed(t *testing.T) {
	repo := storage.NewMemoryRepository()
	c := setup(t, repo)
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	tr := NewTracker(repo, nil, WithClock(clk.now))
	ctx := context.Background()

	_, err := tr.Enroll(ctx, c.id, "u1")
	require.NoError(t, err)

	clk.t = clk.t.Add(time.Hour)
	e, err := tr.GetEnrollment(ctx, c.id, "u1")
	require.NoError(t, err)
	assert.Equal(t, clk.t, e.LastAccessedAt)

	stored, err := repo.GetEnrollment(ctx, c.id, "u1")
	require.NoError(t, err)
	assert.Equal(t, clk.t, stored.LastAccessedAt)

	_, err = tr.GetEnrollment(ctx, c.id, "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// markDuringTouch runs mark after GetEnrollment has read the row and
// before the access time is written.
type markDuringTouch struct {
	storage.Repository
	mark func()
}

func (r *markDuringTouch) TouchEnrollment(ctx context.Context, id string, at time.Time) error {
	if r.mark != nil {
		r.mark()
	}
	return r.Repository.TouchEnrollment(ctx, id, at)
}

func TestGetEnrollment_KeepsConcurrentMark(t *testing.T) {
	repo := storage.NewMemoryRepository()
	c := setup(t, repo)
	ctx := context.Background()
	marker := NewTracker(repo, nil)

	_, err := marker.Enroll(ctx, c.id, "u1")
	require.NoError(t, err)
	for _, l := range c.lessons {
		_, err = marker.MarkLessonCompleted(ctx, c.id, "u1", l)
		require.NoError(t, err)
	}

	wrapped := &markDuringTouch{Repository: repo}
	wrapped.mark = func() {
		e, err := marker.MarkQuizCompleted(ctx, c.id, "u1", c.quizID)
		require.NoError(t, err)
		require.True(t, e.IsCompleted)
	}
	reader := NewTracker(wrapped, nil)

	_, err = reader.GetEnrollment(ctx, c.id, "u1")
	require.NoError(t, err)

	stored, err := repo.GetEnrollment(ctx, c.id, "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, stored.Progress)
	assert.True(t, stored.IsCompleted)
	assert.Equal(t, []string{c.quizID}, stored.CompletedQuizzes)
}

// lateConflictRepo misses the enrollment lookup and then loses the insert
// to the unique index, as when two enrolls race.
type lateConflictRepo struct {
	storage.Repository
}

func (lateConflictRepo) GetEnrollment(ctx context.Context, courseID, userID string) (*models.Enrollment, error) {
	return nil, nil
}

func (lateConflictRepo) CreateEnrollment(ctx context.Context, e *models.Enrollment) error {
	return storage.ErrConflict
}

func TestEnroll_UniqueIndexConflictIsAlreadyExists(t *testing.T) {
	repo := storage.NewMemoryRepository()
	c := setup(t, repo)
	notifier := &recordingNotifier{}
	tr := NewTracker(lateConflictRepo{Repository: repo}, nil, WithNotifier(notifier))

	_, err := tr.Enroll(context.Background(), c.id, "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
	assert.Empty(t, notifier.calls)
}
