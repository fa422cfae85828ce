package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/course-engine/internal/models"
)

func seedChapter(t *testing.T, repo *MemoryRepository, id string, order int) *models.Chapter {
	t.Helper()
	ch := &models.Chapter{ID: id, Title: id, OrderIndex: order, CourseID: "course-1", CreatedAt: time.Now()}
	require.NoError(t, repo.CreateChapter(context.Background(), ch))
	return ch
}

func TestAttachLessonRejectsQuizChapter(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	seedChapter(t, repo, "ch-1", 0)

	require.NoError(t, repo.AttachQuiz(ctx, "ch-1", "quiz-1"))
	assert.ErrorIs(t, repo.AttachLesson(ctx, "ch-1", "lesson-1"), ErrConflict)
	assert.ErrorIs(t, repo.AttachQuiz(ctx, "ch-1", "quiz-2"), ErrConflict)

	ch, err := repo.GetChapter(ctx, "ch-1")
	require.NoError(t, err)
	assert.Equal(t, "quiz-1", ch.QuizID)
	assert.Empty(t, ch.LessonIDs)
}

func TestAttachQuizRejectsLessonChapter(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	seedChapter(t, repo, "ch-1", 0)

	require.NoError(t, repo.AttachLesson(ctx, "ch-1", "lesson-1"))
	require.NoError(t, repo.AttachLesson(ctx, "ch-1", "lesson-1"))
	assert.ErrorIs(t, repo.AttachQuiz(ctx, "ch-1", "quiz-1"), ErrConflict)

	ch, _ := repo.GetChapter(ctx, "ch-1")
	assert.Equal(t, []string{"lesson-1"}, ch.LessonIDs)

	assert.ErrorIs(t, repo.AttachLesson(ctx, "missing", "lesson-2"), ErrNotFound)
}

func TestDetachQuizOnlyClearsMatchingID(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	seedChapter(t, repo, "ch-1", 0)
	require.NoError(t, repo.AttachQuiz(ctx, "ch-1", "quiz-1"))

	require.NoError(t, repo.DetachQuiz(ctx, "ch-1", "quiz-other"))
	ch, _ := repo.GetChapter(ctx, "ch-1")
	assert.Equal(t, "quiz-1", ch.QuizID)

	require.NoError(t, repo.DetachQuiz(ctx, "ch-1", "quiz-1"))
	ch, _ = repo.GetChapter(ctx, "ch-1")
	assert.False(t, ch.HasQuiz())
}

func TestListChaptersOrderedWithStableTies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	seedChapter(t, repo, "b", 1)
	seedChapter(t, repo, "a", 0)
	seedChapter(t, repo, "c", 1)

	chapters, err := repo.ListChaptersByCourse(ctx, "course-1")
	require.NoError(t, err)

	var ids []string
	for _, ch := range chapters {
		ids = append(ids, ch.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestGetByIDsKeepsRequestOrderAndSkipsMissing(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	for _, id := range []string{"l1", "l2", "l3"} {
		require.NoError(t, repo.CreateLesson(ctx, &models.Lesson{ID: id, ChapterID: "ch-1"}))
	}

	lessons, err := repo.GetLessons(ctx, []string{"l3", "gone", "l1"})
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, "l3", lessons[0].ID)
	assert.Equal(t, "l1", lessons[1].ID)
}

func TestEnrollmentUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	e := &models.Enrollment{ID: "e1", UserID: "u1", CourseID: "c1"}
	require.NoError(t, repo.CreateEnrollment(ctx, e))
	assert.ErrorIs(t, repo.CreateEnrollment(ctx, &models.Enrollment{ID: "e2", UserID: "u1", CourseID: "c1"}), ErrConflict)
	require.NoError(t, repo.CreateEnrollment(ctx, &models.Enrollment{ID: "e3", UserID: "u1", CourseID: "c2"}))

	got, err := repo.GetEnrollment(ctx, "c1", "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "e1", got.ID)

	missing, err := repo.GetEnrollment(ctx, "c3", "u1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := repo.ListEnrollmentsByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestEnrollmentCompletedLatchAndTouch(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateEnrollment(ctx, &models.Enrollment{ID: "e1", UserID: "u1", CourseID: "c1", LastAccessedAt: start}))
	require.NoError(t, repo.UpdateEnrollment(ctx, &models.Enrollment{ID: "e1", CompletedQuizzes: []string{"q1"}, Progress: 100, IsCompleted: true}))

	// a stale copy cannot clear the flag
	require.NoError(t, repo.UpdateEnrollment(ctx, &models.Enrollment{ID: "e1", CompletedQuizzes: []string{"q1"}, Progress: 80}))
	got, err := repo.GetEnrollment(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	assert.Equal(t, 80, got.Progress)

	later := start.Add(time.Hour)
	require.NoError(t, repo.TouchEnrollment(ctx, "e1", later))
	got, err = repo.GetEnrollment(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, later, got.LastAccessedAt)
	assert.Equal(t, []string{"q1"}, got.CompletedQuizzes)
	assert.True(t, got.IsCompleted)

	assert.ErrorIs(t, repo.TouchEnrollment(ctx, "missing", later), ErrNotFound)
}

func TestUpdateCourseKeepsChapterRefs(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.CreateCourse(ctx, &models.Course{ID: "c1", Name: "Go"}))
	require.NoError(t, repo.AppendCourseChapter(ctx, "c1", "ch-1"))

	require.NoError(t, repo.UpdateCourse(ctx, &models.Course{ID: "c1", Name: "Go 2"}))

	c, _ := repo.GetCourse(ctx, "c1")
	assert.Equal(t, "Go 2", c.Name)
	assert.Equal(t, []string{"ch-1"}, c.ChapterIDs)

	assert.ErrorIs(t, repo.UpdateCourse(ctx, &models.Course{ID: "nope"}), ErrNotFound)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	seedChapter(t, repo, "ch-1", 0)
	require.NoError(t, repo.AttachLesson(ctx, "ch-1", "l1"))

	ch, _ := repo.GetChapter(ctx, "ch-1")
	ch.LessonIDs[0] = "mutated"

	again, _ := repo.GetChapter(ctx, "ch-1")
	assert.Equal(t, "l1", again.LessonIDs[0])
}

func TestDeleteOrphans(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	seedChapter(t, repo, "ch-1", 0)
	require.NoError(t, repo.CreateLesson(ctx, &models.Lesson{ID: "kept", ChapterID: "ch-1"}))
	require.NoError(t, repo.CreateLesson(ctx, &models.Lesson{ID: "orphan", ChapterID: "gone"}))
	require.NoError(t, repo.CreateSlide(ctx, &models.Slide{ID: "s1", LessonID: "orphan"}))
	require.NoError(t, repo.CreateQuiz(ctx, &models.Quiz{ID: "q1", ChapterID: "gone"}))

	n, err := repo.DeleteOrphanLessons(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.DeleteOrphanSlides(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.DeleteOrphanQuizzes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	l, _ := repo.GetLesson(ctx, "kept")
	assert.NotNil(t, l)
}

func TestListCoursesPagination(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	for _, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, repo.CreateCourse(ctx, &models.Course{ID: id, Name: id, CategoryID: "cat"}))
	}

	page, err := repo.ListCourses(ctx, models.CourseFilters{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c2", page[0].ID)

	named, err := repo.ListCourses(ctx, models.CourseFilters{Name: "c3"})
	require.NoError(t, err)
	require.Len(t, named, 1)
}
