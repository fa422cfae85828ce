package content

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/course-engine/internal/apperr"
	"github.com/terra-clan/course-engine/internal/i18n"
	"github.com/terra-clan/course-engine/internal/models"
	"github.com/terra-clan/course-engine/internal/storage"
	"github.com/terra-clan/course-engine/internal/validation"
	"github.com/terra-clan/course-engine/internal/views"
)

type spyCache struct {
	mu          sync.Mutex
	invalidated []string
	err         error
}

func (s *spyCache) InvalidateCourse(ctx context.Context, courseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = append(s.invalidated, courseID)
	return s.err
}

func ptr[T any](v T) *T { return &v }

type fixture struct {
	ctx    context.Context
	repo   *storage.MemoryRepository
	cache  *spyCache
	m      *Manager
	course *models.Course
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := storage.NewMemoryRepository()
	cache := &spyCache{}

	n := 0
	m := NewManager(repo, validation.New(), cache,
		WithClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	)

	course := &models.Course{ID: "course-1", Name: "Go"}
	require.NoError(t, repo.CreateCourse(context.Background(), course))

	return &fixture{ctx: context.Background(), repo: repo, cache: cache, m: m, course: course}
}

func (f *fixture) chapter(t *testing.T, title string, order int) *models.Chapter {
	t.Helper()
	ch, err := f.m.CreateChapter(f.ctx, models.CreateChapterRequest{Title: title, OrderIndex: ptr(order), CourseID: f.course.ID})
	require.NoError(t, err)
	return ch
}

func (f *fixture) lesson(t *testing.T, chapterID string, order int) *models.Lesson {
	t.Helper()
	l, err := f.m.CreateLesson(f.ctx, models.CreateLessonRequest{Title: "lesson", OrderIndex: ptr(order), ChapterID: chapterID})
	require.NoError(t, err)
	return l
}

func quizRequest(chapterID string) models.CreateQuizRequest {
	return models.CreateQuizRequest{
		Title:     "Checkpoint",
		ChapterID: chapterID,
		Questions: []models.QuizQuestion{{Question: "?", Options: []string{"a", "b"}, CorrectAnswer: 0}},
	}
}

func TestCreateChapterLinksCourse(t *testing.T) {
	f := newFixture(t)

	ch := f.chapter(t, "Intro", 1)
	assert.Equal(t, f.course.ID, ch.CourseID)

	course, _ := f.repo.GetCourse(f.ctx, f.course.ID)
	assert.Equal(t, []string{ch.ID}, course.ChapterIDs)
	assert.Contains(t, f.cache.invalidated, f.course.ID)
}

func TestCreateChapterUnknownCourse(t *testing.T) {
	f := newFixture(t)

	_, err := f.m.CreateChapter(f.ctx, models.CreateChapterRequest{Title: "Intro", OrderIndex: ptr(1), CourseID: "bogus"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	chapters, _ := f.repo.ListChaptersByCourse(f.ctx, "bogus")
	assert.Empty(t, chapters)
}

func TestCreateChapterValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.m.CreateChapter(f.ctx, models.CreateChapterRequest{CourseID: f.course.ID})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestLessonQuizExclusion(t *testing.T) {
	f := newFixture(t)

	quizChapter := f.chapter(t, "Quiz", 1)
	_, err := f.m.CreateQuiz(f.ctx, quizRequest(quizChapter.ID))
	require.NoError(t, err)

	_, err = f.m.CreateLesson(f.ctx, models.CreateLessonRequest{Title: "x", OrderIndex: ptr(0), ChapterID: quizChapter.ID})
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindInvalidState, e.Kind)
	assert.Equal(t, i18n.KeyChapterHasQuiz, e.Key)

	lessonChapter := f.chapter(t, "Lessons", 2)
	f.lesson(t, lessonChapter.ID, 0)

	_, err = f.m.CreateQuiz(f.ctx, quizRequest(lessonChapter.ID))
	e, _ = apperr.As(err)
	require.NotNil(t, e)
	assert.Equal(t, i18n.KeyChapterHasLessons, e.Key)

	_, err = f.m.CreateQuiz(f.ctx, quizRequest(quizChapter.ID))
	e, _ = apperr.As(err)
	require.NotNil(t, e)
	assert.Equal(t, i18n.KeyChapterQuizExists, e.Key)

	// chapters unchanged
	ch, _ := f.repo.GetChapter(f.ctx, quizChapter.ID)
	assert.Empty(t, ch.LessonIDs)
	ch, _ = f.repo.GetChapter(f.ctx, lessonChapter.ID)
	assert.False(t, ch.HasQuiz())
}

func TestCreateLessonUnknownChapter(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.CreateLesson(f.ctx, models.CreateLessonRequest{Title: "x", OrderIndex: ptr(0), ChapterID: "nope"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

// staleChapterRepo hides the chapter's quiz slot from reads, as if a quiz
// were attached between the read and the write.
type staleChapterRepo struct {
	*storage.MemoryRepository
}

func (r staleChapterRepo) GetChapter(ctx context.Context, id string) (*models.Chapter, error) {
	ch, err := r.MemoryRepository.GetChapter(ctx, id)
	if ch != nil {
		ch.QuizID = ""
	}
	return ch, err
}

func TestCreateLessonLosingRaceIsRolledBack(t *testing.T) {
	f := newFixture(t)
	ch := f.chapter(t, "Quiz", 1)
	require.NoError(t, f.repo.AttachQuiz(f.ctx, ch.ID, "quiz-x"))

	m := NewManager(staleChapterRepo{f.repo}, validation.New(), nil)
	_, err := m.CreateLesson(f.ctx, models.CreateLessonRequest{Title: "x", OrderIndex: ptr(0), ChapterID: ch.ID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))

	lessons, _ := f.repo.ListLessonsByChapter(f.ctx, ch.ID)
	assert.Empty(t, lessons, "unlinked lesson must be deleted")

	stored, _ := f.repo.GetChapter(f.ctx, ch.ID)
	assert.Equal(t, "quiz-x", stored.QuizID)
	assert.Empty(t, stored.LessonIDs)
}

func TestRemoveChapterCascades(t *testing.T) {
	f := newFixture(t)

	ch := f.chapter(t, "Basics", 1)
	l1 := f.lesson(t, ch.ID, 0)
	f.lesson(t, ch.ID, 1)
	_, err := f.m.CreateSlide(f.ctx, models.CreateSlideRequest{Title: "s", Type: models.SlideText, OrderIndex: ptr(0), LessonID: l1.ID})
	require.NoError(t, err)

	quizChapter := f.chapter(t, "Quiz", 2)
	quiz, err := f.m.CreateQuiz(f.ctx, quizRequest(quizChapter.ID))
	require.NoError(t, err)

	removed, err := f.m.RemoveChapter(f.ctx, ch.ID)
	require.NoError(t, err)
	assert.Len(t, removed.LessonIDs, 2, "returns prior snapshot")

	lessons, _ := f.repo.ListLessonsByChapter(f.ctx, ch.ID)
	assert.Empty(t, lessons)
	slides, _ := f.repo.ListSlidesByLesson(f.ctx, l1.ID)
	assert.Empty(t, slides)

	course, _ := f.repo.GetCourse(f.ctx, f.course.ID)
	assert.Equal(t, []string{quizChapter.ID}, course.ChapterIDs)

	_, err = f.m.RemoveChapter(f.ctx, quizChapter.ID)
	require.NoError(t, err)
	q, _ := f.repo.GetQuiz(f.ctx, quiz.ID)
	assert.Nil(t, q)

	_, err = f.m.RemoveChapter(f.ctx, ch.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestRemoveQuizKeepsChapter(t *testing.T) {
	f := newFixture(t)
	ch := f.chapter(t, "Quiz", 1)
	quiz, err := f.m.CreateQuiz(f.ctx, quizRequest(ch.ID))
	require.NoError(t, err)

	_, err = f.m.RemoveQuiz(f.ctx, quiz.ID)
	require.NoError(t, err)

	stored, err := f.repo.GetChapter(f.ctx, ch.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.HasQuiz())

	// the slot is free again
	f.lesson(t, ch.ID, 0)
}

func TestRemoveLessonPullsReference(t *testing.T) {
	f := newFixture(t)
	ch := f.chapter(t, "Basics", 1)
	l := f.lesson(t, ch.ID, 0)
	s, err := f.m.CreateSlide(f.ctx, models.CreateSlideRequest{Title: "s", Type: models.SlideQuote, OrderIndex: ptr(0), LessonID: l.ID})
	require.NoError(t, err)

	_, err = f.m.RemoveLesson(f.ctx, l.ID)
	require.NoError(t, err)

	stored, _ := f.repo.GetChapter(f.ctx, ch.ID)
	assert.Empty(t, stored.LessonIDs)
	gone, _ := f.repo.GetSlide(f.ctx, s.ID)
	assert.Nil(t, gone)
}

func TestUpdateChapterPartial(t *testing.T) {
	f := newFixture(t)
	ch := f.chapter(t, "Intro", 1)

	updated, err := f.m.UpdateChapter(f.ctx, ch.ID, models.UpdateChapterRequest{OrderIndex: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, "Intro", updated.Title)
	assert.Equal(t, 5, updated.OrderIndex)
	assert.Equal(t, f.course.ID, updated.CourseID)

	_, err = f.m.UpdateChapter(f.ctx, "missing", models.UpdateChapterRequest{Title: ptr("x")})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestUpdateQuizReplacesQuestions(t *testing.T) {
	f := newFixture(t)
	ch := f.chapter(t, "Quiz", 1)
	quiz, err := f.m.CreateQuiz(f.ctx, quizRequest(ch.ID))
	require.NoError(t, err)

	questions := []models.QuizQuestion{
		{Question: "b", Options: []string{"1", "2"}, OrderIndex: 2},
		{Question: "a", Options: []string{"1", "2"}, OrderIndex: 1},
	}
	_, err = f.m.UpdateQuiz(f.ctx, quiz.ID, models.UpdateQuizRequest{Questions: &questions, PassingScore: ptr(80)})
	require.NoError(t, err)

	got, err := f.m.GetQuiz(f.ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, got.PassingScore)
	assert.Equal(t, "a", got.Questions[0].Question)
	assert.Equal(t, ch.ID, got.ChapterID)
}

func TestGetQuizByChapter(t *testing.T) {
	f := newFixture(t)
	ch := f.chapter(t, "Quiz", 1)

	_, err := f.m.GetQuizByChapter(f.ctx, ch.ID)
	e, _ := apperr.As(err)
	require.NotNil(t, e)
	assert.Equal(t, i18n.KeyChapterQuizNotFound, e.Key)

	quiz, err := f.m.CreateQuiz(f.ctx, quizRequest(ch.ID))
	require.NoError(t, err)

	got, err := f.m.GetQuizByChapter(f.ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, quiz.ID, got.ID)
}

func TestListChaptersExpandsChildren(t *testing.T) {
	f := newFixture(t)
	second := f.chapter(t, "Second", 2)
	first := f.chapter(t, "First", 1)
	f.lesson(t, second.ID, 1)
	_, err := f.m.CreateQuiz(f.ctx, quizRequest(first.ID))
	require.NoError(t, err)

	chapters, err := f.m.ListChapters(f.ctx, f.course.ID)
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	assert.Equal(t, first.ID, chapters[0].ID)
	require.NotNil(t, chapters[0].Quiz)
	assert.Len(t, chapters[1].Lessons, 1)

	_, err = f.m.ListChapters(f.ctx, "missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestLessonsAndSlidesSorted(t *testing.T) {
	f := newFixture(t)
	ch := f.chapter(t, "Basics", 1)
	later := f.lesson(t, ch.ID, 2)
	earlier := f.lesson(t, ch.ID, 1)

	for i, order := range []int{3, 1, 2} {
		_, err := f.m.CreateSlide(f.ctx, models.CreateSlideRequest{
			Title: fmt.Sprintf("s%d", i), Type: models.SlideText, OrderIndex: ptr(order), LessonID: earlier.ID,
		})
		require.NoError(t, err)
	}

	lessons, err := f.m.ListLessons(f.ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, earlier.ID, lessons[0].Lesson().ID)
	assert.Equal(t, later.ID, lessons[1].Lesson().ID)

	withSlides, ok := lessons[0].(views.LessonWithSlides)
	require.True(t, ok)
	require.Len(t, withSlides.Slides, 3)
	assert.Equal(t, 1, withSlides.Slides[0].OrderIndex)
	assert.Equal(t, 3, withSlides.Slides[2].OrderIndex)
}

func TestQuestionSlideNeedsOptions(t *testing.T) {
	f := newFixture(t)
	ch := f.chapter(t, "Basics", 1)
	l := f.lesson(t, ch.ID, 0)

	req := models.CreateSlideRequest{Title: "q", Type: models.SlideQuestion, OrderIndex: ptr(0), LessonID: l.ID}
	_, err := f.m.CreateSlide(f.ctx, req)
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))

	req.Options = []string{"yes", "no"}
	req.Answer = "yes"
	s, err := f.m.CreateSlide(f.ctx, req)
	require.NoError(t, err)

	lesson, _ := f.repo.GetLesson(f.ctx, l.ID)
	assert.Equal(t, []string{s.ID}, lesson.SlideIDs)

	_, err = f.m.UpdateSlide(f.ctx, s.ID, models.UpdateSlideRequest{Answer: ptr("")})
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))
}

func TestCacheFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t)
	f.cache.err = errors.New("redis down")

	ch := f.chapter(t, "Intro", 1)
	assert.NotEmpty(t, ch.ID)
}
